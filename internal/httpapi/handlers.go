package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/piotrgredowski/memes-ranker/internal/auth"
	"github.com/piotrgredowski/memes-ranker/internal/config"
	"github.com/piotrgredowski/memes-ranker/internal/hub"
	"github.com/piotrgredowski/memes-ranker/internal/model"
	"github.com/piotrgredowski/memes-ranker/internal/reveal"
	"github.com/piotrgredowski/memes-ranker/internal/session"
)

const participantCookie = "participant_token"
const operatorCookie = "operator_token"

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

type API struct {
	coordinator *session.Coordinator
	engine      *reveal.Engine
	hub         *hub.Hub
	operator    *auth.Operator
	identity    *auth.Identity
	cfg         config.Config
	log         *zap.Logger
}

func NewAPI(
	coordinator *session.Coordinator,
	engine *reveal.Engine,
	h *hub.Hub,
	operator *auth.Operator,
	identity *auth.Identity,
	cfg config.Config,
	log *zap.Logger,
) *API {
	return &API{
		coordinator: coordinator,
		engine:      engine,
		hub:         h,
		operator:    operator,
		identity:    identity,
		cfg:         cfg,
		log:         log,
	}
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// QRCode renders the public join URL as a PNG.
func (a *API) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(a.cfg.PublicURL, qrcode.Medium, 256)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// Me creates or fetches the caller's participant identity and refreshes the
// identity cookie.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	participant, err := a.identity.Ensure(r.Context(), participantToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     participantCookie,
		Value:    participant.Token,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    participant.ID,
		"name":  participant.Name,
		"token": participant.Token,
	})
}

func (a *API) Items(w http.ResponseWriter, r *http.Request) {
	items, err := a.coordinator.ActiveItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (a *API) ActiveSession(w http.ResponseWriter, r *http.Request) {
	active, err := a.coordinator.ActiveSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if active == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, active)
}

type voteRequest struct {
	ItemID uint `json:"item_id"`
	Score  int  `json:"score"`
}

func (a *API) SubmitVote(w http.ResponseWriter, r *http.Request) {
	participant, err := a.identity.Resolve(r.Context(), participantToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if participant == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unknown participant token"})
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}

	vote, err := a.coordinator.RecordVote(r.Context(), participant.ID, req.ItemID, req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// RevealStatus is the public, read-only reveal state used by reconnecting
// viewers to resynchronize.
func (a *API) RevealStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := a.engine.Status(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// RevealedResults returns only the positions revealed so far.
func (a *API) RevealedResults(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := a.engine.Status(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := a.coordinator.RankedResults(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	revealed := make([]model.RankedResult, 0, status.CurrentPosition)
	for _, res := range results {
		if res.Position <= status.CurrentPosition {
			revealed = append(revealed, res)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"results": revealed,
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}

	token, err := a.operator.Login(req.Password)
	if err != nil {
		a.log.Warn("operator login failed")
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     operatorCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   12 * 60 * 60,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token})
}

type createSessionRequest struct {
	Name string `json:"name"`
}

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}

	created, err := a.coordinator.CreateSession(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) StartSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	started, err := a.coordinator.StartSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, started)
}

func (a *API) FinishSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	finished, err := a.coordinator.EndSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finished)
}

func (a *API) SessionStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := a.coordinator.SessionStats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// OperatorStats merges live connection counts with the active session's
// progress, the same snapshot the connection_stats frame carries.
func (a *API) OperatorStats(w http.ResponseWriter, r *http.Request) {
	conns := a.hub.Stats()

	active, err := a.coordinator.ActiveSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if active == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"connections": conns})
		return
	}

	summary, err := a.coordinator.SessionStats(r.Context(), active.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	effective := conns.Participants
	if summary.UniqueParticipants > effective {
		effective = summary.UniqueParticipants
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections":    conns,
		"session":        summary,
		"expected_votes": effective * summary.ItemCount,
	})
}

// PopulateItems scans the configured items directory and replaces the
// active item set with its image files.
func (a *API) PopulateItems(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(a.cfg.ItemsDir)
	if err != nil {
		writeError(w, fmt.Errorf("%w: read items dir: %v", model.ErrValidation, err))
		return
	}

	var items []session.NewItem
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		items = append(items, session.NewItem{
			Filename: entry.Name(),
			Ref:      "/static/items/" + entry.Name(),
		})
	}

	count, err := a.coordinator.PopulateItems(r.Context(), items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items_added": count})
}

// RevealOverview is the operator's view: status plus the full ranking.
func (a *API) RevealOverview(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := a.engine.Status(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := a.coordinator.RankedResults(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"results": results,
	})
}

func (a *API) StartReveal(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := a.engine.StartReveal(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) AdvanceReveal(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, err)
		return
	}
	item, status, err := a.engine.Advance(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"item":   item,
	})
}

func (a *API) RetreatReveal(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := a.engine.Retreat(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) ResetReveal(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := a.engine.Reset(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q", model.ErrValidation, raw)
	}
	return uint(id), nil
}

func participantToken(r *http.Request) string {
	if c, err := r.Cookie(participantCookie); err == nil {
		return c.Value
	}
	return r.Header.Get("X-Participant-Token")
}
