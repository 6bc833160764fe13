// Package reveal owns the results-reveal cursor: an operator-paced walk
// through a finished session's ranking, one position at a time, resumable
// after reconnects and restarts.
package reveal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/piotrgredowski/memes-ranker/internal/model"
	"github.com/piotrgredowski/memes-ranker/internal/repo"
)

// Results supplies the ranked ordering the cursor walks. The session
// coordinator implements it.
type Results interface {
	RankedResults(ctx context.Context, sessionID uint) ([]model.RankedResult, error)
}

// Listener receives post-commit reveal notifications. item is nil when a
// position is hidden again (retreat/reset); there is nothing new to show.
type Listener interface {
	RevealUpdated(ctx context.Context, status model.RevealStatus, item *model.RevealedItem)
}

type Engine struct {
	store     repo.Store
	results   Results
	log       *zap.Logger
	listeners []Listener
}

func NewEngine(store repo.Store, results Results, log *zap.Logger) *Engine {
	return &Engine{store: store, results: results, log: log}
}

// AddListener registers a post-commit observer. Wire listeners at startup.
func (e *Engine) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

// StartReveal creates or resets the cursor for a finished session.
// Revealing a still-active session is refused: reveal and live voting are
// mutually exclusive.
func (e *Engine) StartReveal(ctx context.Context, sessionID uint) (model.RevealStatus, error) {
	session, err := e.store.SessionByID(ctx, sessionID)
	if err != nil {
		return model.RevealStatus{}, err
	}
	if session.Active {
		return model.RevealStatus{}, fmt.Errorf("%w: session %d is still active", model.ErrInvalidState, sessionID)
	}

	if err := e.store.UpsertRevealCursor(ctx, sessionID, 0, false); err != nil {
		return model.RevealStatus{}, err
	}

	e.log.Info("reveal started", zap.Uint("session_id", sessionID))
	return e.Status(ctx, sessionID)
}

// Advance reveals the next position and returns the newly revealed row with
// detailed stats. Fails once every position is shown.
func (e *Engine) Advance(ctx context.Context, sessionID uint) (*model.RevealedItem, model.RevealStatus, error) {
	results, err := e.results.RankedResults(ctx, sessionID)
	if err != nil {
		return nil, model.RevealStatus{}, err
	}
	position, err := e.currentPosition(ctx, sessionID)
	if err != nil {
		return nil, model.RevealStatus{}, err
	}

	total := len(results)
	if position >= total {
		return nil, model.RevealStatus{}, model.ErrRevealExhausted
	}

	newPosition := position + 1
	complete := newPosition >= total
	if err := e.store.UpsertRevealCursor(ctx, sessionID, newPosition, complete); err != nil {
		return nil, model.RevealStatus{}, err
	}

	var revealed *model.RevealedItem
	for _, r := range results {
		if r.Position == newPosition {
			scores, err := e.store.ItemScores(ctx, sessionID, r.ItemID)
			if err != nil {
				return nil, model.RevealStatus{}, err
			}
			revealed = &model.RevealedItem{RankedResult: r, StdDev: model.SampleStdDev(scores)}
			break
		}
	}

	status := model.RevealStatus{
		SessionID:       sessionID,
		CurrentPosition: newPosition,
		IsComplete:      complete,
		TotalPositions:  total,
	}
	for _, l := range e.listeners {
		l.RevealUpdated(ctx, status, revealed)
	}
	e.log.Info("reveal advanced",
		zap.Uint("session_id", sessionID),
		zap.Int("position", newPosition),
		zap.Bool("complete", complete))
	return revealed, status, nil
}

// Retreat hides the most recently revealed position. Only the new position
// is broadcast; nothing new is shown.
func (e *Engine) Retreat(ctx context.Context, sessionID uint) (model.RevealStatus, error) {
	position, err := e.currentPosition(ctx, sessionID)
	if err != nil {
		return model.RevealStatus{}, err
	}
	if position <= 0 {
		return model.RevealStatus{}, fmt.Errorf("%w: already at position 0", model.ErrInvalidState)
	}

	newPosition := position - 1
	if err := e.store.UpsertRevealCursor(ctx, sessionID, newPosition, false); err != nil {
		return model.RevealStatus{}, err
	}

	status, err := e.Status(ctx, sessionID)
	if err != nil {
		return model.RevealStatus{}, err
	}
	for _, l := range e.listeners {
		l.RevealUpdated(ctx, status, nil)
	}
	return status, nil
}

// Reset forces the cursor back to position 0 regardless of prior state.
func (e *Engine) Reset(ctx context.Context, sessionID uint) (model.RevealStatus, error) {
	if err := e.store.UpsertRevealCursor(ctx, sessionID, 0, false); err != nil {
		return model.RevealStatus{}, err
	}

	status, err := e.Status(ctx, sessionID)
	if err != nil {
		return model.RevealStatus{}, err
	}
	for _, l := range e.listeners {
		l.RevealUpdated(ctx, status, nil)
	}
	e.log.Info("reveal reset", zap.Uint("session_id", sessionID))
	return status, nil
}

// Status is read-only; it never creates a cursor row. A session with no
// cursor reports position 0, not complete.
func (e *Engine) Status(ctx context.Context, sessionID uint) (model.RevealStatus, error) {
	if _, err := e.store.SessionByID(ctx, sessionID); err != nil {
		return model.RevealStatus{}, err
	}
	results, err := e.results.RankedResults(ctx, sessionID)
	if err != nil {
		return model.RevealStatus{}, err
	}

	status := model.RevealStatus{SessionID: sessionID, TotalPositions: len(results)}
	cursor, err := e.store.RevealCursor(ctx, sessionID)
	if err != nil {
		return model.RevealStatus{}, err
	}
	if cursor != nil {
		status.CurrentPosition = cursor.CurrentPosition
		status.IsComplete = cursor.IsComplete
	}
	return status, nil
}

func (e *Engine) currentPosition(ctx context.Context, sessionID uint) (int, error) {
	cursor, err := e.store.RevealCursor(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if cursor == nil {
		return 0, nil
	}
	return cursor.CurrentPosition, nil
}
