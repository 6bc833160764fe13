package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/piotrgredowski/memes-ranker/internal/hub"
	"github.com/piotrgredowski/memes-ranker/internal/ws"
)

func SetupRoutes(api *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", api.Healthz)
	r.Get("/qr-code", api.QRCode)
	r.Get("/ws/operator", ws.Handler(api.hub, hub.GroupOperator, api.log))
	r.Get("/ws/participant", ws.Handler(api.hub, hub.GroupParticipant, api.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", api.Me)
		r.Get("/items", api.Items)
		r.Post("/votes", api.SubmitVote)
		r.Get("/sessions/active", api.ActiveSession)
		r.Get("/reveal/{sessionID}/status", api.RevealStatus)
		r.Get("/reveal/{sessionID}/results", api.RevealedResults)

		r.Route("/operator", func(r chi.Router) {
			r.Post("/login", api.Login)

			r.Group(func(r chi.Router) {
				r.Use(api.requireOperator)
				r.Post("/sessions", api.CreateSession)
				r.Post("/sessions/{id}/start", api.StartSession)
				r.Post("/sessions/{id}/finish", api.FinishSession)
				r.Get("/sessions/{id}/stats", api.SessionStats)
				r.Get("/stats", api.OperatorStats)
				r.Post("/items/populate", api.PopulateItems)

				r.Route("/reveal/{sessionID}", func(r chi.Router) {
					r.Get("/", api.RevealOverview)
					r.Post("/start", api.StartReveal)
					r.Post("/next", api.AdvanceReveal)
					r.Post("/previous", api.RetreatReveal)
					r.Post("/reset", api.ResetReveal)
				})
			})
		})
	})

	return r
}
