package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/adrianmirek/darterassistant-sub002/internal/middleware"
)

func NewRouter(h *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(logger))

	r.Get("/healthz", h.Healthz)

	requireSession := middleware.RequireSession(func(w http.ResponseWriter, req *http.Request) {
		writeUnauthorized(w, req)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Route("/matches", func(r chi.Router) {
			r.Post("/", h.CreateMatch)
			r.Get("/", h.ListMatches)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetMatch)
				r.Patch("/", h.UpdateMatch)

				r.Post("/lock", h.AcquireLock)
				r.Put("/lock", h.ExtendLock)
				r.Delete("/lock", h.ReleaseLock)
				r.Get("/lock", h.LockStatus)

				r.Post("/legs/throws", h.RecordThrow)
				r.Post("/legs/throws/batch", h.RecordThrowBatch)
				r.Patch("/legs/throws/{throwID}", h.CorrectThrow)
				r.Delete("/legs/throws/{throwID}", h.UndoThrow)

				r.Get("/stats", h.MatchStats)
			})
		})

		r.Post("/import/nakka/{tournamentID}", h.ImportNakkaTournament)
	})

	return r
}
