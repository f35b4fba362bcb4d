package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the API routes. CORS is open because the server only
// binds to localhost for a GUI host running on the same machine.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/voices", h.Voices)
		r.Post("/batches", h.StartBatch)
		r.Route("/batches/current", func(r chi.Router) {
			r.Get("/", h.CurrentBatch)
			r.Get("/events", h.Events)
			r.Post("/cancel", h.CancelBatch)
		})
	})

	return r
}
