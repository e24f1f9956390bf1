package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/handlers"
)

func init() {
	Register(registerHealthz)
	Register(registerProbes, allowedCIDRS)
}

func registerHealthz(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
}

func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/readyz", handlers.Readyz(d))
	if d.Metrics != nil {
		r.Get("/metrics", handlers.Metrics(d))
	}
}
