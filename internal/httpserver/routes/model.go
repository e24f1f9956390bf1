package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/handlers"
)

func init() { Register(registerModel, allowedCIDRS, allowedHosts) }

func registerModel(r chi.Router, d deps.Deps) {
	r.Get("/api/model/availability", handlers.ModelAvailability(d))
	r.Post("/api/model/download", handlers.ModelDownload(d))
}
