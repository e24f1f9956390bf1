package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/handlers"
)

func init() { Register(registerQueue, allowedCIDRS, allowedHosts) }

func registerQueue(r chi.Router, d deps.Deps) {
	r.Get("/api/queue", handlers.GetQueue(d))
	r.Post("/api/queue/kick", handlers.Kick(d))
	r.Post("/api/queue/{id}", handlers.Enqueue(d))
}
