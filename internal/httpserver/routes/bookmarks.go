package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/mw"
)

func init() { Register(registerBookmarks, allowedCIDRS, allowedHosts) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	createLimit := mw.RateLimit(mw.RateLimitConfig{
		Burst:      d.CreateBurst,
		PerMinute:  d.CreatePerMin,
		TrustProxy: d.TrustProxy,
	})

	r.Get("/api/bookmarks", handlers.ListBookmarks(d))
	r.With(createLimit).Post("/api/bookmarks", handlers.CreateBookmark(d))
	r.Get("/api/bookmarks/{id}", handlers.GetBookmark(d))
	r.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
	r.Post("/api/bookmarks/{id}/retry", handlers.RetryBookmark(d))
}
