package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/mw"
)

type (
	Registrar func(r chi.Router, d deps.Deps)

	// Middleware builds a middleware once the deps are known.
	Middleware func(d deps.Deps) func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registry []entry

// Register a registrar with optional group middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAll mounts every registrar, each in its own group. Called once
// from server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		r.Group(func(r chi.Router) {
			for _, m := range e.mws {
				r.Use(m(d))
			}
			e.reg(r, d)
		})
	}
}

// allowedCIDRS restricts a group to the configured client networks.
func allowedCIDRS(d deps.Deps) func(http.Handler) http.Handler {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

// allowedHosts restricts a group to the configured Host headers.
func allowedHosts(d deps.Deps) func(http.Handler) http.Handler {
	return mw.EnforceHost(d.AllowedHosts, d.Logger)
}
