package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
)

// Metrics serves the prometheus registry.
func Metrics(d deps.Deps) http.HandlerFunc {
	return d.Metrics.ServeHTTP
}
