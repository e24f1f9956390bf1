package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Store string `json:"store"`
	Model string `json:"model"`
}

// Readyz is ready once the store answers. Model availability is reported
// but never blocks readiness, since jobs fail cleanly without it.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := readyzResponse{Ready: true, Store: "ok", Model: string(d.Model.Availability(ctx))}
		status := http.StatusOK
		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("store ping failed", logger.Error(err))
			resp.Ready = false
			resp.Store = "unreachable"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, d.Logger, status, resp)
	}
}
