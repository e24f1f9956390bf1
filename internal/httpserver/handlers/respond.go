package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, status int, msg string) {
	writeJSON(w, log, status, errorResponse{Error: msg})
}

// writeStoreError maps store failures onto status codes.
func writeStoreError(w http.ResponseWriter, log logger.Logger, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, log, http.StatusNotFound, "bookmark not found")
		return
	}
	log.Error("store operation failed", logger.Error(err))
	writeError(w, log, http.StatusInternalServerError, "internal error")
}

func bookmarkID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
