package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

type queueResponse struct {
	Queue []int64 `json:"queue"`
	Busy  bool    `json:"busy"`
}

func GetQueue(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := d.Store.Queue(r.Context())
		if err != nil {
			writeStoreError(w, d.Logger, err)
			return
		}
		if ids == nil {
			ids = []int64{}
		}
		writeJSON(w, d.Logger, http.StatusOK, queueResponse{Queue: ids, Busy: d.Queue.Busy()})
	}
}

// Enqueue adds an existing bookmark to the queue.
func Enqueue(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookmarkID(r)
		if !ok {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid bookmark id")
			return
		}
		if _, err := d.Store.Bookmark(r.Context(), id); err != nil {
			writeStoreError(w, d.Logger, err)
			return
		}
		if err := d.Queue.AddJob(r.Context(), id); err != nil {
			writeStoreError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusAccepted, retryResponse{ID: id, Status: "queued"})
	}
}

// Kick asks the queue kicker for an immediate pass.
func Kick(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.KickTrigger <- struct{}{}:
			d.Logger.Info("manual queue kick triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Queue kick triggered\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("queue kick already pending",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Queue kick already pending, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
