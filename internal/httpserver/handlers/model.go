package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

type availabilityResponse struct {
	Text        string `json:"text"`
	Image       string `json:"image"`
	Downloading bool   `json:"downloading"`
	Progress    *int   `json:"progress,omitempty"`
}

func ModelAvailability(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Logger, http.StatusOK, availability(r, d))
	}
}

// ModelDownload starts pulling the text model in the background and
// answers immediately. Progress is visible through ModelAvailability.
func ModelDownload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, downloading := d.Model.Progress(); !downloading {
			ctx := d.BaseCtx
			if ctx == nil {
				ctx = context.Background()
			}
			go func() {
				if err := d.Model.Download(ctx, nil); err != nil {
					d.Logger.Error("model download failed", logger.Error(err))
					return
				}
				d.Logger.Info("model ready")
			}()
			d.Logger.Info("model download requested",
				logger.String("remote_ip", r.RemoteAddr))
		}
		writeJSON(w, d.Logger, http.StatusAccepted, availability(r, d))
	}
}

func availability(r *http.Request, d deps.Deps) availabilityResponse {
	resp := availabilityResponse{
		Text:  string(d.Model.Availability(r.Context())),
		Image: string(d.Model.ImageAvailability(r.Context())),
	}
	if p, ok := d.Model.Progress(); ok {
		resp.Downloading = true
		resp.Progress = &p
	}
	return resp
}
