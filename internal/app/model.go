package app

import (
	"net/http"

	"github.com/MrSnakeDoc/mindmark/internal/config"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
	"github.com/MrSnakeDoc/mindmark/internal/model/ollama"
	"github.com/MrSnakeDoc/mindmark/internal/summarize"
)

// NewModelManager builds the session manager over the configured Ollama server.
func NewModelManager(cfg *config.Config, log logger.Logger) *model.Manager {
	provider := ollama.New(ollama.Config{
		BaseURL:          cfg.OllamaURL,
		TextModel:        cfg.TextModel,
		VisionModel:      cfg.VisionModel,
		TextSystemPrompt: summarize.TextSystemPrompt,
		ProbeTimeout:     cfg.ProbeTimeout,
	}, &http.Client{}, log.With(logger.String("component", "ollama")))

	return model.NewManager(provider, log)
}
