// Package ollama implements model.Provider against a local Ollama server.
//
// Availability and downloads go through the Ollama API client; generation
// goes through langchaingo.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
)

type Config struct {
	BaseURL     string
	TextModel   string
	VisionModel string

	// System prompts installed when a session is created.
	TextSystemPrompt  string
	ImageSystemPrompt string

	// ProbeTimeout bounds a single model listing.
	ProbeTimeout time.Duration
}

type Provider struct {
	cfg    Config
	client *http.Client
	api    *api.Client
	log    logger.Logger

	mu      sync.Mutex
	pulling map[string]bool
}

// New creates a provider. A nil client uses http.DefaultClient.
func New(cfg Config, client *http.Client, log logger.Logger) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		log.Warn("invalid ollama url, using the local default", logger.String("url", cfg.BaseURL))
		base = &url.URL{Scheme: "http", Host: "localhost:11434"}
		cfg.BaseURL = base.String()
	}

	return &Provider{
		cfg:     cfg,
		client:  client,
		api:     api.NewClient(base, client),
		log:     log,
		pulling: make(map[string]bool),
	}
}

func (p *Provider) modelFor(m model.Modality) string {
	if m == model.ModalityImage {
		return p.cfg.VisionModel
	}
	return p.cfg.TextModel
}

// Availability reports whether the model for m is installed.
// An unreachable server is reported as Unavailable without error.
func (p *Provider) Availability(ctx context.Context, m model.Modality) (model.Availability, error) {
	name := p.modelFor(m)
	if name == "" {
		return model.Unavailable, nil
	}

	p.mu.Lock()
	pulling := p.pulling[name]
	p.mu.Unlock()
	if pulling {
		return model.Downloading, nil
	}

	installed, err := p.installed(ctx)
	if err != nil {
		p.log.Debug("ollama not reachable", logger.String("url", p.cfg.BaseURL), logger.Error(err))
		return model.Unavailable, nil
	}
	if hasModel(installed, name) {
		return model.Available, nil
	}
	return model.Downloadable, nil
}

// Create pulls the model when it is missing and returns a session bound to it.
func (p *Provider) Create(ctx context.Context, m model.Modality, onProgress model.ProgressFunc) (model.Session, error) {
	name := p.modelFor(m)
	if name == "" {
		return nil, fmt.Errorf("%w: no model configured for %s", model.ErrNotSupported, m)
	}

	installed, err := p.installed(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelUnavailable, err)
	}
	if !hasModel(installed, name) {
		if err := p.pull(ctx, name, onProgress); err != nil {
			return nil, err
		}
	}

	llm, err := ollama.New(
		ollama.WithModel(name),
		ollama.WithServerURL(p.cfg.BaseURL),
		ollama.WithHTTPClient(p.client),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init ollama client: %w", err)
	}

	system := p.cfg.TextSystemPrompt
	if m == model.ModalityImage {
		system = p.cfg.ImageSystemPrompt
	}
	p.log.Info("model session created", logger.String("model", name), logger.String("modality", string(m)))
	return &Session{llm: llm, system: system, model: name}, nil
}

func (p *Provider) installed(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	resp, err := p.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	names := make([]string, 0, 2*len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name, m.Model)
	}
	return names, nil
}

// hasModel matches name against installed tags; a bare name matches ":latest".
func hasModel(installed []string, name string) bool {
	for _, n := range installed {
		if n == name || n == name+":latest" {
			return true
		}
	}
	return false
}

func (p *Provider) pull(ctx context.Context, name string, onProgress model.ProgressFunc) error {
	p.mu.Lock()
	p.pulling[name] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pulling, name)
		p.mu.Unlock()
	}()

	p.log.Info("pulling model", logger.String("model", name))

	stream := true
	last := -1
	done := false
	err := p.api.Pull(ctx, &api.PullRequest{Model: name, Stream: &stream}, func(r api.ProgressResponse) error {
		if r.Status == "success" {
			done = true
			if onProgress != nil && last < 100 {
				onProgress(100)
			}
			return nil
		}
		if r.Total > 0 && onProgress != nil {
			percent := int(r.Completed * 100 / r.Total)
			if percent != last {
				last = percent
				onProgress(percent)
			}
		}
		return nil
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return fmt.Errorf("pull %s: %w", name, ctx.Err())
	case err != nil:
		return fmt.Errorf("%w: pull %s: %v", model.ErrModelUnavailable, name, err)
	case !done:
		return fmt.Errorf("pull %s: stream ended before success", name)
	}

	p.log.Info("model pulled", logger.String("model", name))
	return nil
}
