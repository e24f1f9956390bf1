package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

// Manager hands out model sessions.
//
// The text session is created once and reused; a failed creation is not
// remembered, so the next call tries again. Image sessions are created
// fresh on every call.
type Manager struct {
	provider Provider
	log      logger.Logger

	mu   sync.Mutex
	text Session

	// progress is the last reported download percentage, -1 when idle.
	progress atomic.Int32

	// watchers receive download progress, including callers waiting
	// on mu behind the download.
	watchMu  sync.Mutex
	watchers map[int]ProgressFunc
	nextID   int
}

func NewManager(provider Provider, log logger.Logger) *Manager {
	m := &Manager{
		provider: provider,
		log:      log,
		watchers: make(map[int]ProgressFunc),
	}
	m.progress.Store(-1)
	return m
}

// Availability probes the text model. Probe errors report Unavailable.
func (m *Manager) Availability(ctx context.Context) Availability {
	return m.probe(ctx, ModalityText)
}

// ImageAvailability probes the multimodal model.
func (m *Manager) ImageAvailability(ctx context.Context) Availability {
	return m.probe(ctx, ModalityImage)
}

func (m *Manager) probe(ctx context.Context, mod Modality) Availability {
	a, err := m.provider.Availability(ctx, mod)
	if err != nil {
		m.log.Warn("model availability check failed",
			logger.String("modality", string(mod)),
			logger.Error(err))
		return Unavailable
	}
	return a
}

// TextSession returns the shared text session, creating it on first use.
// onProgress is only called when the model has to be downloaded, whether
// by this call or by another one it is waiting on.
func (m *Manager) TextSession(ctx context.Context, onProgress ProgressFunc) (Session, error) {
	if onProgress != nil {
		defer m.watch(onProgress)()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.text != nil {
		return m.text, nil
	}

	var progress ProgressFunc
	switch a := m.Availability(ctx); a {
	case Unavailable:
		return nil, ErrModelUnavailable
	case Downloadable, Downloading:
		m.log.Info("text model needs download", logger.String("availability", string(a)))
		progress = m.track()
	}

	s, err := m.provider.Create(ctx, ModalityText, progress)
	m.progress.Store(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to create text session: %w", err)
	}

	m.text = s
	m.log.Info("text session ready")
	return s, nil
}

// ImageSession creates a new multimodal session.
func (m *Manager) ImageSession(ctx context.Context) (Session, error) {
	if m.ImageAvailability(ctx) == Unavailable {
		return nil, ErrMultimodalUnavailable
	}

	s, err := m.provider.Create(ctx, ModalityImage, nil)
	if err != nil {
		// Creation failures surface as ErrMultimodalUnavailable, never ErrModelUnavailable.
		return nil, fmt.Errorf("%w: unable to create a session: %v", ErrMultimodalUnavailable, err)
	}
	return s, nil
}

// Download resolves the text session, pulling the model if needed.
func (m *Manager) Download(ctx context.Context, onProgress ProgressFunc) error {
	_, err := m.TextSession(ctx, onProgress)
	return err
}

// Progress returns the current download percentage and whether a
// download is in progress.
func (m *Manager) Progress() (int, bool) {
	p := m.progress.Load()
	return int(p), p >= 0
}

// watch registers fn for download progress and returns its removal.
func (m *Manager) watch(fn ProgressFunc) func() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.watchMu.Lock()
		defer m.watchMu.Unlock()
		delete(m.watchers, id)
	}
}

// track returns the provider callback of a download. It records the
// percentage and fans it out to every watcher.
func (m *Manager) track() ProgressFunc {
	m.progress.Store(0)
	return func(percent int) {
		percent = min(max(percent, 0), 100)
		m.progress.Store(int32(percent))

		m.watchMu.Lock()
		fns := make([]ProgressFunc, 0, len(m.watchers))
		for _, fn := range m.watchers {
			fns = append(fns, fn)
		}
		m.watchMu.Unlock()

		for _, fn := range fns {
			fn(percent)
		}
	}
}
