package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/utils"
)

const (
	DefaultMeasurementEndpoint = "https://www.google-analytics.com/mp/collect"

	sessionTTL         = 30 * time.Minute
	engagementTimeMsec = 100
)

type MeasurementConfig struct {
	Endpoint      string
	MeasurementID string
	APISecret     string

	// ClientID identifies this installation across restarts.
	ClientID string

	// Buffer is the number of events held while the sender is busy.
	// Events beyond it are dropped.
	Buffer int

	// RatePerSecond and Burst bound outbound requests.
	RatePerSecond float64
	Burst         int

	// FlushTimeout bounds how long Close waits for queued events.
	FlushTimeout time.Duration
}

// MeasurementProtocol posts events to a GA4 Measurement Protocol endpoint
// from a background goroutine.
type MeasurementProtocol struct {
	cfg     MeasurementConfig
	url     string
	client  *http.Client
	log     logger.Logger
	limiter *rate.Limiter
	now     func() time.Time

	events chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	sessionID   string
	sessionSeen time.Time

	closeMu sync.RWMutex
	closed  bool
}

// NewMeasurementProtocol starts the sender. Call Close to flush and stop it.
func NewMeasurementProtocol(cfg MeasurementConfig, client *http.Client, log logger.Logger) (*MeasurementProtocol, error) {
	if cfg.MeasurementID == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("measurement id and api secret are required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultMeasurementEndpoint
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 5 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid analytics endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("measurement_id", cfg.MeasurementID)
	q.Set("api_secret", cfg.APISecret)
	endpoint.RawQuery = q.Encode()

	ctx, cancel := context.WithCancel(context.Background())
	m := &MeasurementProtocol{
		cfg:     cfg,
		url:     endpoint.String(),
		client:  client,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		now:     time.Now,
		events:  make(chan Event, cfg.Buffer),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go m.run()
	return m, nil
}

// Track queues e for delivery, dropping it when the buffer is full or
// the sink is closed.
func (m *MeasurementProtocol) Track(e Event) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.events <- e:
	default:
		m.log.Debug("analytics buffer full, dropping event", logger.String("event", e.Name))
	}
}

// Close stops accepting events and waits up to FlushTimeout for queued
// ones to be sent. Whatever is left after that is dropped.
func (m *MeasurementProtocol) Close() error {
	m.closeMu.Lock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	m.closeMu.Unlock()

	timer := time.NewTimer(m.cfg.FlushTimeout)
	defer timer.Stop()

	select {
	case <-m.done:
	case <-timer.C:
		m.cancel()
		<-m.done
		m.log.Warn("analytics flush timed out, queued events dropped",
			logger.Duration("flush_timeout", m.cfg.FlushTimeout))
	}
	m.cancel()
	return nil
}

func (m *MeasurementProtocol) run() {
	defer close(m.done)
	for e := range m.events {
		if err := m.limiter.Wait(m.ctx); err != nil {
			continue
		}
		if err := m.send(e); err != nil {
			m.log.Warn("failed to send analytics event",
				logger.String("event", e.Name),
				logger.Error(err))
		}
	}
}

type mpPayload struct {
	ClientID string    `json:"client_id"`
	Events   []mpEvent `json:"events"`
}

type mpEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

func (m *MeasurementProtocol) send(e Event) error {
	params := e.Params()
	params["session_id"] = m.session()
	params["engagement_time_msec"] = engagementTimeMsec

	body, err := json.Marshal(mpPayload{
		ClientID: m.cfg.ClientID,
		Events:   []mpEvent{{Name: e.Name, Params: params}},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// session returns the current session id. A session expires after 30
// minutes without events and each event extends it.
func (m *MeasurementProtocol) session() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.sessionID == "" || now.Sub(m.sessionSeen) >= sessionTTL {
		m.sessionID = strconv.FormatInt(now.UnixMilli(), 10)
	}
	m.sessionSeen = now
	return m.sessionID
}
