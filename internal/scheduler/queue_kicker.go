package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

// Kicker is anything that can be asked to run a queue pass.
type Kicker interface {
	Kick()
}

// QueueKicker periodically nudges the queue processor so that jobs left
// behind by a lost trigger are eventually picked up.
type QueueKicker struct {
	kicker        Kicker
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewQueueKicker creates a new queue kicker
func NewQueueKicker(
	kicker Kicker,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *QueueKicker {
	return &QueueKicker{
		kicker:        kicker,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start kicks once immediately, then on every tick and manual trigger
func (qk *QueueKicker) Start(ctx context.Context) {
	qk.kicker.Kick()

	ticker := time.NewTicker(qk.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				qk.logger.Debug("periodic queue kick")
				qk.kicker.Kick()
			case <-qk.manualTrigger:
				qk.logger.Info("manual queue kick triggered")
				qk.kicker.Kick()
			case <-qk.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the kicker
func (qk *QueueKicker) Stop() {
	close(qk.stopCh)
}
