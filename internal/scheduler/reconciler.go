package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

// ReconcileStore is the subset of the store the reconciler reads.
type ReconcileStore interface {
	Bookmarks(ctx context.Context) ([]domain.Bookmark, error)
	Queue(ctx context.Context) ([]int64, error)
}

// Enqueuer puts a bookmark id back in the queue.
type Enqueuer interface {
	AddJob(ctx context.Context, id int64) error
}

// Reconciler re-enqueues bookmarks that are waiting for a summary but
// whose id never made it into the queue.
type Reconciler struct {
	store    ReconcileStore
	queue    Enqueuer
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewReconciler creates a new reconciler
func NewReconciler(
	st ReconcileStore,
	queue Enqueuer,
	log logger.Logger,
	interval time.Duration,
) *Reconciler {
	return &Reconciler{
		store:    st,
		queue:    queue,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a reconciliation immediately, then on every tick
func (r *Reconciler) Start(ctx context.Context) {
	if _, err := r.Reconcile(ctx); err != nil {
		r.logger.Warn("initial reconciliation failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := r.Reconcile(ctx); err != nil {
					r.logger.Error("reconciliation failed",
						logger.Error(err))
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

// Reconcile enqueues every pending or downloading bookmark missing from
// the queue and returns how many were enqueued.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	bookmarks, err := r.store.Bookmarks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	queued, err := r.store.Queue(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read queue: %w", err)
	}

	enqueued := 0
	for _, b := range bookmarks {
		if b.Status != domain.StatusPending && b.Status != domain.StatusDownloading {
			continue
		}
		if slices.Contains(queued, b.ID) || !b.HasContent() {
			continue
		}

		if err := r.queue.AddJob(ctx, b.ID); err != nil {
			r.logger.Warn("failed to re-enqueue orphaned bookmark",
				logger.Int64("bookmark_id", b.ID),
				logger.Error(err))
			continue
		}

		r.logger.Info("re-enqueued orphaned bookmark",
			logger.Int64("bookmark_id", b.ID),
			logger.String("status", string(b.Status)))
		enqueued++
	}

	if enqueued == 0 {
		r.logger.Debug("no orphaned bookmarks to reconcile")
	}
	return enqueued, nil
}
