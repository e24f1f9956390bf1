// Package queue drains the persistent job queue one bookmark at a time.
//
// A single in-memory flag guarantees at most one pass is summarizing at
// any moment. Every trigger (startup, kicks, new jobs, retries and the
// processor itself) just schedules a pass; a pass that finds the flag
// taken or the queue empty returns immediately.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
	"github.com/MrSnakeDoc/mindmark/internal/store"
	"github.com/MrSnakeDoc/mindmark/internal/telemetry"
)

const DefaultReprocessDelay = 100 * time.Millisecond

// Summaries written to the bookmark for each outcome.
const (
	SummaryQueued           = "Queued for summarization"
	SummaryNoContent        = "No content to summarize"
	SummaryFailed           = "Failed to generate summary"
	SummaryModelUnavailable = "❌ AI model is not available. Start the Ollama server and make sure the configured model can be pulled, then retry."

	progressFormat = "⏳ Downloading AI model: %d%%... (first time setup)"
)

var (
	// ErrMissingContent marks a queued bookmark with nothing to summarize.
	ErrMissingContent = errors.New("no content to summarize")

	// ErrNoContentForRetry is returned by RetryJob once the raw content is gone.
	ErrNoContentForRetry = errors.New("no content available for retry, save the page again")
)

// Store is the persistence the processor needs.
type Store interface {
	Bookmark(ctx context.Context, id int64) (domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, id int64, mutate func(*domain.Bookmark)) (domain.Bookmark, error)
	Queue(ctx context.Context) ([]int64, error)
	AddToQueue(ctx context.Context, id int64) error
	RemoveFromQueue(ctx context.Context, id int64) ([]int64, error)
}

// Strategies summarize each job variant.
type Strategies interface {
	Text(ctx context.Context, job domain.TextJob, onProgress model.ProgressFunc) (domain.Result, error)
	Screenshot(ctx context.Context, job domain.ScreenshotJob, onProgress model.ProgressFunc) (domain.Result, error)
}

type Options struct {
	// ReprocessDelay separates a finished pass from the next one.
	ReprocessDelay time.Duration
	Scheduler      Scheduler
	Sink           telemetry.Sink
}

type Processor struct {
	store      Store
	strategies Strategies
	log        logger.Logger
	sched      Scheduler
	sink       telemetry.Sink
	delay      time.Duration
	now        func() time.Time

	processing atomic.Bool

	// pending is set by every pass before it tries the flag, so a holder
	// releasing on an empty read knows another trigger arrived meanwhile.
	pending atomic.Bool

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	passes  sync.WaitGroup
}

func NewProcessor(st Store, strategies Strategies, opts Options, log logger.Logger) *Processor {
	if opts.ReprocessDelay <= 0 {
		opts.ReprocessDelay = DefaultReprocessDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Sink == nil {
		opts.Sink = telemetry.Nop{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		store:      st,
		strategies: strategies,
		log:        log,
		sched:      opts.Scheduler,
		sink:       opts.Sink,
		delay:      opts.ReprocessDelay,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start binds the processor to ctx and schedules the startup pass, which
// resumes whatever was left in the queue by a previous run.
func (p *Processor) Start(ctx context.Context) {
	p.mu.Lock()
	p.cancel()
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.log.Info("queue processor started", logger.Duration("reprocess_delay", p.delay))
	p.Kick()
}

// Stop prevents new passes and waits for scheduled ones to return.
// An in-flight summarization sees its context cancelled.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.cancel()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.passes.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("queue processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kick schedules a pass right away.
func (p *Processor) Kick() {
	p.schedule(0)
}

// Busy reports whether a pass currently holds the processing flag.
func (p *Processor) Busy() bool {
	return p.processing.Load()
}

// AddJob enqueues id and triggers processing.
func (p *Processor) AddJob(ctx context.Context, id int64) error {
	if err := p.store.AddToQueue(ctx, id); err != nil {
		return fmt.Errorf("failed to enqueue bookmark %d: %w", id, err)
	}
	p.Kick()
	return nil
}

// RetryJob puts a failed bookmark back in the queue. It is refused once
// the raw content has been cleared.
func (p *Processor) RetryJob(ctx context.Context, id int64) error {
	if err := PrepareRetry(ctx, p.store, id); err != nil {
		return err
	}
	p.Kick()
	return nil
}

// PrepareRetry resets a bookmark to pending and appends it to the queue
// without running a pass. Processes that do not own a Processor use it
// and leave the pass to the server's next kick.
func PrepareRetry(ctx context.Context, st Store, id int64) error {
	b, err := st.Bookmark(ctx, id)
	if err != nil {
		return err
	}
	if !b.HasContent() {
		return ErrNoContentForRetry
	}

	if _, err := st.UpdateBookmark(ctx, id, func(bm *domain.Bookmark) {
		bm.Status = domain.StatusPending
		bm.Summary = domain.StringPtr(SummaryQueued)
	}); err != nil {
		return err
	}
	if err := st.AddToQueue(ctx, id); err != nil {
		return fmt.Errorf("failed to enqueue bookmark %d: %w", id, err)
	}
	return nil
}

func (p *Processor) schedule(d time.Duration) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.passes.Add(1)
	p.mu.Unlock()

	run := func() {
		defer p.passes.Done()
		p.pass()
	}
	if d <= 0 {
		p.sched.Go(run)
		return
	}
	p.sched.AfterFunc(d, run)
}

func (p *Processor) context() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}

// pass processes at most one job.
func (p *Processor) pass() {
	ctx := p.context()
	if ctx.Err() != nil {
		return
	}
	p.pending.Store(true)
	if !p.processing.CompareAndSwap(false, true) {
		return
	}
	p.pending.Store(false)

	queue, err := p.store.Queue(ctx)
	if err != nil {
		p.release()
		p.log.Error("failed to read queue", logger.Error(err))
		return
	}
	if len(queue) == 0 {
		p.release()
		return
	}

	immediate := p.process(ctx, queue[0])
	p.processing.Store(false)

	if immediate {
		p.schedule(0)
		return
	}

	remaining, err := p.store.Queue(ctx)
	if err != nil {
		p.log.Error("failed to read queue", logger.Error(err))
		return
	}
	if len(remaining) > 0 {
		p.schedule(p.delay)
	}
}

// release drops the flag without processing and reruns the pass when
// another trigger lost the race for it.
func (p *Processor) release() {
	p.processing.Store(false)
	if p.pending.Swap(false) {
		p.schedule(0)
	}
}

// process runs the job for id. It reports whether the job was skipped
// without summarization, in which case the next pass runs immediately.
func (p *Processor) process(ctx context.Context, id int64) bool {
	log := p.log.With(logger.Int64("bookmark_id", id))

	b, err := p.store.Bookmark(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		log.Error("queued bookmark not found, dropping job")
		p.dequeue(ctx, log, id)
		return true
	}
	if err != nil {
		log.Error("failed to load queued bookmark", logger.Error(err))
		p.fail(ctx, log, domain.Bookmark{ID: id}, err)
		return false
	}

	if !b.HasContent() {
		log.Error("queued bookmark has no content", logger.Error(ErrMissingContent))
		p.writeFailure(ctx, log, id, ErrMissingContent)
		p.dequeue(ctx, log, id)
		return true
	}

	start := p.now()
	kind := b.Kind()
	p.sink.Track(telemetry.Event{Name: telemetry.EventStarted, BookmarkType: kind})
	log.Info("summarization started", logger.String("bookmark_type", kind))

	res, err := p.summarize(ctx, &b)
	if err != nil && ctx.Err() != nil {
		// Shutdown: the job stays at the head and runs again on restart.
		log.Warn("summarization interrupted, job left queued", logger.Error(err))
		return false
	}
	if err != nil {
		p.fail(ctx, log, b, err)
		return false
	}

	elapsed := p.now().Sub(start)
	p.sink.Track(telemetry.Event{
		Name:          telemetry.EventCompleted,
		BookmarkType:  kind,
		Duration:      elapsed,
		ContentLength: utf8.RuneCountInString(b.Content()),
	})

	_, err = p.store.UpdateBookmark(ctx, id, func(bm *domain.Bookmark) {
		bm.Summary = domain.StringPtr(res.Summary)
		bm.Type = res.Type
		bm.Tags = res.Tags
		bm.RawContent = nil
		bm.Status = domain.StatusComplete
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warn("bookmark deleted while summarizing, discarding result")
	case err != nil:
		log.Error("failed to save summary", logger.Error(err))
		p.fail(ctx, log, b, err)
		return false
	default:
		log.Info("summarization completed",
			logger.String("method", string(res.Method)),
			logger.String("type", res.Type),
			logger.Duration("duration", elapsed))
	}

	p.dequeue(ctx, log, id)
	return false
}

func (p *Processor) summarize(ctx context.Context, b *domain.Bookmark) (domain.Result, error) {
	progress := p.progressUpdater(ctx, b.ID)

	switch job := domain.NewJob(b).(type) {
	case domain.TextJob:
		return p.strategies.Text(ctx, job, progress)
	case domain.ScreenshotJob:
		return p.strategies.Screenshot(ctx, job, progress)
	default:
		return domain.Result{}, fmt.Errorf("unknown job type %T", job)
	}
}

// progressUpdater mirrors model download progress onto the bookmark.
// Writes are best effort.
func (p *Processor) progressUpdater(ctx context.Context, id int64) model.ProgressFunc {
	last := -1
	return func(percent int) {
		if percent == last {
			return
		}
		last = percent

		_, err := p.store.UpdateBookmark(ctx, id, func(b *domain.Bookmark) {
			b.Status = domain.StatusDownloading
			b.Summary = domain.StringPtr(fmt.Sprintf(progressFormat, percent))
		})
		if err != nil {
			p.log.Warn("failed to update download progress",
				logger.Int64("bookmark_id", id),
				logger.Int("percent", percent),
				logger.Error(err))
		}
	}
}

// fail records a failed summarization and drops the job regardless of
// whether the failure could be persisted.
func (p *Processor) fail(ctx context.Context, log logger.Logger, b domain.Bookmark, cause error) {
	log.Error("summarization failed", logger.Error(cause))
	p.sink.Track(telemetry.Event{
		Name:         telemetry.EventFailed,
		BookmarkType: b.Kind(),
		ErrorType:    cause.Error(),
	})

	p.writeFailure(ctx, log, b.ID, cause)
	p.dequeue(ctx, log, b.ID)
}

// writeFailure marks the bookmark failed. The raw content is kept for retry.
func (p *Processor) writeFailure(ctx context.Context, log logger.Logger, id int64, cause error) {
	summary := failureSummary(cause)
	_, err := p.store.UpdateBookmark(ctx, id, func(b *domain.Bookmark) {
		b.Status = domain.StatusFailed
		b.Summary = domain.StringPtr(summary)
	})
	if err != nil {
		log.Error("failed to mark bookmark as failed", logger.Error(err))
	}
}

func (p *Processor) dequeue(ctx context.Context, log logger.Logger, id int64) {
	if _, err := p.store.RemoveFromQueue(ctx, id); err != nil {
		log.Error("failed to remove job from queue", logger.Error(err))
	}
}

func failureSummary(err error) string {
	switch {
	case errors.Is(err, model.ErrModelUnavailable):
		return SummaryModelUnavailable
	case errors.Is(err, ErrMissingContent):
		return SummaryNoContent
	default:
		return SummaryFailed
	}
}
