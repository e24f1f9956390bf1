// Package telemetry records summarization lifecycle events.
//
// Sinks must not block the caller: the queue processor calls Track inline
// between model calls.
package telemetry

import "time"

const (
	EventStarted   = "summarization_started"
	EventCompleted = "summarization_completed"
	EventFailed    = "summarization_failed"
)

// Event is one lifecycle event for a bookmark.
type Event struct {
	Name         string
	BookmarkType string

	// Completed only.
	Duration      time.Duration
	ContentLength int

	// Failed only.
	ErrorType string
}

// Params returns the event parameters in analytics wire form.
func (e Event) Params() map[string]any {
	p := map[string]any{"bookmark_type": e.BookmarkType}
	switch e.Name {
	case EventCompleted:
		p["duration_ms"] = e.Duration.Milliseconds()
		p["content_length"] = e.ContentLength
	case EventFailed:
		p["error_type"] = e.ErrorType
	}
	return p
}

type Sink interface {
	Track(e Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Track(Event) {}

// Multi fans each event out to every sink in order.
type Multi []Sink

func (m Multi) Track(e Event) {
	for _, s := range m {
		s.Track(e)
	}
}
