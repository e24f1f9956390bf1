package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus records events as counters and a duration histogram.
type Prometheus struct {
	Events        *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	ContentLength *prometheus.HistogramVec
}

// NewPrometheus registers the summarization metrics on reg.
// Pass prometheus.DefaultRegisterer to expose them via promhttp.Handler.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mindmark_summarization_events_total",
			Help: "Summarization lifecycle events by event name and bookmark type",
		}, []string{"event", "bookmark_type"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mindmark_summarization_duration_seconds",
			Help:    "Time from claim to completed summary",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"bookmark_type"}),

		ContentLength: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mindmark_summarization_content_chars",
			Help:    "Raw content length of summarized bookmarks",
			Buckets: prometheus.ExponentialBuckets(100, 4, 7),
		}, []string{"bookmark_type"}),
	}
}

func (p *Prometheus) Track(e Event) {
	p.Events.WithLabelValues(e.Name, e.BookmarkType).Inc()
	if e.Name == EventCompleted {
		p.Duration.WithLabelValues(e.BookmarkType).Observe(e.Duration.Seconds())
		p.ContentLength.WithLabelValues(e.BookmarkType).Observe(float64(e.ContentLength))
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
