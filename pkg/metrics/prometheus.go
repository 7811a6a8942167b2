package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	actions       *prometheus.CounterVec
	scrapes       *prometheus.CounterVec
	scrapeLatency prometheus.Histogram
	rowsSkipped   *prometheus.CounterVec
	jobs          *prometheus.CounterVec
	published     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastQuote     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// New returns the process-wide recorder registered on the default registry.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry registers a fresh set of collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		actions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "light_action_decisions_total",
				Help: "Action counter decisions by counter and outcome (allowed, rejected, fail_open)",
			},
			[]string{"counter", "outcome"},
		),
		scrapes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "light_quote_scrapes_total",
				Help: "Quote page scrapes by status",
			},
			[]string{"status"},
		),
		scrapeLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "light_quote_scrape_duration_seconds",
				Help:    "Duration of quote page scrapes",
				Buckets: []float64{.1, .25, .5, 1, 2, 5, 10},
			},
		),
		rowsSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "light_loader_rows_skipped_total",
				Help: "Malformed rows skipped while loading data files",
			},
			[]string{"source"},
		),
		jobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "light_jobs_total",
				Help: "Background jobs by type and status",
			},
			[]string{"type", "status"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "light_events_published_total",
				Help: "Events written to the message bus",
			},
			[]string{"topic", "status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "light_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastQuote: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "light_quote_last",
				Help: "Last scraped quote field for a symbol",
			},
			[]string{"symbol", "field"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "light_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAction(counter, outcome string) {
	r.actions.WithLabelValues(counter, outcome).Inc()
}

func (r *Recorder) RecordScrape(ok bool, seconds float64) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.scrapes.WithLabelValues(status).Inc()
	r.scrapeLatency.Observe(seconds)
}

func (r *Recorder) RecordRowsSkipped(source string, n int) {
	if n > 0 {
		r.rowsSkipped.WithLabelValues(source).Add(float64(n))
	}
}

func (r *Recorder) RecordJob(jobType, status string) {
	r.jobs.WithLabelValues(jobType, status).Inc()
}

func (r *Recorder) RecordPublish(topic string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.published.WithLabelValues(topic, status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordQuote(symbol, field string, value float64) {
	r.lastQuote.WithLabelValues(symbol, field).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
