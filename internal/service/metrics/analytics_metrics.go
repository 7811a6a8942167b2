package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	InsightLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "light",
			Subsystem: "insights",
			Name:      "latency_seconds",
			Help:      "Latency of statistics endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	InsightErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "light",
			Subsystem: "insights",
			Name:      "errors_total",
			Help:      "Errors by statistics endpoint",
		},
		[]string{"endpoint"},
	)

	InsightRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "light",
			Subsystem: "insights",
			Name:      "matched_rows",
			Help:      "Rows matching the filters of a statistics request",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(InsightLatency, InsightErrors, InsightRows)
	})
}

// Observe records one request to endpoint that started at start.
func Observe(endpoint string, start time.Time, rows int, err error) {
	InsightLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		InsightErrors.WithLabelValues(endpoint).Inc()
		return
	}
	InsightRows.WithLabelValues(endpoint).Observe(float64(rows))
}
