package validator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the validation Prometheus metrics.
type Metrics struct {
	// Verdicts counts verdicts by status and by where they came from
	// (fresh check or cache).
	Verdicts      *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	BatchSize     prometheus.Histogram
	StoreErrors   prometheus.Counter
}

// NewMetrics registers the validation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coursescout_verdicts_total",
			Help: "Total URL verdicts by status and source (fresh, cached)",
		}, []string{"status", "source"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursescout_fetch_duration_seconds",
			Help:    "Time to fetch one URL including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursescout_batch_size",
			Help:    "Number of distinct URLs per validation batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500},
		}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "coursescout_store_errors_total",
			Help: "Total verdict cache read or write failures",
		}),
	}
}
