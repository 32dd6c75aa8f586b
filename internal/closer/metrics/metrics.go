package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the end-of-day closer.
type Metrics struct {
	RunsTotal          prometheus.Counter
	SessionsAutoClosed prometheus.Counter
	UserErrors         prometheus.Counter
	RunDuration        prometheus.Histogram
}

// New creates and registers all closer metrics.
func New() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_closer_runs_total",
			Help: "End-of-day closer runs started.",
		}),
		SessionsAutoClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_closer_sessions_closed_total",
			Help: "Sessions terminated with synthetic events.",
		}),
		UserErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_closer_user_errors_total",
			Help: "Per-user closure failures isolated from the batch.",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "punchcard_closer_run_duration_seconds",
			Help:    "Wall time of a full closer run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
