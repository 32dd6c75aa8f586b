package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the timeclock domain.
type Metrics struct {
	PunchesRecorded   *prometheus.CounterVec
	AnomaliesDetected prometheus.Counter
	StatusCacheHits   prometheus.Counter
	StatusCacheMisses prometheus.Counter
}

// New creates and registers all timeclock metrics.
func New() *Metrics {
	return &Metrics{
		PunchesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_punches_recorded_total",
			Help: "Punch events recorded, by kind and provenance.",
		}, []string{"kind", "via"}),
		AnomaliesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_anomalies_detected_total",
			Help: "Sequence anomalies surfaced by reconciliation after a punch.",
		}),
		StatusCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_status_cache_hits_total",
			Help: "SessionDay reads served from the status cache.",
		}),
		StatusCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_status_cache_misses_total",
			Help: "SessionDay reads recomputed from the event store.",
		}),
	}
}
