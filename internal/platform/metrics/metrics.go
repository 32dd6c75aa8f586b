package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics. Domain packages carry their
// own metrics structs; this one covers cross-cutting HTTP concerns.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
}

// New creates and registers all process-wide Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_http_requests_total",
			Help: "Total HTTP requests served, by route and status class.",
		}, []string{"route", "status"}),
	}
}
