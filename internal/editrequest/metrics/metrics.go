package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the edit-request processor.
type Metrics struct {
	Submitted        prometheus.Counter
	SubmitConflicts  prometheus.Counter
	Decided          *prometheus.CounterVec
	DecisionFailures prometheus.Counter
}

// New creates and registers all edit-request metrics.
func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_edit_requests_submitted_total",
			Help: "Edit requests accepted as pending.",
		}),
		SubmitConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_edit_requests_submit_conflicts_total",
			Help: "Submissions rejected because a pending request already covers the target.",
		}),
		Decided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_edit_requests_decided_total",
			Help: "Edit requests moved to a terminal state.",
		}, []string{"decision"}),
		DecisionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_edit_requests_decision_failures_total",
			Help: "Decisions that failed before reaching a terminal state.",
		}),
	}
}
