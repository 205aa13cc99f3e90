package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	accessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Total number of permission checks by category and outcome",
		},
		[]string{"category", "decision", "reason"},
	)

	accessTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_transitions_total",
			Help: "Total number of access record lifecycle transitions",
		},
		[]string{"action"},
	)

	templateApplications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_template_applications_total",
			Help: "Per-user outcomes of permission template applications",
		},
		[]string{"status"},
	)

	decisionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_decision_cache_lookups_total",
			Help: "Decision cache lookups by result",
		},
		[]string{"result"},
	)

	expiredBySweep = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "access_expired_by_sweep_total",
			Help: "Access records moved to EXPIRED by the periodic sweep",
		},
	)
)

// DecisionCounter returns the counter of one permission check outcome
func DecisionCounter(category string, allowed bool, reason string) prometheus.Counter {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	return accessDecisions.WithLabelValues(category, decision, reason)
}

// RecordDecision records the outcome of a permission check
func RecordDecision(category string, allowed bool, reason string) {
	DecisionCounter(category, allowed, reason).Inc()
}

// RecordTransition records an access record lifecycle transition
func RecordTransition(action string) {
	accessTransitions.WithLabelValues(action).Inc()
}

// RecordTemplateApplication records one user's outcome in a template batch
func RecordTemplateApplication(status string) {
	templateApplications.WithLabelValues(status).Inc()
}

// RecordCacheLookup records a decision cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	decisionCacheLookups.WithLabelValues(result).Inc()
}

// RecordExpired adds n records expired by the sweep
func RecordExpired(n int) {
	expiredBySweep.Add(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
