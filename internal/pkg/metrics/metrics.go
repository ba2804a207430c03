package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DocumentTransitions counts successful lifecycle transitions by action
var DocumentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "registryhub",
	Name:      "document_transitions_total",
	Help:      "Successful document lifecycle transitions.",
}, []string{"action"})

// TransitionFailures counts rejected transition attempts
var TransitionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "registryhub",
	Name:      "document_transition_failures_total",
	Help:      "Document transition attempts rejected by the state machine.",
}, []string{"action"})

// ReconciliationRuns observes compare() durations
var ReconciliationRuns = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "registryhub",
	Name:      "reconciliation_duration_seconds",
	Help:      "Duration of verification batch comparisons.",
	Buckets:   prometheus.DefBuckets,
})

// ReconciliationGroups counts compared groups by result status
var ReconciliationGroups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "registryhub",
	Name:      "reconciliation_groups_total",
	Help:      "Reconciliation groups by outcome.",
}, []string{"status"})
