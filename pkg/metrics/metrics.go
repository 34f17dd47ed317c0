package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradegate",
			Name:      "evaluations_total",
			Help:      "Completed evaluations by composite direction and approval",
		},
		[]string{"direction", "approved"},
	)

	RiskRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradegate",
			Subsystem: "risk",
			Name:      "rejections_total",
			Help:      "Risk rejections by failing gate",
		},
		[]string{"gate"},
	)

	CollaboratorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradegate",
			Name:      "collaborator_failures_total",
			Help:      "Collaborator calls (sentiment, prediction, portfolio) that degraded to unavailable",
		},
		[]string{"source"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradegate",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Collaborator cache lookups by source and result",
		},
		[]string{"source", "result"},
	)

	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tradegate",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of a full evaluation",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register adds every collector to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(Evaluations, RiskRejections, CollaboratorFailures, CacheLookups, EvaluationDuration)
	})
}
