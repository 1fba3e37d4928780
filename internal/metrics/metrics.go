// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prepa"

var (
	// SessionsStarted counts sessions that reached in_progress.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "sessions_started_total",
		Help:      "Exam sessions that loaded their questions.",
	})

	// SessionsCompleted counts completed sessions by finish reason.
	SessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "sessions_completed_total",
		Help:      "Exam sessions completed, by finish reason.",
	}, []string{"reason"})

	// SessionsAbandoned counts sessions disposed before completion.
	SessionsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "sessions_abandoned_total",
		Help:      "Exam sessions closed before they were completed.",
	})

	// ActiveSessions is the number of sessions currently in progress.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "sessions_active",
		Help:      "Exam sessions currently in progress.",
	})

	// IntegrityViolations counts focus-loss events.
	IntegrityViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "integrity_violations_total",
		Help:      "Focus or visibility losses reported by clients.",
	})

	// PersistFailures counts failed persistence operations by stage.
	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attempts",
		Name:      "persist_failures_total",
		Help:      "Attempt and integrity persistence failures, by stage.",
	}, []string{"stage"})

	// AttemptsPersisted counts attempts written to the store.
	AttemptsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attempts",
		Name:      "persisted_total",
		Help:      "Attempts written to the store.",
	})

	// QuestionCacheLookups counts question cache hits and misses.
	QuestionCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "questions",
		Name:      "cache_lookups_total",
		Help:      "Question batch cache lookups, by result.",
	}, []string{"result"})
)
