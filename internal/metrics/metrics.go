// Package metrics holds the prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts scan verifications by outcome ("accepted" or the
	// rejection reason).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_scans_total",
		Help: "Scan verification attempts by outcome.",
	}, []string{"outcome"})

	// SessionTransitions counts lifecycle transitions by target status.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_session_transitions_total",
		Help: "Session status transitions by target status.",
	}, []string{"to"})

	// RotationsTotal counts rotated tokens by kind (start or end).
	RotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_token_rotations_total",
		Help: "Rotated session tokens by kind.",
	}, []string{"kind"})

	// LeftEarlySwept counts attendance rows marked left_early at session end.
	LeftEarlySwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_left_early_swept_total",
		Help: "Attendance rows swept to left_early when sessions ended.",
	})
)
