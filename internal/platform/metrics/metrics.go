// Package metrics exposes Prometheus counters for the presence
// integrity subsystem. Missing-enrollment auto-fails are counted apart
// from genuine mismatches so the two are distinguishable downstream.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FaceChecksScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardsync_face_checks_scheduled_total",
		Help: "Face checks created by the shift scheduler and opportunistic sweep.",
	})

	FaceCheckResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardsync_face_check_results_total",
		Help: "Face check terminal outcomes by status.",
	}, []string{"status"})

	FaceChecksMissingEnrollment = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardsync_face_checks_missing_enrollment_total",
		Help: "Face checks auto-failed because the guard never enrolled a template.",
	})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardsync_sweep_runs_total",
		Help: "Background sweep executions by outcome.",
	}, []string{"outcome"})

	LocationPings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardsync_location_pings_total",
		Help: "GPS pings accepted from guard devices.",
	})
)
