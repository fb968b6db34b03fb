// Package metrics exports the run's Prometheus gauges and counters as
// promauto-constructed package-level collectors, updated through small
// report functions rather than scattered Inc/Set calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "authority_tick_duration_seconds",
		Help:    "Wall-clock time spent processing a single tick (informational; never read by the authority path)",
		Buckets: prometheus.DefBuckets,
	})

	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authority_events_processed_total",
		Help: "Total input events run through the authority pipeline",
	})

	rejectionsByStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authority_pipeline_rejections_total",
		Help: "Rejections observed, by pipeline stage",
	}, []string{"stage"})

	rngDrawsBySubsystem = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authority_rng_draws_total",
		Help: "RNG draws recorded, by subsystem",
	}, []string{"subsystem"})

	currentTick = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "authority_current_tick",
		Help: "The tick most recently completed",
	})

	snapshotsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authority_snapshots_captured_total",
		Help: "Total snapshots written",
	})
)

// ObserveTickDuration records a tick's wall-clock processing time.
func ObserveTickDuration(seconds float64) { tickDuration.Observe(seconds) }

// IncEventsProcessed records one event having run through the pipeline.
func IncEventsProcessed() { eventsProcessed.Inc() }

// IncRejection records one rejection at stage.
func IncRejection(stage string) { rejectionsByStage.WithLabelValues(stage).Inc() }

// IncRngDraw records one RNG draw for subsystem.
func IncRngDraw(subsystem string) { rngDrawsBySubsystem.WithLabelValues(subsystem).Inc() }

// SetCurrentTick reports the tick most recently completed.
func SetCurrentTick(tick uint64) { currentTick.Set(float64(tick)) }

// IncSnapshotsCaptured records one snapshot having been written.
func IncSnapshotsCaptured() { snapshotsCaptured.Inc() }
