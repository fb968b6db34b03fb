// Package tickloop drives the simulation: one tick at a time, single
// threaded, no wall-clock influence on state. Each tick fetches its
// events in canonical order, runs every one through the authority
// pipeline, then seals the tick with a world hash.
package tickloop

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/deterministic-world/authority/internal/bootvalidator"
	"github.com/deterministic-world/authority/internal/eventlog"
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/hashchain"
	"github.com/deterministic-world/authority/internal/metrics"
	"github.com/deterministic-world/authority/internal/pipeline"
	"github.com/deterministic-world/authority/internal/rngcore"
	"github.com/deterministic-world/authority/internal/snapshot"
	"github.com/deterministic-world/authority/internal/worldstate"
)

var log = logrus.WithField("prefix", "tickloop")

// Config configures a Loop's run.
type Config struct {
	MaxTicks         uint64 // 0 = unbounded
	SnapshotInterval uint64

	// CheckpointWriter receives one
	// WORLD_HASH_CHECKPOINT:tick=<decimal>:hash=<64 hex> line per tick,
	// the stream external verifiers diff across runs. Nil disables the
	// stream; cmd/authority wires os.Stdout.
	CheckpointWriter io.Writer
}

// Loop owns the Universe and RNG for the duration of a run; nothing
// outside Loop may observe the Universe mid-tick.
type Loop struct {
	cfg      Config
	universe *worldstate.Universe
	rng      *rngcore.Core
	log      *eventlog.Log
	pipeline *pipeline.Pipeline
	snapper  *snapshot.Snapshotter
}

// New constructs a Loop. universe and rng must already reflect either
// genesis or a snapshot restored through internal/snapshot (as
// cmd/authority does at boot).
func New(cfg Config, universe *worldstate.Universe, rng *rngcore.Core, l *eventlog.Log, p *pipeline.Pipeline, snapper *snapshot.Snapshotter) *Loop {
	return &Loop{cfg: cfg, universe: universe, rng: rng, log: l, pipeline: p, snapper: snapper}
}

// Run drives ticks until MaxTicks is reached (if nonzero), returning
// the first fatal error encountered. Fatal errors halt the simulation;
// there is no partial-tick state.
func (lp *Loop) Run() error {
	for lp.cfg.MaxTicks == 0 || lp.universe.Tick < lp.cfg.MaxTicks {
		if err := lp.step(); err != nil {
			return err
		}
	}
	return nil
}

// step executes exactly one tick. Wall-clock timing here is
// observability only; nothing in the authority path branches on it.
func (lp *Loop) step() error {
	start := time.Now()
	lp.universe.Tick++
	tick := lp.universe.Tick
	lp.rng.SetTick(tick)

	evts, err := lp.log.EventsAt(tick)
	if err != nil {
		return errors.Wrapf(err, "tickloop: fetch events at tick %d", tick)
	}

	var obsID uint64
	for _, e := range evts {
		outcome := lp.pipeline.Process(lp.universe, e, &obsID)
		metrics.IncEventsProcessed()
		for _, o := range outcome.Observations {
			if o.Payload == events.ObservationRejectionReason {
				metrics.IncRejection(o.Stage.String())
			}
			if err := lp.log.AppendObservation(o); err != nil {
				return errors.Wrapf(err, "tickloop: append observation at tick %d", tick)
			}
		}
	}

	worldHash := hashchain.HashWorld(lp.universe)
	lp.universe.StateHash = worldHash
	worldHashObs := events.WorldHash(obsID, tick, worldHash)
	if err := lp.log.AppendObservation(worldHashObs); err != nil {
		return errors.Wrapf(err, "tickloop: append world hash observation at tick %d", tick)
	}

	if lp.cfg.CheckpointWriter != nil {
		if _, err := fmt.Fprintf(lp.cfg.CheckpointWriter, "WORLD_HASH_CHECKPOINT:tick=%d:hash=%x\n", tick, worldHash); err != nil {
			return errors.Wrapf(err, "tickloop: write checkpoint at tick %d", tick)
		}
	}
	log.WithFields(logrus.Fields{"tick": tick, "hash": fmt.Sprintf("%x", worldHash)}).Debug("world hash checkpoint")

	lp.universe.PrevStateHash = worldHash

	if lp.cfg.SnapshotInterval != 0 && tick%lp.cfg.SnapshotInterval == 0 {
		if err := lp.snapper.Capture(lp.universe, lp.rng, lp.log); err != nil {
			// A capture failure is a snapshot-integrity fault, not chain
			// corruption; carry the exit code with the error so the
			// caller reports the right one.
			return &bootvalidator.Failure{
				Code: bootvalidator.ExitSnapshotIntegrity,
				Err:  errors.Wrapf(err, "tickloop: snapshot capture at tick %d", tick),
			}
		}
		metrics.IncSnapshotsCaptured()
	}

	metrics.SetCurrentTick(tick)
	metrics.ObserveTickDuration(time.Since(start).Seconds())
	return nil
}

// CurrentTick reports the tick last completed.
func (lp *Loop) CurrentTick() uint64 { return lp.universe.Tick }
