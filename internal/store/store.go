// Package store defines the durability boundary between the tick loop
// and disk: the append-only input/observation logs and the snapshot
// table, as a narrow interface backing more than one concrete
// implementation.
package store

import (
	"github.com/deterministic-world/authority/internal/events"
)

// SnapshotRecord is a durable snapshot: serialized Universe bytes plus
// the RNG and hash-chain state needed to resume from it exactly.
type SnapshotRecord struct {
	Tick          uint64
	UniverseBytes []byte
	RngStateBytes []byte
	LastEventHash [32]byte
	LastStateHash [32]byte

	// WorldHashChainLength is the number of world-hash observations
	// counted from tick 0 up to and including Tick. A correctly formed
	// snapshot always has WorldHashChainLength == Tick+1, one WorldHash
	// observation per tick; VerifyIntegrity checks this length invariant
	// directly instead of trusting Tick+1 by assumption.
	WorldHashChainLength uint64
}

// Store is the durability interface the tick loop and boot validator
// depend on. Every concrete implementation (memstore, boltstore) must
// give identical answers to EventsInTick/ObservationsInTick given the
// same appended data.
type Store interface {
	// AppendInputEvent appends e to the input log. Callers must ensure
	// e.PrevHash already matches LastEventHash(); Store does not
	// re-derive or validate the chain, it only persists it.
	AppendInputEvent(e events.InputEvent) error

	// EventsInTick returns every input event recorded for tick, in the
	// order they were appended (canonical per-tick ordering is the
	// caller's responsibility, see internal/eventlog).
	EventsInTick(tick uint64) ([]events.InputEvent, error)

	// LastEventHash returns the hash of the most recently appended
	// input event, or the zero hash if none has been appended yet.
	LastEventHash() ([32]byte, error)

	// LatestEventTick returns the highest tick any input event has been
	// recorded for, or ok=false on an empty log. Boot validation walks
	// the chain through this tick, which may lie ahead of the universe's
	// own tick when producers have queued future-tick events.
	LatestEventTick() (tick uint64, ok bool, err error)

	// AppendObservation appends o to the observation log.
	AppendObservation(o events.ObservationEvent) error

	// ObservationsInTick returns every observation recorded for tick,
	// in append order.
	ObservationsInTick(tick uint64) ([]events.ObservationEvent, error)

	// WriteSnapshot durably records s, replacing any prior snapshot at
	// the same tick.
	WriteSnapshot(s SnapshotRecord) error

	// ReadSnapshot returns the snapshot at tick, if one exists.
	ReadSnapshot(tick uint64) (SnapshotRecord, bool, error)

	// LatestSnapshotTick returns the highest tick with a recorded
	// snapshot, or ok=false if none has ever been written.
	LatestSnapshotTick() (tick uint64, ok bool, err error)

	// Close releases any held resources.
	Close() error
}
