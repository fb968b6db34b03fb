// Package eventlog sequences and chain-links InputEvents on top of a
// store.Store, and retrieves the ObservationEvents a tick produced. A
// thin orchestration layer: the store persists, the log enforces
// per-tick canonical ordering and hash-chain linkage.
package eventlog

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/hashchain"
	"github.com/deterministic-world/authority/internal/store"
)

// Log drives append and retrieval against a Store, enforcing canonical
// per-tick ordering and hash-chain linkage on every append.
type Log struct {
	store store.Store
}

// New wraps store with chain-linkage and ordering discipline.
func New(s store.Store) *Log {
	return &Log{store: s}
}

// Append validates e.PrevHash against the chain's current tail,
// computes and stores e.Hash, and persists e; a mismatched PrevHash
// fails with ChainBreak. Sequence and SourceAgentID must already be set
// by the caller; canonical per-tick ordering is a property of retrieval
// order, not of assignment. The caller sets e.PrevHash from a prior
// LastHash read. Append rejects, it does not silently correct, a
// mismatched value.
func (l *Log) Append(e events.InputEvent) (events.InputEvent, error) {
	last, err := l.store.LastEventHash()
	if err != nil {
		return e, errors.Wrap(err, "eventlog: read last event hash")
	}
	if e.PrevHash != last {
		return e, errors.Wrap(
			&hashchain.ChainBreak{Index: 0, ExpectedPrev: last, ActualPrev: e.PrevHash},
			"eventlog: append rejected")
	}
	e.Hash = hashchain.HashEvent(e.PrevHash, e)
	if err := l.store.AppendInputEvent(e); err != nil {
		return e, errors.Wrap(err, "eventlog: append input event")
	}
	return e, nil
}

// EventsAt returns every input event recorded for tick, in canonical
// order: ascending (Sequence, SourceAgentID).
func (l *Log) EventsAt(tick uint64) ([]events.InputEvent, error) {
	evts, err := l.store.EventsInTick(tick)
	if err != nil {
		return nil, errors.Wrapf(err, "eventlog: read events at tick %d", tick)
	}
	sort.SliceStable(evts, func(i, j int) bool {
		if evts[i].Sequence != evts[j].Sequence {
			return evts[i].Sequence < evts[j].Sequence
		}
		return evts[i].SourceAgentID < evts[j].SourceAgentID
	})
	return evts, nil
}

// AppendObservation persists o.
func (l *Log) AppendObservation(o events.ObservationEvent) error {
	if err := l.store.AppendObservation(o); err != nil {
		return errors.Wrap(err, "eventlog: append observation")
	}
	return nil
}

// ObservationsAt returns every observation recorded for tick, in
// append order (the order the pipeline produced them in).
func (l *Log) ObservationsAt(tick uint64) ([]events.ObservationEvent, error) {
	obs, err := l.store.ObservationsInTick(tick)
	if err != nil {
		return nil, errors.Wrapf(err, "eventlog: read observations at tick %d", tick)
	}
	return obs, nil
}

// LastHash returns the hash of the most recently appended input event.
func (l *Log) LastHash() ([32]byte, error) {
	h, err := l.store.LastEventHash()
	if err != nil {
		return h, errors.Wrap(err, "eventlog: read last hash")
	}
	return h, nil
}

// LatestTick returns the highest tick any input event is recorded for,
// or ok=false on an empty log. The boot validator verifies the chain
// through this tick so pre-queued future events are checked too.
func (l *Log) LatestTick() (uint64, bool, error) {
	tick, ok, err := l.store.LatestEventTick()
	if err != nil {
		return 0, false, errors.Wrap(err, "eventlog: read latest event tick")
	}
	return tick, ok, nil
}

// VerifyRange validates chain linkage for ticks [from, to], genesis
// being the PrevHash the first event in the range must chain from.
// Used by internal/bootvalidator on startup.
func (l *Log) VerifyRange(genesisPrevHash [32]byte, from, to uint64) error {
	prev := genesisPrevHash
	for tick := from; tick <= to; tick++ {
		// Append links each event to the one appended before it, so a
		// tick's events are walked in append order, not EventsAt's
		// canonical order.
		evts, err := l.store.EventsInTick(tick)
		if err != nil {
			return errors.Wrapf(err, "eventlog: read events at tick %d", tick)
		}
		if err := hashchain.VerifyChainErr(prev, evts); err != nil {
			return errors.Wrapf(err, "eventlog: broken chain link at tick %d", tick)
		}
		if len(evts) > 0 {
			prev = evts[len(evts)-1].Hash
		}
	}
	return nil
}
