// Package memstore is an in-memory Store used by tests and by
// short-lived tooling that does not need durability across process
// restarts.
package memstore

import (
	"sync"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/store"
)

// Store is an in-memory, mutex-guarded implementation of store.Store.
type Store struct {
	mu sync.Mutex

	events       []events.InputEvent
	eventsByTick map[uint64][]events.InputEvent

	observations       []events.ObservationEvent
	observationsByTick map[uint64][]events.ObservationEvent

	snapshots   map[uint64]store.SnapshotRecord
	latestSnap  uint64
	hasSnapshot bool

	lastEventHash   [32]byte
	latestEventTick uint64
	hasEvents       bool
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		eventsByTick:       make(map[uint64][]events.InputEvent),
		observationsByTick: make(map[uint64][]events.ObservationEvent),
		snapshots:          make(map[uint64]store.SnapshotRecord),
	}
}

func (s *Store) AppendInputEvent(e events.InputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	s.eventsByTick[e.Tick] = append(s.eventsByTick[e.Tick], e)
	s.lastEventHash = e.Hash
	if !s.hasEvents || e.Tick > s.latestEventTick {
		s.latestEventTick = e.Tick
	}
	s.hasEvents = true
	return nil
}

func (s *Store) LatestEventTick() (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestEventTick, s.hasEvents, nil
}

func (s *Store) EventsInTick(tick uint64) ([]events.InputEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.InputEvent, len(s.eventsByTick[tick]))
	copy(out, s.eventsByTick[tick])
	return out, nil
}

func (s *Store) LastEventHash() ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventHash, nil
}

func (s *Store) AppendObservation(o events.ObservationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append(s.observations, o)
	s.observationsByTick[o.Tick] = append(s.observationsByTick[o.Tick], o)
	return nil
}

func (s *Store) ObservationsInTick(tick uint64) ([]events.ObservationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.ObservationEvent, len(s.observationsByTick[tick]))
	copy(out, s.observationsByTick[tick])
	return out, nil
}

func (s *Store) WriteSnapshot(rec store.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[rec.Tick] = rec
	if !s.hasSnapshot || rec.Tick > s.latestSnap {
		s.latestSnap = rec.Tick
		s.hasSnapshot = true
	}
	return nil
}

func (s *Store) ReadSnapshot(tick uint64) (store.SnapshotRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.snapshots[tick]
	return rec, ok, nil
}

func (s *Store) LatestSnapshotTick() (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestSnap, s.hasSnapshot, nil
}

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
