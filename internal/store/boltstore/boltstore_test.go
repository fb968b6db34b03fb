package boltstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStore_AppendAndReadEventsInTick(t *testing.T) {
	s := openTestStore(t)
	e1 := events.InputEvent{Tick: 1, Sequence: 0, RBACRole: "admin", Payload: events.BootPayload(), Hash: [32]byte{1}}
	e2 := events.InputEvent{Tick: 1, Sequence: 1, RBACRole: "admin", Payload: events.BootPayload(), Hash: [32]byte{2}}
	require.NoError(t, s.AppendInputEvent(e1))
	require.NoError(t, s.AppendInputEvent(e2))

	evts, err := s.EventsInTick(1)
	require.NoError(t, err)
	require.Len(t, evts, 2)

	h, err := s.LastEventHash()
	require.NoError(t, err)
	require.Equal(t, [32]byte{2}, h)
}

func TestStore_EventsInTick_CacheInvalidatesOnAppend(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AppendInputEvent(events.InputEvent{Tick: 1, Sequence: 0, RBACRole: "admin"}))
	first, err := s.EventsInTick(1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, s.AppendInputEvent(events.InputEvent{Tick: 1, Sequence: 1, RBACRole: "admin"}))
	second, err := s.EventsInTick(1)
	require.NoError(t, err)
	require.Len(t, second, 2)
}

func TestStore_LatestEventTickReadsHighestKey(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LatestEventTick()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.AppendInputEvent(events.InputEvent{Tick: 9, Sequence: 0, RBACRole: "admin"}))
	require.NoError(t, s.AppendInputEvent(events.InputEvent{Tick: 4, Sequence: 0, RBACRole: "admin"}))

	tick, ok, err := s.LatestEventTick()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(9), tick)
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	rec := store.SnapshotRecord{Tick: 50, UniverseBytes: []byte{1, 2, 3}, RngStateBytes: []byte{4, 5}}
	require.NoError(t, s.WriteSnapshot(rec))

	tick, ok, err := s.LatestSnapshotTick()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(50), tick)

	got, ok, err := s.ReadSnapshot(50)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.UniverseBytes, got.UniverseBytes)
}

func TestStore_ObservationsInTick(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AppendObservation(events.ActionNoted(1, 3, 0, "noted")))
	obs, err := s.ObservationsInTick(3)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	require.Equal(t, "noted", obs[0].NoteAction)
}
