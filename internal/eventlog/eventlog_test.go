package eventlog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/hashchain"
	"github.com/deterministic-world/authority/internal/store/memstore"
	"github.com/deterministic-world/authority/internal/worldstate"
)

func TestAppend_ChainsHashesInOrder(t *testing.T) {
	log := New(memstore.New())
	e1, err := log.Append(events.InputEvent{Tick: 1, Sequence: 0, RBACRole: "admin", Payload: events.BootPayload()})
	require.NoError(t, err)

	var zero [32]byte
	require.Equal(t, zero, e1.PrevHash)

	e2, err := log.Append(events.InputEvent{Tick: 1, Sequence: 1, RBACRole: "admin", PrevHash: e1.Hash, Payload: events.BootPayload()})
	require.NoError(t, err)
	require.Equal(t, e1.Hash, e2.PrevHash)
}

func TestAppend_RejectsMismatchedPrevHash(t *testing.T) {
	log := New(memstore.New())
	_, err := log.Append(events.InputEvent{Tick: 1, Sequence: 0, RBACRole: "admin", Payload: events.BootPayload()})
	require.NoError(t, err)

	wrongPrev := [32]byte{9, 9, 9}
	_, err = log.Append(events.InputEvent{Tick: 1, Sequence: 1, RBACRole: "admin", PrevHash: wrongPrev, Payload: events.BootPayload()})
	require.Error(t, err)

	var chainBreak *hashchain.ChainBreak
	require.True(t, errors.As(err, &chainBreak))
	require.Equal(t, wrongPrev, chainBreak.ActualPrev)
}

func TestEventsAt_OrdersBySequenceThenSourceAgent(t *testing.T) {
	log := New(memstore.New())
	e1, err := log.Append(events.InputEvent{Tick: 1, Sequence: 1, SourceAgentID: 5, RBACRole: "admin"})
	require.NoError(t, err)
	e2, err := log.Append(events.InputEvent{Tick: 1, Sequence: 0, SourceAgentID: 9, RBACRole: "admin", PrevHash: e1.Hash})
	require.NoError(t, err)
	_, err = log.Append(events.InputEvent{Tick: 1, Sequence: 0, SourceAgentID: 2, RBACRole: "admin", PrevHash: e2.Hash})
	require.NoError(t, err)

	evts, err := log.EventsAt(1)
	require.NoError(t, err)
	require.Len(t, evts, 3)
	require.Equal(t, uint64(0), evts[0].Sequence)
	require.Equal(t, worldstate.AgentID(2), evts[0].SourceAgentID)
	require.Equal(t, uint64(0), evts[1].Sequence)
	require.Equal(t, worldstate.AgentID(9), evts[1].SourceAgentID)
	require.Equal(t, uint64(1), evts[2].Sequence)
}

func TestVerifyRange_DetectsValidChain(t *testing.T) {
	log := New(memstore.New())
	var prev [32]byte
	for i := uint64(1); i <= 3; i++ {
		e, err := log.Append(events.InputEvent{Tick: i, Sequence: 0, RBACRole: "admin", PrevHash: prev})
		require.NoError(t, err)
		prev = e.Hash
	}
	var genesis [32]byte
	require.NoError(t, log.VerifyRange(genesis, 1, 3))
}

func TestVerifyRange_FailsOnWrongGenesis(t *testing.T) {
	log := New(memstore.New())
	_, err := log.Append(events.InputEvent{Tick: 1, Sequence: 0, RBACRole: "admin"})
	require.NoError(t, err)

	wrongGenesis := [32]byte{1, 2, 3}
	require.Error(t, log.VerifyRange(wrongGenesis, 1, 1))
}

func TestAppendObservation_IsRetrievableByTick(t *testing.T) {
	log := New(memstore.New())
	require.NoError(t, log.AppendObservation(events.ActionNoted(1, 2, 0, "noted")))
	obs, err := log.ObservationsAt(2)
	require.NoError(t, err)
	require.Len(t, obs, 1)
}
