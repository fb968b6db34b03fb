package bootvalidator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deterministic-world/authority/internal/config"
	"github.com/deterministic-world/authority/internal/eventlog"
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/hashchain"
	"github.com/deterministic-world/authority/internal/rngcore"
	"github.com/deterministic-world/authority/internal/store/memstore"
)

func validConfig() config.Config {
	return config.Config{RBACWriterRoles: []string{"admin"}}
}

func TestValidate_PassesOnEmptyLogAndValidConfig(t *testing.T) {
	log := eventlog.New(memstore.New())
	require.NoError(t, Validate(validConfig(), log))
}

func TestValidate_FailsClosedOnInvalidConfig(t *testing.T) {
	log := eventlog.New(memstore.New())
	err := Validate(config.Config{}, log)
	require.Error(t, err)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, ExitBootValidationFailure, failure.Code)
}

func TestValidate_PassesOnIntactChain(t *testing.T) {
	s := memstore.New()
	log := eventlog.New(s)
	var prev [32]byte
	for tick := uint64(1); tick <= 3; tick++ {
		e, err := log.Append(events.InputEvent{Tick: tick, RBACRole: "admin", PrevHash: prev, Payload: events.BootPayload()})
		require.NoError(t, err)
		prev = e.Hash
	}
	require.NoError(t, Validate(validConfig(), log))
}

func TestValidate_FailsClosedOnBrokenChain(t *testing.T) {
	s := memstore.New()
	log := eventlog.New(s)
	_, err := log.Append(events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.BootPayload()})
	require.NoError(t, err)

	// Directly corrupt the second event's PrevHash via the raw store,
	// bypassing eventlog.Append's own linkage so Validate's chain walk
	// is what catches the break, not Append.
	corrupt := events.InputEvent{Tick: 2, RBACRole: "admin", Payload: events.BootPayload(), PrevHash: [32]byte{9, 9, 9}}
	require.NoError(t, s.AppendInputEvent(corrupt))

	err = Validate(validConfig(), log)
	require.Error(t, err)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, ExitChainCorruption, failure.Code)

	var cb *hashchain.ChainBreak
	require.True(t, errors.As(failure.Err, &cb), "expected a *hashchain.ChainBreak wrapped in the boot failure")
}

func TestValidate_CoversFutureTickEvents(t *testing.T) {
	s := memstore.New()
	log := eventlog.New(s)
	_, err := log.Append(events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.BootPayload()})
	require.NoError(t, err)

	// A producer queued an event well ahead of the current tick with a
	// broken linkage; boot must still walk far enough to see it.
	corrupt := events.InputEvent{Tick: 500, RBACRole: "admin", Payload: events.BootPayload(), PrevHash: [32]byte{7}}
	require.NoError(t, s.AppendInputEvent(corrupt))

	err = Validate(validConfig(), log)
	require.Error(t, err)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, ExitChainCorruption, failure.Code)
}

func TestVerifyRngAudit_PassesOnIdenticalRuns(t *testing.T) {
	a := rngcore.New(9)
	b := rngcore.New(9)
	a.SetTick(1)
	b.SetTick(1)
	a.Handle(rngcore.Physics, 0).NextU64("draw")
	b.Handle(rngcore.Physics, 0).NextU64("draw")
	require.NoError(t, VerifyRngAudit(a, b))
}

func TestVerifyRngAudit_FailsOnDivergedDrawCounts(t *testing.T) {
	a := rngcore.New(9)
	b := rngcore.New(9)
	a.SetTick(1)
	b.SetTick(1)
	a.Handle(rngcore.Physics, 0).NextU64("draw")

	err := VerifyRngAudit(a, b)
	require.Error(t, err)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, ExitRngAuditInconsistency, failure.Code)
}

func TestVerifyEventChain_DetectsBreakFromKnownGoodRoot(t *testing.T) {
	s := memstore.New()
	log := eventlog.New(s)
	_, err := log.Append(events.InputEvent{Tick: 5, RBACRole: "admin", Payload: events.BootPayload()})
	require.NoError(t, err)

	var wrongRoot [32]byte
	wrongRoot[0] = 0xFF
	err = VerifyEventChain(wrongRoot, log, 5, 5)
	require.Error(t, err)
}
