package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deterministic-world/authority/internal/config"
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/worldstate"
)

func testUniverse() *worldstate.Universe {
	u := worldstate.NewUniverse(1)
	u.Agents.Set(1, worldstate.NewAgent(1, "alice", worldstate.Position{}, worldstate.Vitals{Energy: 100}))
	u.Agents.Set(2, worldstate.NewAgent(2, "bob", worldstate.Position{}, worldstate.Vitals{Energy: 5}))
	asset := worldstate.NewAsset(10, "sword", worldstate.OnAgent(1))
	asset.State.HasOwner = true
	asset.State.Owner = 1
	u.Assets.Set(10, asset)
	return u
}

func process(t *testing.T, p *Pipeline, u *worldstate.Universe, e events.InputEvent) Outcome {
	t.Helper()
	var id uint64
	return p.Process(u, e, &id)
}

// S2: a single valid move commits and emits a StateChange.
func TestProcess_ValidMoveCommitsAndMoves(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.MovePayload(1, events.North)}

	outcome := process(t, p, u, e)
	require.True(t, outcome.Committed)
	require.Len(t, outcome.Observations, 1)
	require.Equal(t, events.ObservationStateChange, outcome.Observations[0].Payload)

	agent, _ := u.Agents.Get(1)
	require.Equal(t, worldstate.Position{X: 0, Y: 1, Z: 0}, agent.Position)
}

// S3: an event from a role outside WriterRoles is rejected at Authorize.
func TestProcess_UnauthorizedRoleRejectedAtAuthorize(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "guest", Payload: events.MovePayload(1, events.North)}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Len(t, outcome.Observations, 1)
	require.Equal(t, events.ObservationRejectionReason, outcome.Observations[0].Payload)
	require.Equal(t, events.StageAuthorize, outcome.Observations[0].Stage)
}

// S4: an agent below the configured energy threshold is rejected by BioVeto.
func TestProcess_LowEnergyRejectedAtBioVeto(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.MovePayload(2, events.North)}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Equal(t, events.StageBioVeto, outcome.Observations[0].Stage)
}

// S5: a self-transfer is rejected at PhysicsValidate, not BioVeto.
func TestProcess_SelfTransferRejectedAtPhysicsValidate(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.AssetTransferPayload(10, 1, 1)}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Equal(t, events.StagePhysicsValidate, outcome.Observations[0].Stage)
}

func TestProcess_TransferToNonexistentAgentRejectedAtPhysicsValidate(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.AssetTransferPayload(10, 1, 999)}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Equal(t, events.StagePhysicsValidate, outcome.Observations[0].Stage)
}

func TestProcess_TransferOfNonexistentAssetRejectedAtPhysicsValidate(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.AssetTransferPayload(999, 1, 2)}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Equal(t, events.StagePhysicsValidate, outcome.Observations[0].Stage)
}

func TestProcess_ValidTransferCommits(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.AssetTransferPayload(10, 1, 2)}

	outcome := process(t, p, u, e)
	require.True(t, outcome.Committed)
	asset, _ := u.Assets.Get(10)
	require.Equal(t, worldstate.AgentID(2), asset.State.Owner)
}

// Move against a nonexistent agent is rejected by BioVeto, not PhysicsValidate.
func TestProcess_MoveOfNonexistentAgentRejectedAtBioVeto(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.MovePayload(999, events.North)}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Equal(t, events.StageBioVeto, outcome.Observations[0].Stage)
}

func TestProcess_ChatCommitsAsActionNoted(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.ChatPayload(1, "hello")}

	outcome := process(t, p, u, e)
	require.True(t, outcome.Committed)
	require.Equal(t, events.ObservationActionNoted, outcome.Observations[0].Payload)
}

func TestProcess_UnknownPayloadKindRejectedAtSchemaValidate(t *testing.T) {
	p := New(DefaultConfig())
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.Payload{Kind: events.PayloadKind(99)}}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Equal(t, events.StageSchemaValidate, outcome.Observations[0].Stage)
}

func TestProcess_PolicyPredicateCanReject(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PolicyPredicate = func(*worldstate.Universe, events.InputEvent) bool { return false }
	p := New(cfg)
	u := testUniverse()
	e := events.InputEvent{Tick: 1, RBACRole: "admin", Payload: events.MovePayload(1, events.North)}

	outcome := process(t, p, u, e)
	require.False(t, outcome.Committed)
	require.Equal(t, events.StagePolicyValidate, outcome.Observations[0].Stage)
}

func TestFromAppConfig_RemapsThresholdsAndRoles(t *testing.T) {
	cfg := config.Config{
		RBACWriterRoles: []string{"operator"},
		BioThresholds:   map[string]uint64{"move": 42},
	}
	pc := FromAppConfig(cfg)
	require.True(t, pc.WriterRoles.Contains("operator"))
	require.False(t, pc.WriterRoles.Contains("admin"))
	require.Equal(t, uint32(42), pc.BioThresholds[IntentMove])
}
