// Package pipeline implements the ten-pass authority pipeline that
// validates and commits a single input event against the Universe:
// SchemaValidate, Authorize, Perceive, Intent, Volition, BioVeto,
// PhysicsValidate, PolicyValidate, Commit, Emit. Each pass either
// rejects (one RejectionReason observation, event dropped) or proceeds;
// rejections are data in the observation stream, never errors.
package pipeline

import (
	"encoding/hex"
	"fmt"

	"github.com/deterministic-world/authority/internal/codec"
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/worldstate"
)

// Pipeline runs all ten passes for each event handed to Process.
type Pipeline struct {
	cfg Config
}

// New constructs a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Outcome is the result of processing one event: zero or more
// observations in emission order, and whether the event committed a
// state change.
type Outcome struct {
	Observations []events.ObservationEvent
	Committed    bool
}

// nextObservationID is a small monotonic counter the caller threads
// across every event processed within a tick, so ids stay monotonic
// within the tick without the pipeline owning tick-scoped state.
type nextObservationID = *uint64

// Process runs all ten passes for e against u, appending at most one
// terminal observation: either a RejectionReason (stages 1/2/6/7/8) or,
// past Commit, a StateChange or ActionNoted.
func (p *Pipeline) Process(u *worldstate.Universe, e events.InputEvent, obsID nextObservationID) Outcome {
	reject := func(stage events.PipelineStage, reason string) Outcome {
		id := *obsID
		*obsID++
		return Outcome{Observations: []events.ObservationEvent{
			events.RejectionReason(id, e.Tick, e.Sequence, stage, reason),
		}}
	}

	// 1. SchemaValidate. The codec's static types make a malformed
	// payload kind unrepresentable; this pass exists to make that
	// contract explicit rather than implicit in Go's type system.
	if !validPayloadKind(e.Payload.Kind) {
		return reject(events.StageSchemaValidate, "unrecognized payload kind")
	}

	// 2. Authorize.
	if !p.cfg.WriterRoles.Contains(e.RBACRole) {
		return reject(events.StageAuthorize, "role not a writer")
	}

	intent := DeriveIntent(e.Payload)

	// 3. Perceive.
	perception := Perceive(u, intent)

	// 4 is DeriveIntent above, computed before Perceive only because
	// Perceive's signature takes an Intent; no event ordering invariant
	// depends on this, since both passes are pure.

	// 5. Volition.
	plan := Volition(u, intent, perception)

	// 6. BioVeto.
	if reason, vetoed := bioVeto(u, p.cfg, plan); vetoed {
		return reject(events.StageBioVeto, reason)
	}

	// 7. PhysicsValidate.
	if reason, denied := physicsValidate(u, plan); denied {
		return reject(events.StagePhysicsValidate, reason)
	}

	// 8. PolicyValidate.
	if !p.cfg.PolicyPredicate(u, e) {
		return reject(events.StagePolicyValidate, "denied by policy")
	}

	// 9. Commit.
	transition := buildTransition(plan)
	oldFingerprint := fingerprint(u, transition)
	worldstate.Apply(u, transition)
	newFingerprint := fingerprint(u, transition)

	// 10. Emit.
	id := *obsID
	*obsID++
	var obs events.ObservationEvent
	if transition.Kind == worldstate.TransitionNoop {
		obs = events.ActionNoted(id, e.Tick, e.Sequence, transition.NoopReason)
	} else {
		obs = events.StateChange(id, e.Tick, e.Sequence, transition.FingerprintPath(), oldFingerprint, newFingerprint)
	}
	return Outcome{Observations: []events.ObservationEvent{obs}, Committed: true}
}

func validPayloadKind(k events.PayloadKind) bool {
	switch k {
	case events.PayloadMove, events.PayloadChat, events.PayloadAssetTransfer, events.PayloadToolUse, events.PayloadBoot:
		return true
	default:
		return false
	}
}

// bioVeto checks biological feasibility. An action targeting a
// nonexistent agent is rejected here, not at PhysicsValidate.
func bioVeto(u *worldstate.Universe, cfg Config, plan Plan) (reason string, vetoed bool) {
	switch plan.Intent.Kind {
	case IntentMove, IntentChat, IntentToolUse:
		agent, ok := u.Agents.Get(plan.Intent.AgentID)
		if !ok {
			return "agent does not exist", true
		}
		threshold := cfg.BioThresholds[plan.Intent.Kind]
		if agent.Vitals.Energy <= threshold {
			return "energy<=threshold", true
		}
	case IntentTransfer:
		// Transfers are vetted on the asset's owner at PhysicsValidate,
		// not here: a transfer has no single acting agent to check
		// vitals against, so BioVeto is a pass-through for Transfer.
	case IntentWait:
	}
	return "", false
}

// physicsValidate checks physical feasibility.
func physicsValidate(u *worldstate.Universe, plan Plan) (reason string, denied bool) {
	switch plan.Intent.Kind {
	case IntentMove:
		// Direction is always one of the six enumerated values by
		// construction; no further validation needed here beyond the
		// agent-exists check BioVeto already performed.
	case IntentTransfer:
		asset, ok := u.Assets.Get(plan.Intent.AssetID)
		if !ok {
			return "asset does not exist", true
		}
		if !asset.State.HasOwner || asset.State.Owner != plan.Intent.FromOwner {
			return "owner mismatch", true
		}
		if plan.Intent.FromOwner == plan.Intent.ToOwner {
			return "self-transfer", true
		}
		if _, ok := u.Agents.Get(plan.Intent.ToOwner); !ok {
			return "target agent does not exist", true
		}
	case IntentChat, IntentToolUse, IntentWait:
	}
	return "", false
}

// buildTransition reduces a validated Plan to the single
// StateTransition Commit applies. Chat and ToolUse reduce to an
// explicit no-op transition rather than being excluded from Commit
// entirely, keeping every committed event on one apply path.
func buildTransition(plan Plan) worldstate.StateTransition {
	switch plan.Intent.Kind {
	case IntentMove:
		dx, dy, dz := plan.Intent.Direction.Offset()
		return worldstate.StateTransition{
			Kind: worldstate.TransitionAgentMove, AgentID: plan.Intent.AgentID,
			DX: dx, DY: dy, DZ: dz,
		}
	case IntentTransfer:
		return worldstate.StateTransition{
			Kind: worldstate.TransitionAssetTransfer, AssetID: plan.Intent.AssetID,
			NewOwner: plan.Intent.ToOwner,
		}
	case IntentChat:
		return worldstate.StateTransition{
			Kind:       worldstate.TransitionNoop,
			NoopReason: fmt.Sprintf("agent %d said: %s", plan.Intent.AgentID, plan.Intent.Message),
		}
	case IntentToolUse:
		return worldstate.StateTransition{
			Kind:       worldstate.TransitionNoop,
			NoopReason: fmt.Sprintf("agent %d used tool: %s", plan.Intent.AgentID, plan.Intent.ToolName),
		}
	default:
		return worldstate.StateTransition{Kind: worldstate.TransitionNoop, NoopReason: "wait"}
	}
}

// fingerprint canonically encodes the subtree a transition affects, hex
// encoded for use as ObservationEvent.OldVal/NewVal. The value is the
// canonical byte form of the affected subtree, not a free-form string.
func fingerprint(u *worldstate.Universe, t worldstate.StateTransition) string {
	w := codec.NewWriter()
	switch t.Kind {
	case worldstate.TransitionAgentMove:
		if agent, ok := u.Agents.Get(t.AgentID); ok {
			codec.EncodePosition(w, agent.Position)
		}
	case worldstate.TransitionAssetTransfer:
		if asset, ok := u.Assets.Get(t.AssetID); ok {
			codec.EncodeAssetState(w, asset.State)
		}
	case worldstate.TransitionTerrainChunkUpdate:
		w.BytesPrefixed(t.ChunkData)
	}
	return hex.EncodeToString(w.Bytes())
}
