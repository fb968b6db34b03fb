package pipeline

import (
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/worldstate"
)

// IntentKind discriminates Intent. A tagged variant, not a type
// hierarchy: adding an action kind means extending this enum and the
// per-stage predicates in pipeline.go, never a new interface
// implementation.
type IntentKind uint8

const (
	IntentMove IntentKind = iota
	IntentChat
	IntentTransfer
	IntentToolUse
	IntentWait
)

// Intent is the pure function of an event's payload. It carries
// nothing Perceive/Volition must compute; those passes read Intent plus
// Universe/Perception to produce a Plan.
type Intent struct {
	Kind IntentKind

	AgentID   worldstate.AgentID
	Direction events.Direction

	Message string

	AssetID   worldstate.AssetID
	FromOwner worldstate.AgentID
	ToOwner   worldstate.AgentID

	ToolName string
}

// DeriveIntent maps an event payload to an Intent. Boot and any future
// administrative payload kinds resolve to IntentWait: a request with no
// acting agent and no world effect.
func DeriveIntent(p events.Payload) Intent {
	switch p.Kind {
	case events.PayloadMove:
		return Intent{Kind: IntentMove, AgentID: p.MoveAgentID, Direction: p.MoveDirection}
	case events.PayloadChat:
		return Intent{Kind: IntentChat, AgentID: p.ChatAgentID, Message: p.ChatMessage}
	case events.PayloadAssetTransfer:
		return Intent{
			Kind: IntentTransfer, AssetID: p.TransferAsset,
			FromOwner: p.TransferFromOwner, ToOwner: p.TransferToOwner,
		}
	case events.PayloadToolUse:
		return Intent{Kind: IntentToolUse, AgentID: p.ToolAgentID, ToolName: p.ToolName}
	default:
		return Intent{Kind: IntentWait}
	}
}

// Perception is Perceive's output: the set of entities visible to the
// acting agent. The phase-0 policy is omniscient, every entity visible,
// so Perception carries nothing Volition needs yet; it exists as the
// seam a later vision-radius policy plugs into.
type Perception struct {
	Omniscient bool
}

// Perceive computes the perception set for an intent. Always omniscient
// in the core.
func Perceive(u *worldstate.Universe, i Intent) Perception {
	return Perception{Omniscient: true}
}

// Plan is Volition's output: a concrete, fully-determined course of
// action. In this core volition never branches on chance or policy; it
// is the event, resolved.
type Plan struct {
	Intent Intent
}

// Volition produces a Plan from an Intent, the Universe, and a
// Perception. Deterministic and total.
func Volition(u *worldstate.Universe, i Intent, p Perception) Plan {
	return Plan{Intent: i}
}
