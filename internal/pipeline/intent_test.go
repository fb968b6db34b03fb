package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/worldstate"
)

func TestDeriveIntent_MapsEveryPayloadKind(t *testing.T) {
	cases := []struct {
		name string
		p    events.Payload
		want IntentKind
	}{
		{"move", events.MovePayload(1, events.East), IntentMove},
		{"chat", events.ChatPayload(1, "hi"), IntentChat},
		{"transfer", events.AssetTransferPayload(5, 1, 2), IntentTransfer},
		{"tooluse", events.ToolUsePayload(1, "hammer"), IntentToolUse},
		{"boot", events.BootPayload(), IntentWait},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			intent := DeriveIntent(c.p)
			require.Equal(t, c.want, intent.Kind)
		})
	}
}

func TestPerceive_IsAlwaysOmniscient(t *testing.T) {
	u := worldstate.NewUniverse(1)
	p := Perceive(u, Intent{Kind: IntentWait})
	require.True(t, p.Omniscient)
}

func TestVolition_PassesIntentThroughUnchanged(t *testing.T) {
	u := worldstate.NewUniverse(1)
	intent := Intent{Kind: IntentMove, AgentID: 3, Direction: events.Up}
	plan := Volition(u, intent, Perception{Omniscient: true})
	require.Equal(t, intent, plan.Intent)
}
