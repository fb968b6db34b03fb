package worldstate

import "fmt"

// TransitionKind discriminates the StateTransition variant applied by
// Apply. Extending the simulation with a new action means adding a kind
// here and a matching predicate in internal/pipeline, not a type
// hierarchy.
type TransitionKind uint8

const (
	// TransitionAgentMove moves an agent by a relative offset.
	TransitionAgentMove TransitionKind = iota
	// TransitionAssetTransfer reassigns an asset's owner.
	TransitionAssetTransfer
	// TransitionTerrainChunkUpdate overwrites a terrain chunk's payload.
	TransitionTerrainChunkUpdate
	// TransitionNoop commits nothing. It exists so Chat and ToolUse
	// events can reach Commit/Emit without inventing a StateChange
	// where none occurred.
	TransitionNoop
)

// StateTransition is the single mutation primitive every committed
// event reduces to. The pipeline constructs one per committed event;
// Apply is the only function that may mutate a Universe.
type StateTransition struct {
	Kind TransitionKind

	// AgentMove
	AgentID    AgentID
	DX, DY, DZ int32

	// AssetTransfer
	AssetID  AssetID
	NewOwner AgentID

	// TerrainChunkUpdate
	ChunkX, ChunkY int32
	ChunkData      []byte

	// Noop
	NoopReason string
}

// FingerprintPath names the subtree a transition touches, for use in
// StateChange observations.
func (t StateTransition) FingerprintPath() string {
	switch t.Kind {
	case TransitionAgentMove:
		return fmt.Sprintf("agent/%d/position", t.AgentID)
	case TransitionAssetTransfer:
		return fmt.Sprintf("asset/%d/owner", t.AssetID)
	case TransitionTerrainChunkUpdate:
		return fmt.Sprintf("terrain/%d/%d", t.ChunkX, t.ChunkY)
	default:
		return ""
	}
}

// Apply is the store's single mutating primitive. Preconditions are
// enforced by the pipeline before Apply is ever called; violating one
// here is a programmer error and panics. This is not a place to return
// an error.
func Apply(u *Universe, t StateTransition) {
	switch t.Kind {
	case TransitionAgentMove:
		agent, ok := u.Agents.Get(t.AgentID)
		if !ok {
			panic(fmt.Sprintf("worldstate: Apply precondition violated: agent %d does not exist", t.AgentID))
		}
		agent.Position = agent.Position.Add(t.DX, t.DY, t.DZ)

	case TransitionAssetTransfer:
		asset, ok := u.Assets.Get(t.AssetID)
		if !ok {
			panic(fmt.Sprintf("worldstate: Apply precondition violated: asset %d does not exist", t.AssetID))
		}
		asset.State.Owner = t.NewOwner
		asset.State.HasOwner = true
		if asset.Location.Kind == LocationOnAgent {
			asset.Location = OnAgent(t.NewOwner)
		}

	case TransitionTerrainChunkUpdate:
		key := ChunkKey{X: t.ChunkX, Y: t.ChunkY}
		u.Terrain.Chunks.Set(key, t.ChunkData)

	case TransitionNoop:
		// Nothing to mutate by construction.

	default:
		panic(fmt.Sprintf("worldstate: Apply precondition violated: unknown transition kind %d", t.Kind))
	}
}
