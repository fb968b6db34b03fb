package worldstate

// AgentID identifies an Agent. Agents are never deleted; the core has
// no deletion primitive.
type AgentID uint64

// AssetID identifies an Asset.
type AssetID uint64

// Position is a fixed-point world coordinate. One world unit equals
// 1000 sub-units; all arithmetic on positions is integer arithmetic.
// Floating point is forbidden anywhere it could reach canonical bytes.
type Position struct {
	X, Y, Z int32
}

// Add returns the position offset by (dx, dy, dz) sub-units.
func (p Position) Add(dx, dy, dz int32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Vitals holds an agent's biological fixed-point state. All fields are
// scaled integers; energy has no implicit unit conversion.
type Vitals struct {
	Energy uint32
	Mood   uint32
}

// Agent is a simulated actor.
type Agent struct {
	ID       AgentID
	Name     string
	Position Position
	// Inventory maps an item key to the count held. Ordered by item key.
	Inventory *OrderedMap[string, uint64]
	Vitals    Vitals
}

// Clone returns a deep copy sufficient for snapshot isolation: the
// inventory map is rebuilt so mutating the clone never affects the
// original.
func (a *Agent) Clone() *Agent {
	clone := &Agent{
		ID:        a.ID,
		Name:      a.Name,
		Position:  a.Position,
		Vitals:    a.Vitals,
		Inventory: NewOrderedMap[string, uint64](lessString),
	}
	a.Inventory.Ascend(func(k string, v uint64) bool {
		clone.Inventory.Set(k, v)
		return true
	})
	return clone
}

// NewAgent constructs an Agent with an empty inventory.
func NewAgent(id AgentID, name string, pos Position, vitals Vitals) *Agent {
	return &Agent{
		ID:        id,
		Name:      name,
		Position:  pos,
		Vitals:    vitals,
		Inventory: NewOrderedMap[string, uint64](lessString),
	}
}

// AssetLocationKind discriminates the Asset.Location variant.
type AssetLocationKind uint8

const (
	// LocationAtPosition places the asset in the world at a Position.
	LocationAtPosition AssetLocationKind = iota
	// LocationOnAgent places the asset in an agent's possession.
	LocationOnAgent
	// LocationInContainer places the asset inside another asset.
	LocationInContainer
)

// AssetLocation is the tagged-variant location of an Asset. Exactly one
// of Position/AgentID/ContainerID is meaningful, selected by Kind.
type AssetLocation struct {
	Kind        AssetLocationKind
	Position    Position
	AgentID     AgentID
	ContainerID AssetID
}

// AtPosition builds an AssetLocation of kind LocationAtPosition.
func AtPosition(p Position) AssetLocation {
	return AssetLocation{Kind: LocationAtPosition, Position: p}
}

// OnAgent builds an AssetLocation of kind LocationOnAgent.
func OnAgent(id AgentID) AssetLocation {
	return AssetLocation{Kind: LocationOnAgent, AgentID: id}
}

// InContainer builds an AssetLocation of kind LocationInContainer.
func InContainer(id AssetID) AssetLocation {
	return AssetLocation{Kind: LocationInContainer, ContainerID: id}
}

// AssetState is the mutable state of an Asset.
type AssetState struct {
	// DurabilityX100 is durability scaled by 100.
	DurabilityX100 uint32
	// Owner is the agent that owns this asset, if any.
	Owner    AgentID
	HasOwner bool
	// Properties is an ordered string->string map.
	Properties *OrderedMap[string, string]
}

// Asset is a simulated object.
type Asset struct {
	ID       AssetID
	Name     string
	Location AssetLocation
	State    AssetState
}

// Clone returns a deep copy sufficient for snapshot isolation.
func (a *Asset) Clone() *Asset {
	clone := &Asset{
		ID:       a.ID,
		Name:     a.Name,
		Location: a.Location,
		State: AssetState{
			DurabilityX100: a.State.DurabilityX100,
			Owner:          a.State.Owner,
			HasOwner:       a.State.HasOwner,
			Properties:     NewOrderedMap[string, string](lessString),
		},
	}
	a.State.Properties.Ascend(func(k, v string) bool {
		clone.State.Properties.Set(k, v)
		return true
	})
	return clone
}

// NewAsset constructs an Asset with empty properties.
func NewAsset(id AssetID, name string, loc AssetLocation) *Asset {
	return &Asset{
		ID:       id,
		Name:     name,
		Location: loc,
		State: AssetState{
			Properties: NewOrderedMap[string, string](lessString),
		},
	}
}

// ChunkKey identifies a terrain chunk by its integer grid coordinate.
type ChunkKey struct {
	X, Y int32
}

func lessChunkKey(a, b ChunkKey) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// Terrain is the ordered collection of terrain chunks. Each chunk's
// payload is opaque to the core; terrain generation lives outside, and
// the core only needs to store, order, and hash it.
type Terrain struct {
	Chunks *OrderedMap[ChunkKey, []byte]
}

// NewTerrain constructs an empty Terrain.
func NewTerrain() *Terrain {
	return &Terrain{Chunks: NewOrderedMap[ChunkKey, []byte](lessChunkKey)}
}

// Clone returns a deep copy sufficient for snapshot isolation.
func (t *Terrain) Clone() *Terrain {
	clone := NewTerrain()
	t.Chunks.Ascend(func(k ChunkKey, v []byte) bool {
		cp := make([]byte, len(v))
		copy(cp, v)
		clone.Chunks.Set(k, cp)
		return true
	})
	return clone
}

func lessAgentID(a, b AgentID) bool { return a < b }
func lessAssetID(a, b AssetID) bool { return a < b }
func lessString(a, b string) bool   { return a < b }

// Universe is the root aggregate exclusively owning all agents, assets,
// and terrain.
type Universe struct {
	Tick          uint64
	Seed          uint64
	Agents        *OrderedMap[AgentID, *Agent]
	Assets        *OrderedMap[AssetID, *Asset]
	Terrain       *Terrain
	StateHash     [32]byte
	PrevStateHash [32]byte
}

// NewUniverse constructs the genesis Universe for a seed.
func NewUniverse(seed uint64) *Universe {
	return &Universe{
		Seed:    seed,
		Agents:  NewOrderedMap[AgentID, *Agent](lessAgentID),
		Assets:  NewOrderedMap[AssetID, *Asset](lessAssetID),
		Terrain: NewTerrain(),
	}
}

// Clone performs a deep copy, used by the pipeline to capture
// before/after fingerprints and by the snapshotter to isolate a capture
// from subsequent mutation.
func (u *Universe) Clone() *Universe {
	clone := &Universe{
		Tick:          u.Tick,
		Seed:          u.Seed,
		Agents:        NewOrderedMap[AgentID, *Agent](lessAgentID),
		Assets:        NewOrderedMap[AssetID, *Asset](lessAssetID),
		Terrain:       u.Terrain.Clone(),
		StateHash:     u.StateHash,
		PrevStateHash: u.PrevStateHash,
	}
	u.Agents.Ascend(func(id AgentID, a *Agent) bool {
		clone.Agents.Set(id, a.Clone())
		return true
	})
	u.Assets.Ascend(func(id AssetID, a *Asset) bool {
		clone.Assets.Set(id, a.Clone())
		return true
	})
	return clone
}
