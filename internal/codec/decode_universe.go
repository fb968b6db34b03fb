package codec

import "github.com/deterministic-world/authority/internal/worldstate"

// DecodePosition reads what EncodePosition wrote.
func DecodePosition(r *Reader) worldstate.Position {
	return worldstate.Position{X: r.I32(), Y: r.I32(), Z: r.I32()}
}

// DecodeVitals reads what EncodeVitals wrote.
func DecodeVitals(r *Reader) worldstate.Vitals {
	return worldstate.Vitals{Energy: r.U32(), Mood: r.U32()}
}

// DecodeAgent reads what EncodeAgent wrote.
func DecodeAgent(r *Reader) *worldstate.Agent {
	id := worldstate.AgentID(r.U64())
	name := r.Str()
	pos := DecodePosition(r)
	vitals := DecodeVitals(r)
	agent := worldstate.NewAgent(id, name, pos, vitals)
	n := r.U32()
	for i := uint32(0); i < n; i++ {
		k := r.Str()
		v := r.U64()
		agent.Inventory.Set(k, v)
	}
	return agent
}

// DecodeAssetLocation reads what EncodeAssetLocation wrote.
func DecodeAssetLocation(r *Reader) worldstate.AssetLocation {
	kind := worldstate.AssetLocationKind(r.U8())
	switch kind {
	case worldstate.LocationAtPosition:
		return worldstate.AtPosition(DecodePosition(r))
	case worldstate.LocationOnAgent:
		return worldstate.OnAgent(worldstate.AgentID(r.U64()))
	case worldstate.LocationInContainer:
		return worldstate.InContainer(worldstate.AssetID(r.U64()))
	default:
		return worldstate.AssetLocation{}
	}
}

// DecodeAssetState reads what EncodeAssetState wrote into an existing
// Asset's state (already holding an initialized Properties map).
func DecodeAssetState(r *Reader, into *worldstate.Asset) {
	into.State.DurabilityX100 = r.U32()
	into.State.HasOwner = r.U8() == 1
	into.State.Owner = worldstate.AgentID(r.U64())
	n := r.U32()
	for i := uint32(0); i < n; i++ {
		k := r.Str()
		v := r.Str()
		into.State.Properties.Set(k, v)
	}
}

// DecodeAsset reads what EncodeAsset wrote.
func DecodeAsset(r *Reader) *worldstate.Asset {
	id := worldstate.AssetID(r.U64())
	name := r.Str()
	loc := DecodeAssetLocation(r)
	asset := worldstate.NewAsset(id, name, loc)
	DecodeAssetState(r, asset)
	return asset
}

// DecodeTerrain reads what EncodeTerrain wrote.
func DecodeTerrain(r *Reader) *worldstate.Terrain {
	t := worldstate.NewTerrain()
	n := r.U32()
	for i := uint32(0); i < n; i++ {
		x := r.I32()
		y := r.I32()
		data := r.BytesPrefixed()
		t.Chunks.Set(worldstate.ChunkKey{X: x, Y: y}, data)
	}
	return t
}

// DecodeUniverse reads what EncodeUniverse wrote, rehydrating a
// Universe for snapshot restore (internal/snapshot). StateHash and
// PrevStateHash are not part of the canonical encoding (they are its
// output, not its input) and must be set by the caller from the
// snapshot record's LastStateHash.
func DecodeUniverse(b []byte) *worldstate.Universe {
	r := NewReader(b)
	u := worldstate.NewUniverse(0)
	u.Tick = r.U64()
	u.Seed = r.U64()

	nAgents := r.U32()
	for i := uint32(0); i < nAgents; i++ {
		a := DecodeAgent(r)
		u.Agents.Set(a.ID, a)
	}

	nAssets := r.U32()
	for i := uint32(0); i < nAssets; i++ {
		a := DecodeAsset(r)
		u.Assets.Set(a.ID, a)
	}

	u.Terrain = DecodeTerrain(r)
	return u
}
