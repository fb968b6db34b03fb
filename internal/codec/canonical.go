// Package codec implements the canonical byte encoding every hashed or
// persisted piece of state passes through: fixed-width little-endian
// integers, length-prefixed sequences in key order, and a stable
// discriminant byte ahead of every tagged-variant's fields. No floating
// point value is ever encodable here; positions and vitals cross this
// boundary as fixed-point integers only.
//
// The format is deliberately hand-rolled over encoding/binary: hash
// equality across runs and platforms depends on exact byte layout, and
// a general-purpose serializer's evolution would silently change it.
package codec

import (
	"encoding/binary"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/worldstate"
)

// Writer accumulates canonical bytes. It never returns an error: every
// write here is a fixed-width or length-prefixed append, so encoding
// cannot fail short of running out of memory.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{buf: make([]byte, 0, 256)} }

// Bytes returns the accumulated canonical encoding.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) U32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) U64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// Str writes a length-prefixed UTF-8 string.
func (w *Writer) Str(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// BytesPrefixed writes a length-prefixed byte slice.
func (w *Writer) BytesPrefixed(b []byte) {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// EncodePosition writes a Position's three fixed-point axes.
func EncodePosition(w *Writer, p worldstate.Position) {
	w.I32(p.X)
	w.I32(p.Y)
	w.I32(p.Z)
}

// EncodeVitals writes an Agent's scaled biological fields.
func EncodeVitals(w *Writer, v worldstate.Vitals) {
	w.U32(v.Energy)
	w.U32(v.Mood)
}

// EncodeAgent writes an Agent canonically: fields in declaration order,
// inventory as a length-prefixed sequence in ascending key order (the
// OrderedMap guarantees the ordering).
func EncodeAgent(w *Writer, a *worldstate.Agent) {
	w.U64(uint64(a.ID))
	w.Str(a.Name)
	EncodePosition(w, a.Position)
	EncodeVitals(w, a.Vitals)
	w.U32(uint32(a.Inventory.Len()))
	a.Inventory.Ascend(func(k string, v uint64) bool {
		w.Str(k)
		w.U64(v)
		return true
	})
}

// EncodeAssetLocation writes a tagged-variant AssetLocation: a
// discriminant byte followed by exactly the fields that kind uses.
func EncodeAssetLocation(w *Writer, l worldstate.AssetLocation) {
	w.U8(uint8(l.Kind))
	switch l.Kind {
	case worldstate.LocationAtPosition:
		EncodePosition(w, l.Position)
	case worldstate.LocationOnAgent:
		w.U64(uint64(l.AgentID))
	case worldstate.LocationInContainer:
		w.U64(uint64(l.ContainerID))
	}
}

// EncodeAssetState writes an Asset's mutable state.
func EncodeAssetState(w *Writer, s worldstate.AssetState) {
	w.U32(s.DurabilityX100)
	w.U8(boolByte(s.HasOwner))
	w.U64(uint64(s.Owner))
	w.U32(uint32(s.Properties.Len()))
	s.Properties.Ascend(func(k, v string) bool {
		w.Str(k)
		w.Str(v)
		return true
	})
}

// EncodeAsset writes an Asset canonically.
func EncodeAsset(w *Writer, a *worldstate.Asset) {
	w.U64(uint64(a.ID))
	w.Str(a.Name)
	EncodeAssetLocation(w, a.Location)
	EncodeAssetState(w, a.State)
}

// EncodeTerrain writes every chunk in ascending (X, Y) order.
func EncodeTerrain(w *Writer, t *worldstate.Terrain) {
	w.U32(uint32(t.Chunks.Len()))
	t.Chunks.Ascend(func(k worldstate.ChunkKey, v []byte) bool {
		w.I32(k.X)
		w.I32(k.Y)
		w.BytesPrefixed(v)
		return true
	})
}

// EncodeUniverse writes the full canonical form a world hash is taken
// over: tick, seed, agents, assets, and terrain in ascending-key order,
// with the chained-from PrevStateHash folded in by the caller
// (internal/hashchain), not here; this function is pure over Universe
// content alone.
func EncodeUniverse(u *worldstate.Universe) []byte {
	w := NewWriter()
	w.U64(u.Tick)
	w.U64(u.Seed)

	w.U32(uint32(u.Agents.Len()))
	u.Agents.Ascend(func(id worldstate.AgentID, a *worldstate.Agent) bool {
		EncodeAgent(w, a)
		return true
	})

	w.U32(uint32(u.Assets.Len()))
	u.Assets.Ascend(func(id worldstate.AssetID, a *worldstate.Asset) bool {
		EncodeAsset(w, a)
		return true
	})

	EncodeTerrain(w, u.Terrain)
	return w.Bytes()
}

// EncodeDirection writes a Move payload's direction as a single byte.
func EncodeDirection(w *Writer, d events.Direction) { w.U8(uint8(d)) }

// EncodePayload writes an InputEvent payload: a discriminant byte
// followed by that kind's fields, mirroring EncodeAssetLocation's
// tagged-variant shape.
func EncodePayload(w *Writer, p events.Payload) {
	w.U8(uint8(p.Kind))
	switch p.Kind {
	case events.PayloadMove:
		w.U64(uint64(p.MoveAgentID))
		EncodeDirection(w, p.MoveDirection)
	case events.PayloadChat:
		w.U64(uint64(p.ChatAgentID))
		w.Str(p.ChatMessage)
	case events.PayloadAssetTransfer:
		w.U64(uint64(p.TransferAsset))
		w.U64(uint64(p.TransferFromOwner))
		w.U64(uint64(p.TransferToOwner))
	case events.PayloadToolUse:
		w.U64(uint64(p.ToolAgentID))
		w.Str(p.ToolName)
	case events.PayloadBoot:
		// no fields
	}
}

// EncodeInputEventBody writes the portion of an InputEvent that is
// hashed into its own Hash field: everything except Hash and PrevHash
// themselves, which the hash chain computes over this body plus the
// chain's running hash (internal/hashchain).
func EncodeInputEventBody(e events.InputEvent) []byte {
	w := NewWriter()
	w.U64(e.Tick)
	w.U64(uint64(e.SourceAgentID))
	w.U64(e.Sequence)
	w.Str(e.RBACRole)
	EncodePayload(w, e.Payload)
	return w.Bytes()
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
