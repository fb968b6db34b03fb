package boltstore

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/store"
	"github.com/deterministic-world/authority/internal/worldstate"
)

func unitAgentID(v uint64) worldstate.AgentID { return worldstate.AgentID(v) }
func unitAssetID(v uint64) worldstate.AssetID { return worldstate.AssetID(v) }

// This file's encoding is bbolt's on-disk record format, not the
// canonical hashing format in internal/codec: it must round-trip
// (decode the exact bytes encode wrote) so a restarted process can
// rebuild InputEvent/ObservationEvent/SnapshotRecord values, which the
// canonical codec has no decoders for (it decodes only a Universe).

func putU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func putStr(buf *bytes.Buffer, s string) {
	putU64(buf, uint64(len(s)))
	buf.WriteString(s)
}

func putBytes(buf *bytes.Buffer, b []byte) {
	putU64(buf, uint64(len(b)))
	buf.Write(b)
}

type reader struct {
	b   []byte
	pos int
}

func (r *reader) u8() uint8 {
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.b[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *reader) str() string {
	n := r.u64()
	s := string(r.b[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s
}

func (r *reader) bytes() []byte {
	n := r.u64()
	v := make([]byte, n)
	copy(v, r.b[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return v
}

func (r *reader) hash32() [32]byte {
	var h [32]byte
	copy(h[:], r.b[r.pos:r.pos+32])
	r.pos += 32
	return h
}

func encodePayload(buf *bytes.Buffer, p events.Payload) {
	buf.WriteByte(byte(p.Kind))
	switch p.Kind {
	case events.PayloadMove:
		putU64(buf, uint64(p.MoveAgentID))
		buf.WriteByte(byte(p.MoveDirection))
	case events.PayloadChat:
		putU64(buf, uint64(p.ChatAgentID))
		putStr(buf, p.ChatMessage)
	case events.PayloadAssetTransfer:
		putU64(buf, uint64(p.TransferAsset))
		putU64(buf, uint64(p.TransferFromOwner))
		putU64(buf, uint64(p.TransferToOwner))
	case events.PayloadToolUse:
		putU64(buf, uint64(p.ToolAgentID))
		putStr(buf, p.ToolName)
	case events.PayloadBoot:
	}
}

func decodePayload(r *reader) events.Payload {
	kind := events.PayloadKind(r.u8())
	switch kind {
	case events.PayloadMove:
		a := r.u64()
		d := r.u8()
		return events.MovePayload(unitAgentID(a), events.Direction(d))
	case events.PayloadChat:
		a := r.u64()
		msg := r.str()
		return events.ChatPayload(unitAgentID(a), msg)
	case events.PayloadAssetTransfer:
		asset := r.u64()
		from := r.u64()
		to := r.u64()
		return events.AssetTransferPayload(unitAssetID(asset), unitAgentID(from), unitAgentID(to))
	case events.PayloadToolUse:
		a := r.u64()
		tool := r.str()
		return events.ToolUsePayload(unitAgentID(a), tool)
	case events.PayloadBoot:
		return events.BootPayload()
	default:
		panic(fmt.Sprintf("boltstore: unknown payload kind %d", kind))
	}
}

func encodeInputEvent(e events.InputEvent) []byte {
	var buf bytes.Buffer
	putU64(&buf, e.Tick)
	putU64(&buf, uint64(e.SourceAgentID))
	putU64(&buf, e.Sequence)
	putStr(&buf, e.RBACRole)
	encodePayload(&buf, e.Payload)
	buf.Write(e.Hash[:])
	buf.Write(e.PrevHash[:])
	return buf.Bytes()
}

func decodeInputEvent(b []byte) (events.InputEvent, error) {
	r := &reader{b: b}
	e := events.InputEvent{}
	e.Tick = r.u64()
	e.SourceAgentID = unitAgentID(r.u64())
	e.Sequence = r.u64()
	e.RBACRole = r.str()
	e.Payload = decodePayload(r)
	e.Hash = r.hash32()
	e.PrevHash = r.hash32()
	return e, nil
}

func encodeObservationEvent(o events.ObservationEvent) []byte {
	var buf bytes.Buffer
	putU64(&buf, o.ID)
	putU64(&buf, o.Tick)
	if o.HasCause {
		buf.WriteByte(1)
		putU64(&buf, o.CauseEventID)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteByte(byte(o.Payload))
	switch o.Payload {
	case events.ObservationStateChange:
		putStr(&buf, o.Path)
		putStr(&buf, o.OldVal)
		putStr(&buf, o.NewVal)
	case events.ObservationWorldHash:
		putU64(&buf, o.WorldHashTick)
		buf.Write(o.WorldHash[:])
	case events.ObservationRejectionReason:
		buf.WriteByte(byte(o.Stage))
		putStr(&buf, o.Reason)
	case events.ObservationActionNoted:
		putStr(&buf, o.NoteAction)
	}
	return buf.Bytes()
}

func decodeObservationEvent(b []byte) (events.ObservationEvent, error) {
	r := &reader{b: b}
	o := events.ObservationEvent{}
	o.ID = r.u64()
	o.Tick = r.u64()
	if r.u8() == 1 {
		o.HasCause = true
		o.CauseEventID = r.u64()
	}
	o.Payload = events.ObservationKind(r.u8())
	switch o.Payload {
	case events.ObservationStateChange:
		o.Path = r.str()
		o.OldVal = r.str()
		o.NewVal = r.str()
	case events.ObservationWorldHash:
		o.WorldHashTick = r.u64()
		o.WorldHash = r.hash32()
	case events.ObservationRejectionReason:
		o.Stage = events.PipelineStage(r.u8())
		o.Reason = r.str()
	case events.ObservationActionNoted:
		o.NoteAction = r.str()
	}
	return o, nil
}

func encodeSnapshot(s store.SnapshotRecord) []byte {
	var buf bytes.Buffer
	putU64(&buf, s.Tick)
	putBytes(&buf, s.UniverseBytes)
	putBytes(&buf, s.RngStateBytes)
	buf.Write(s.LastEventHash[:])
	buf.Write(s.LastStateHash[:])
	putU64(&buf, s.WorldHashChainLength)
	return buf.Bytes()
}

func decodeSnapshot(b []byte) (store.SnapshotRecord, error) {
	r := &reader{b: b}
	s := store.SnapshotRecord{}
	s.Tick = r.u64()
	s.UniverseBytes = r.bytes()
	s.RngStateBytes = r.bytes()
	s.LastEventHash = r.hash32()
	s.LastStateHash = r.hash32()
	s.WorldHashChainLength = r.u64()
	return s, nil
}
