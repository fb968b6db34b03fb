// Package snapshot captures and restores full deterministic state at
// tick boundaries: Universe, RNG state, and hash-chain tail, enough
// for a resumed run to continue byte-identically to a continuous one.
package snapshot

import (
	"github.com/pkg/errors"

	"github.com/deterministic-world/authority/internal/codec"
	"github.com/deterministic-world/authority/internal/eventlog"
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/rngcore"
	"github.com/deterministic-world/authority/internal/store"
	"github.com/deterministic-world/authority/internal/worldstate"
)

// Snapshotter captures and restores state through a store.Store.
type Snapshotter struct {
	s store.Store
}

// New constructs a Snapshotter backed by s.
func New(s store.Store) *Snapshotter {
	return &Snapshotter{s: s}
}

// Capture clones universe and rng's relevant state and durably records
// them. The snapshot is immutable: later
// mutation of universe never affects a captured record, since
// EncodeUniverse is taken over a point-in-time Clone.
func (sn *Snapshotter) Capture(universe *worldstate.Universe, rng *rngcore.Core, log *eventlog.Log) error {
	clone := universe.Clone()
	lastEventHash, err := log.LastHash()
	if err != nil {
		return errors.Wrap(err, "snapshot: read last event hash")
	}
	chainLen, err := worldHashChainLength(log, clone.Tick)
	if err != nil {
		return errors.Wrapf(err, "snapshot: count world-hash chain at tick %d", clone.Tick)
	}
	rec := store.SnapshotRecord{
		Tick:                 clone.Tick,
		UniverseBytes:        codec.EncodeUniverse(clone),
		RngStateBytes:        encodeRngState(clone.Seed, rng, clone.Tick),
		LastEventHash:        lastEventHash,
		LastStateHash:        clone.StateHash,
		WorldHashChainLength: chainLen,
	}
	if err := sn.s.WriteSnapshot(rec); err != nil {
		return errors.Wrapf(err, "snapshot: write snapshot at tick %d", clone.Tick)
	}
	return nil
}

// Restore rehydrates a Universe and Core from a stored record. Tick
// and PrevStateHash on the returned Universe are set from the
// snapshot; a resumed run must produce hashes identical to a
// continuous run from this point on.
func (sn *Snapshotter) Restore(rec store.SnapshotRecord) (*worldstate.Universe, *rngcore.Core, error) {
	if err := sn.VerifyIntegrity(rec); err != nil {
		return nil, nil, err
	}
	universe := codec.DecodeUniverse(rec.UniverseBytes)
	universe.PrevStateHash = rec.LastStateHash
	universe.StateHash = rec.LastStateHash
	rng, err := DecodeRngState(rec.RngStateBytes)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "snapshot: decode rng state at tick %d", rec.Tick)
	}
	return universe, rng, nil
}

// VerifyIntegrity checks a stored snapshot's structural consistency
// before Restore trusts it: its universe bytes are present, a snapshot
// past tick zero carries a state hash, and its world-hash chain has
// exactly tick+1 entries. The length check is what catches a truncated
// or gapped world-hash chain; the world hashes themselves are not
// re-derived here, and the RNG state bytes are only checked when
// DecodeRngState reads them.
func (sn *Snapshotter) VerifyIntegrity(rec store.SnapshotRecord) error {
	if len(rec.UniverseBytes) == 0 {
		return errors.Errorf("snapshot: empty universe bytes at tick %d", rec.Tick)
	}
	var zero [32]byte
	if rec.LastStateHash == zero && rec.Tick != 0 {
		return errors.Errorf("snapshot: missing state hash at tick %d", rec.Tick)
	}
	if rec.WorldHashChainLength != rec.Tick+1 {
		return errors.Errorf("snapshot: world-hash chain length %d != tick+1 (%d) at tick %d",
			rec.WorldHashChainLength, rec.Tick+1, rec.Tick)
	}
	return nil
}

// worldHashChainLength counts the world-hash chain entries from genesis
// (tick 0, implicit, never separately logged) through tick, by reading
// each tick's observations rather than assuming one was recorded:
// a tick whose WorldHash observation is missing or was never appended
// shows up as a short count instead of being silently trusted.
func worldHashChainLength(log *eventlog.Log, tick uint64) (uint64, error) {
	length := uint64(1) // genesis entry
	for t := uint64(1); t <= tick; t++ {
		obs, err := log.ObservationsAt(t)
		if err != nil {
			return 0, errors.Wrapf(err, "snapshot: read observations at tick %d", t)
		}
		hasWorldHash := false
		for _, o := range obs {
			if o.Payload == events.ObservationWorldHash {
				hasWorldHash = true
				break
			}
		}
		if hasWorldHash {
			length++
		}
	}
	return length, nil
}

// Latest returns the most recently captured snapshot, if any.
func (sn *Snapshotter) Latest() (store.SnapshotRecord, bool, error) {
	tick, ok, err := sn.s.LatestSnapshotTick()
	if err != nil {
		return store.SnapshotRecord{}, false, errors.Wrap(err, "snapshot: read latest tick")
	}
	if !ok {
		return store.SnapshotRecord{}, false, nil
	}
	rec, ok, err := sn.s.ReadSnapshot(tick)
	if err != nil {
		return store.SnapshotRecord{}, false, errors.Wrapf(err, "snapshot: read snapshot at tick %d", tick)
	}
	return rec, ok, nil
}

// encodeRngState captures exactly what Restore needs to reproduce every
// substream's next draw byte-for-byte: the tick index and, per
// substream, its draw count.
func encodeRngState(rootSeed uint64, rng *rngcore.Core, tick uint64) []byte {
	positions := rng.ExportPositions()
	w := codec.NewWriter()
	w.U64(rootSeed)
	w.U64(tick)
	w.U32(uint32(len(positions)))
	for _, p := range positions {
		w.U8(uint8(p.Subsystem))
		w.U64(p.StreamID)
		w.U64(p.DrawCount)
	}
	return w.Bytes()
}

// DecodeRngState reconstructs a Core from Snapshotter.Capture's
// encoding. Snapshotter.Restore calls it, which is how cmd/authority
// resumes a run from a stored snapshot.
func DecodeRngState(b []byte) (*rngcore.Core, error) {
	if len(b) < 20 {
		return nil, errors.Errorf("snapshot: rng state too short (%d bytes)", len(b))
	}
	r := newReader(b)
	rootSeed := r.u64()
	tick := r.u64()
	count := r.u32()
	positions := make([]rngcore.StreamPosition, 0, count)
	for i := uint32(0); i < count; i++ {
		subsystem := rngcore.Subsystem(r.u8())
		streamID := r.u64()
		drawCount := r.u64()
		positions = append(positions, rngcore.StreamPosition{Subsystem: subsystem, StreamID: streamID, DrawCount: drawCount})
	}
	return rngcore.Restore(rootSeed, tick, positions), nil
}

// reader is a small cursor over bytes encodeRngState wrote. It mirrors
// boltstore's internal reader but stays package-local: this format is
// not the canonical hashing format and is never shared outside
// snapshot encode/decode.
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) u8() uint8 {
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *reader) u32() uint32 {
	v := uint32(r.b[r.pos]) | uint32(r.b[r.pos+1])<<8 | uint32(r.b[r.pos+2])<<16 | uint32(r.b[r.pos+3])<<24
	r.pos += 4
	return v
}

func (r *reader) u64() uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(r.b[r.pos+i]) << (8 * i)
	}
	r.pos += 8
	return v
}
