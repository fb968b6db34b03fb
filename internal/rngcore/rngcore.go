// Package rngcore implements the deterministic, subsystem-isolated PRNG
// and its audit log. Every draw anywhere in the simulation flows
// through a Core substream keyed by (subsystem, stream id) and lands in
// the audit log, so two runs from the same seed can be compared
// record-for-record. The generator is chacha20, whose keystream is a
// pure function of its key, making output identical across platforms.
package rngcore

import (
	"encoding/binary"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/chacha20"
	"lukechampine.com/blake3"

	"github.com/deterministic-world/authority/internal/metrics"
)

// Subsystem names an isolated RNG consumer. Draws from one subsystem
// never advance another's stream.
type Subsystem uint8

const (
	Physics Subsystem = iota
	Biology
	Cognition
	Genetics
	Governance
	Environment
)

func (s Subsystem) String() string {
	switch s {
	case Physics:
		return "Physics"
	case Biology:
		return "Biology"
	case Cognition:
		return "Cognition"
	case Genetics:
		return "Genetics"
	case Governance:
		return "Governance"
	case Environment:
		return "Environment"
	default:
		return "Unknown"
	}
}

// Record is one RNG draw in the audit log.
type Record struct {
	Tick      uint64
	Subsystem Subsystem
	StreamID  uint64
	Callsite  string
	Value     uint64
}

type streamKey struct {
	subsystem Subsystem
	streamID  uint64
}

// stream wraps a chacha20 keystream consumed eight bytes at a time. Its
// seed is a pure function of (root seed, subsystem, stream id), so two
// Cores built from the same root seed produce byte-identical sequences
// for the same stream regardless of draw order across other streams.
type stream struct {
	cipher    *chacha20.Cipher
	drawCount uint64
}

func newStream(rootSeed uint64, subsystem Subsystem, streamID uint64) *stream {
	h := blake3.New(32, nil)
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], rootSeed)
	_, _ = h.Write(seedBytes[:])
	_, _ = h.Write([]byte{byte(subsystem)})
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], streamID)
	_, _ = h.Write(idBytes[:])
	key := h.Sum(nil)

	// ChaCha20 needs a 256-bit key, so the full 32-byte BLAKE3 digest
	// is the key, with a zero nonce. The stream stays a pure function
	// of exactly (root seed, subsystem, stream id).
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		panic(fmt.Sprintf("rngcore: chacha20 init failed: %v", err))
	}
	return &stream{cipher: c}
}

func (s *stream) nextU64() uint64 {
	var zero, out [8]byte
	s.cipher.XORKeyStream(out[:], zero[:])
	s.drawCount++
	return binary.LittleEndian.Uint64(out[:])
}

// Core is the central RNG authority. All randomization in the pipeline
// flows through it so every draw is logged.
type Core struct {
	rootSeed uint64
	tick     uint64
	streams  map[streamKey]*stream

	audit       []Record
	drawCount   uint64
	bounded     *lru.Cache // rolling window when non-nil
	boundedSize int
}

// New constructs a Core from a genesis seed with unbounded in-memory
// audit logging.
func New(rootSeed uint64) *Core {
	return &Core{
		rootSeed: rootSeed,
		streams:  make(map[streamKey]*stream),
	}
}

// NewBounded constructs a Core whose audit log keeps only the most
// recent windowSize records, for long runs where an unbounded log would
// grow without limit. Determinism of world-hash output is unaffected;
// only audit-log retention changes.
func NewBounded(rootSeed uint64, windowSize int) *Core {
	c, err := lru.New(windowSize)
	if err != nil {
		panic(fmt.Sprintf("rngcore: invalid bounded window size %d: %v", windowSize, err))
	}
	return &Core{
		rootSeed:    rootSeed,
		streams:     make(map[streamKey]*stream),
		bounded:     c,
		boundedSize: windowSize,
	}
}

// SetTick sets the tick index recorded against subsequent draws. Must
// be called once at the start of each tick, before any draw.
func (c *Core) SetTick(tick uint64) { c.tick = tick }

// Handle returns the substream for (subsystem, streamID), lazily
// creating it on first use.
func (c *Core) Handle(subsystem Subsystem, streamID uint64) *StreamHandle {
	key := streamKey{subsystem: subsystem, streamID: streamID}
	s, ok := c.streams[key]
	if !ok {
		s = newStream(c.rootSeed, subsystem, streamID)
		c.streams[key] = s
	}
	return &StreamHandle{core: c, stream: s, subsystem: subsystem, streamID: streamID}
}

func (c *Core) record(r Record) {
	metrics.IncRngDraw(r.Subsystem.String())
	idx := c.drawCount
	c.drawCount++
	if c.bounded != nil {
		// Bounded mode must never grow c.audit. idx is the LRU key so
		// eviction order follows draw order regardless of how many
		// draws have happened.
		c.bounded.Add(idx, r)
		return
	}
	c.audit = append(c.audit, r)
}

// AuditLog returns every retained record in draw order. Under a bounded
// Core this reflects only the rolling window's contents.
func (c *Core) AuditLog() []Record {
	if c.bounded == nil {
		return c.audit
	}
	out := make([]Record, 0, c.bounded.Len())
	for _, k := range c.bounded.Keys() {
		v, ok := c.bounded.Get(k)
		if ok {
			out = append(out, v.(Record))
		}
	}
	return out
}

// Statistics summarizes Core usage for introspection and diagnostics.
type Statistics struct {
	CurrentTick     uint64
	TotalDraws      int
	StreamCount     int
	StreamsBySubsys map[Subsystem]int
}

// Stats reports current Core usage.
func (c *Core) Stats() Statistics {
	bySubsys := make(map[Subsystem]int)
	for k := range c.streams {
		bySubsys[k.subsystem]++
	}
	return Statistics{
		CurrentTick:     c.tick,
		TotalDraws:      int(c.drawCount),
		StreamCount:     len(c.streams),
		StreamsBySubsys: bySubsys,
	}
}

// StreamPosition names one substream's progress, for snapshot/restore.
type StreamPosition struct {
	Subsystem Subsystem
	StreamID  uint64
	DrawCount uint64
}

// ExportPositions returns every substream's draw count, in a stable
// order (ascending subsystem, then stream id) so two Cores exported
// from the same state encode identically. internal/snapshot persists
// this to resume a run from a snapshot without diverging from a
// continuous run.
func (c *Core) ExportPositions() []StreamPosition {
	out := make([]StreamPosition, 0, len(c.streams))
	for k, s := range c.streams {
		out = append(out, StreamPosition{Subsystem: k.subsystem, StreamID: k.streamID, DrawCount: s.drawCount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subsystem != out[j].Subsystem {
			return out[i].Subsystem < out[j].Subsystem
		}
		return out[i].StreamID < out[j].StreamID
	})
	return out
}

// Restore rebuilds a Core at rootSeed/tick and fast-forwards each named
// substream to its recorded draw count by replaying (and discarding)
// that many raw draws from the same pure function of (seed, subsystem,
// stream id) used originally, so the restored stream's next draw is
// byte-identical to what the original run would have produced next.
func Restore(rootSeed, tick uint64, positions []StreamPosition) *Core {
	c := New(rootSeed)
	c.tick = tick
	for _, pos := range positions {
		s := newStream(rootSeed, pos.Subsystem, pos.StreamID)
		for i := uint64(0); i < pos.DrawCount; i++ {
			s.nextU64()
		}
		c.streams[streamKey{subsystem: pos.Subsystem, streamID: pos.StreamID}] = s
	}
	return c
}

// VerifyDeterminism reports whether two Cores are configured to produce
// identical sequences: same root seed and same tick progression so far.
// It compares configuration, not full output; replay verifiers diff the
// audit logs for that.
func (c *Core) VerifyDeterminism(other *Core) bool {
	return c.rootSeed == other.rootSeed && c.tick == other.tick
}

// StreamHandle is a bound, audit-logging view onto one substream.
type StreamHandle struct {
	core      *Core
	stream    *stream
	subsystem Subsystem
	streamID  uint64
}

// NextU64 draws the next uint64 and appends an audit record.
func (h *StreamHandle) NextU64(callsite string) uint64 {
	v := h.stream.nextU64()
	h.core.record(Record{
		Tick: h.core.tick, Subsystem: h.subsystem, StreamID: h.streamID,
		Callsite: callsite, Value: v,
	})
	return v
}

// NextF64 draws the next float64 in [0, 1) and appends an audit record
// carrying the raw u64 bit pattern consumed, not the float itself, so
// the record compares equal across platforms.
func (h *StreamHandle) NextF64(callsite string) float64 {
	v := h.stream.nextU64()
	h.core.record(Record{
		Tick: h.core.tick, Subsystem: h.subsystem, StreamID: h.streamID,
		Callsite: callsite, Value: v,
	})
	// top 53 bits -> [0, 1), the standard uint64->float64 RNG conversion
	return float64(v>>11) * (1.0 / (1 << 53))
}

// NextInRange draws a uniformly distributed uint64 in [lo, hi) using
// rejection sampling to avoid modulo bias.
// The rejection loop consumes the stream deterministically: discarded
// draws are not logged, only the logical result of this call is, since
// a caller's request is one "draw" regardless of how many raw samples
// rejection sampling needed internally.
func (h *StreamHandle) NextInRange(lo, hi uint64, callsite string) uint64 {
	if lo >= hi {
		panic(fmt.Sprintf("rngcore: invalid range [%d, %d)", lo, hi))
	}
	span := hi - lo
	limit := (^uint64(0) / span) * span
	var raw uint64
	for {
		raw = h.stream.nextU64()
		if raw < limit {
			break
		}
	}
	result := lo + (raw % span)
	h.core.record(Record{
		Tick: h.core.tick, Subsystem: h.subsystem, StreamID: h.streamID,
		Callsite: callsite, Value: result,
	})
	return result
}

// Subsystem reports the stream's owning subsystem.
func (h *StreamHandle) Subsystem() Subsystem { return h.subsystem }

// StreamID reports the stream's id within its subsystem.
func (h *StreamHandle) StreamID() uint64 { return h.streamID }
