// Package hashchain computes and verifies the BLAKE3 hash chain over
// input events and world state: each event hash folds in its
// predecessor's, each world hash folds in the prior tick's, so any
// tampering or reordering surfaces as a broken link.
package hashchain

import (
	"fmt"

	"lukechampine.com/blake3"

	"github.com/deterministic-world/authority/internal/codec"
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/worldstate"
)

// Hash returns the BLAKE3-256 hash of data.
func Hash(data []byte) [32]byte {
	var out [32]byte
	sum := blake3.Sum256(data)
	copy(out[:], sum[:])
	return out
}

// HashEvent computes an InputEvent's Hash field over the plain
// concatenation prev_hash || canonical body, linking it into the chain
// the same way HashWorld links world states. No length prefix or other
// framing goes into the digest; an external verifier recomputing the
// chain concatenates exactly these bytes.
func HashEvent(prevHash [32]byte, e events.InputEvent) [32]byte {
	body := codec.EncodeInputEventBody(e)
	buf := make([]byte, 0, len(prevHash)+len(body))
	buf = append(buf, prevHash[:]...)
	buf = append(buf, body...)
	return Hash(buf)
}

// HashWorld computes a Universe's StateHash over the plain
// concatenation prev_state_hash || canonical encoding.
func HashWorld(u *worldstate.Universe) [32]byte {
	body := codec.EncodeUniverse(u)
	buf := make([]byte, 0, len(u.PrevStateHash)+len(body))
	buf = append(buf, u.PrevStateHash[:]...)
	buf = append(buf, body...)
	return Hash(buf)
}

// ChainBreak is the fatal error for any chain-linkage violation. It
// carries enough detail for a top-level diagnostic without the caller
// re-walking the chain.
type ChainBreak struct {
	Index        int
	ExpectedPrev [32]byte
	ActualPrev   [32]byte
}

func (e *ChainBreak) Error() string {
	return fmt.Sprintf("hashchain: chain break at index %d: expected prev_hash %x, got %x",
		e.Index, e.ExpectedPrev, e.ActualPrev)
}

// VerifyChain checks that each event's PrevHash matches the hash of the
// event before it and that its Hash matches HashEvent's recomputation,
// starting the chain from genesisPrevHash. It returns the index of the
// first broken link, or -1 if the whole chain verifies.
func VerifyChain(genesisPrevHash [32]byte, evts []events.InputEvent) int {
	prev := genesisPrevHash
	for i, e := range evts {
		if e.PrevHash != prev {
			return i
		}
		want := HashEvent(prev, e)
		if e.Hash != want {
			return i
		}
		prev = e.Hash
	}
	return -1
}

// VerifyChainErr is VerifyChain with a *ChainBreak error for callers
// that want to fail closed immediately (internal/bootvalidator); the
// expected/actual prev-hash stays recoverable via errors.As.
func VerifyChainErr(genesisPrevHash [32]byte, evts []events.InputEvent) error {
	idx := VerifyChain(genesisPrevHash, evts)
	if idx == -1 {
		return nil
	}
	expected := genesisPrevHash
	if idx > 0 {
		expected = evts[idx-1].Hash
	}
	return &ChainBreak{Index: idx, ExpectedPrev: expected, ActualPrev: evts[idx].PrevHash}
}
