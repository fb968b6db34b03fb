// Package bootvalidator runs the fail-closed checks every run must
// pass before the first tick executes: configuration well-formedness
// and full hash-chain verification over the persisted event log. Any
// failure aborts startup; there is no fallback.
package bootvalidator

import (
	"github.com/pkg/errors"

	"github.com/deterministic-world/authority/internal/config"
	"github.com/deterministic-world/authority/internal/eventlog"
	"github.com/deterministic-world/authority/internal/rngcore"
)

// ExitCode is the process exit code a failure maps to.
type ExitCode int

const (
	ExitOK                    ExitCode = 0
	ExitBootValidationFailure ExitCode = 1
	ExitChainCorruption       ExitCode = 2
	ExitRngAuditInconsistency ExitCode = 3
	ExitSnapshotIntegrity     ExitCode = 4
)

// Failure is a fail-closed boot check's error, carrying the exit code
// cmd/authority must return.
type Failure struct {
	Code ExitCode
	Err  error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// Validate runs every boot-time check: the event log supports
// append-only access (trivially true of any store.Store
// implementation, checked structurally by the type system, not at
// runtime), the full persisted hash chain verifies through the highest
// tick any event was ever recorded for so pre-queued future events are
// covered too, and the configuration is well-formed. There is no
// fallback: any failure aborts startup. The no-nondeterminism
// invariant is enforced statically by the package's import-scan test,
// not re-checked at runtime.
func Validate(cfg config.Config, log *eventlog.Log) error {
	if err := cfg.Validate(); err != nil {
		return &Failure{Code: ExitBootValidationFailure, Err: errors.Wrap(err, "bootvalidator: invalid configuration")}
	}

	latestTick, hasEvents, err := log.LatestTick()
	if err != nil {
		return &Failure{Code: ExitBootValidationFailure, Err: errors.Wrap(err, "bootvalidator: read latest event tick")}
	}
	if !hasEvents {
		return nil
	}

	var genesisPrevHash [32]byte
	if err := log.VerifyRange(genesisPrevHash, 1, latestTick); err != nil {
		return &Failure{Code: ExitChainCorruption, Err: errors.Wrap(err, "bootvalidator")}
	}
	return nil
}

// VerifyRngAudit cross-checks two cores' determinism configuration and
// audit progress, for replay verifiers comparing a resumed run against
// the original. A mismatch means the two runs have already diverged and
// is fatal with ExitRngAuditInconsistency.
func VerifyRngAudit(a, b *rngcore.Core) error {
	if !a.VerifyDeterminism(b) {
		return &Failure{Code: ExitRngAuditInconsistency, Err: errors.New("bootvalidator: rng seed or tick diverged between runs")}
	}
	if len(a.AuditLog()) != len(b.AuditLog()) {
		return &Failure{Code: ExitRngAuditInconsistency, Err: errors.Errorf(
			"bootvalidator: rng audit length diverged: %d vs %d", len(a.AuditLog()), len(b.AuditLog()))}
	}
	for i, rec := range a.AuditLog() {
		if rec != b.AuditLog()[i] {
			return &Failure{Code: ExitRngAuditInconsistency, Err: errors.Errorf(
				"bootvalidator: rng audit diverged at record %d", i)}
		}
	}
	return nil
}

// VerifyEventChain re-checks a specific slice of already-decoded events
// against a known-good prior hash, used when resuming from a snapshot
// whose LastEventHash becomes the new chain root.
func VerifyEventChain(genesisPrevHash [32]byte, log *eventlog.Log, fromTick, toTick uint64) error {
	if err := log.VerifyRange(genesisPrevHash, fromTick, toTick); err != nil {
		return &Failure{Code: ExitChainCorruption, Err: err}
	}
	return nil
}
