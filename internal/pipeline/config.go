package pipeline

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/deterministic-world/authority/internal/config"
	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/worldstate"
)

// Config holds the pipeline's configurable policy surface: the role
// permission mapping and per-action biological thresholds are data,
// not code.
type Config struct {
	// WriterRoles is the set of rbac_role strings authorized to submit
	// state-mutating events. Any role outside this set is rejected at
	// Authorize, including unrecognized strings.
	WriterRoles mapset.Set

	// BioThresholds maps an action kind to the minimum energy an
	// acting agent must exceed for BioVeto to let it proceed. Fixed-
	// point integers, same units as Vitals.Energy.
	BioThresholds map[IntentKind]uint32

	// PolicyPredicate is PolicyValidate's pluggable hook: a predicate
	// over (event, universe), not a type hierarchy. The default always
	// allows.
	PolicyPredicate func(u *worldstate.Universe, e events.InputEvent) bool
}

// DefaultConfig returns the pipeline's baseline policy: "admin" is the
// sole writer role, Move requires energy > 10, ToolUse requires
// energy > 5, and PolicyValidate always allows.
func DefaultConfig() Config {
	roles := mapset.NewSet()
	roles.Add("admin")
	return Config{
		WriterRoles: roles,
		BioThresholds: map[IntentKind]uint32{
			IntentMove:     10,
			IntentChat:     0,
			IntentTransfer: 0,
			IntentToolUse:  5,
			IntentWait:     0,
		},
		PolicyPredicate: func(*worldstate.Universe, events.InputEvent) bool { return true },
	}
}

// intentKindNames maps config's string-keyed bio-threshold actions to
// IntentKind, the pipeline's internal tagged variant.
var intentKindNames = map[string]IntentKind{
	"move":     IntentMove,
	"chat":     IntentChat,
	"transfer": IntentTransfer,
	"tooluse":  IntentToolUse,
	"wait":     IntentWait,
}

// FromAppConfig builds a pipeline Config from the run's top-level
// config.Config, falling back to DefaultConfig's thresholds for any
// action the run configuration does not mention.
func FromAppConfig(cfg config.Config) Config {
	out := DefaultConfig()
	roles := mapset.NewSet()
	for _, r := range cfg.RBACWriterRoles {
		roles.Add(r)
	}
	out.WriterRoles = roles
	for name, threshold := range cfg.BioThresholds {
		if kind, ok := intentKindNames[name]; ok {
			out.BioThresholds[kind] = uint32(threshold)
		}
	}
	return out
}
