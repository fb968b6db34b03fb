// Package config defines the run configuration: recognized options
// only, bound to CLI flags, validated at boot. Unrecognized options
// cause boot failure.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
)

// Config is the full set of recognized run options. Every field here
// has a named CLI flag below; there is no escape hatch for arbitrary
// extra options.
type Config struct {
	GenesisSeed      uint64
	MaxTicks         uint64 // 0 = unbounded
	SnapshotInterval uint64
	TickRateMS       uint64 // informational only, never read by the authority path
	RBACWriterRoles  []string
	BioThresholds    map[string]uint64
}

// Validate enforces the configuration constraints flag parsing cannot
// express itself. genesis-seed is a required flag, rejected by the CLI
// library when absent, so only the writer-role list is checked here;
// bio-threshold pairs are checked when FromCLI parses them.
func (c Config) Validate() error {
	if len(c.RBACWriterRoles) == 0 {
		return fmt.Errorf("config: rbac_writer_roles must name at least one writer role")
	}
	seen := make(map[string]bool, len(c.RBACWriterRoles))
	for _, r := range c.RBACWriterRoles {
		if r == "" {
			return fmt.Errorf("config: rbac_writer_roles contains an empty role")
		}
		if seen[r] {
			return fmt.Errorf("config: rbac_writer_roles contains duplicate role %q", r)
		}
		seen[r] = true
	}
	return nil
}

// SortedWriterRoles returns RBACWriterRoles in a stable order, useful
// for deterministic logging of the resolved configuration.
func (c Config) SortedWriterRoles() []string {
	out := append([]string(nil), c.RBACWriterRoles...)
	sort.Strings(out)
	return out
}

var (
	genesisSeedFlag = &cli.Uint64Flag{
		Name:     "genesis-seed",
		Usage:    "root seed the RNG and genesis universe are derived from",
		Required: true,
	}
	maxTicksFlag = &cli.Uint64Flag{
		Name:  "max-ticks",
		Usage: "halt after this many ticks (0 = unbounded)",
		Value: 0,
	}
	snapshotIntervalFlag = &cli.Uint64Flag{
		Name:  "snapshot-interval",
		Usage: "capture a snapshot every N ticks (0 = never)",
		Value: 1000,
	}
	tickRateMSFlag = &cli.Uint64Flag{
		Name:  "tick-rate-ms",
		Usage: "informational pacing hint; never read by the authority path",
		Value: 0,
	}
	rbacWriterRolesFlag = &cli.StringSliceFlag{
		Name:  "rbac-writer-role",
		Usage: "rbac_role values authorized to submit state-mutating events (repeatable)",
		Value: cli.NewStringSlice("admin"),
	}
	bioThresholdFlag = &cli.StringSliceFlag{
		Name:  "bio-threshold",
		Usage: "action=threshold pairs for BioVeto (repeatable), e.g. move=10",
	}
)

// Flags returns every recognized CLI flag, for cmd/authority's app
// definition.
func Flags() []cli.Flag {
	return []cli.Flag{
		genesisSeedFlag, maxTicksFlag, snapshotIntervalFlag,
		tickRateMSFlag, rbacWriterRolesFlag, bioThresholdFlag,
	}
}

// FromCLI reads a Config from a parsed cli.Context. Flags absent from
// Flags() are not read here and so can never reach Config; the CLI
// library itself rejects flags it was not told about, so an
// unrecognized option fails the boot.
func FromCLI(c *cli.Context) (Config, error) {
	thresholds, err := parseThresholds(c.StringSlice(bioThresholdFlag.Name))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		GenesisSeed:      c.Uint64(genesisSeedFlag.Name),
		MaxTicks:         c.Uint64(maxTicksFlag.Name),
		SnapshotInterval: c.Uint64(snapshotIntervalFlag.Name),
		TickRateMS:       c.Uint64(tickRateMSFlag.Name),
		RBACWriterRoles:  c.StringSlice(rbacWriterRolesFlag.Name),
		BioThresholds:    thresholds,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseThresholds(pairs []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(pairs))
	for _, p := range pairs {
		idx := strings.IndexByte(p, '=')
		if idx < 0 {
			return nil, fmt.Errorf("config: malformed bio-threshold %q, want action=threshold", p)
		}
		action := p[:idx]
		var parsed uint64
		if _, err := fmt.Sscanf(p[idx+1:], "%d", &parsed); err != nil {
			return nil, fmt.Errorf("config: malformed bio-threshold %q: %w", p, err)
		}
		out[action] = parsed
	}
	return out, nil
}
