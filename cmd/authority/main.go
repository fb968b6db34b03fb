// Command authority runs the deterministic world-simulation authority
// core: boot validation, then the tick loop until max-ticks or a fatal
// error.
package main

import (
	"errors"
	"fmt"
	"os"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/deterministic-world/authority/internal/bootvalidator"
	appconfig "github.com/deterministic-world/authority/internal/config"
	"github.com/deterministic-world/authority/internal/eventlog"
	"github.com/deterministic-world/authority/internal/hashchain"
	"github.com/deterministic-world/authority/internal/pipeline"
	"github.com/deterministic-world/authority/internal/rngcore"
	"github.com/deterministic-world/authority/internal/snapshot"
	"github.com/deterministic-world/authority/internal/store"
	"github.com/deterministic-world/authority/internal/store/boltstore"
	"github.com/deterministic-world/authority/internal/tickloop"
	"github.com/deterministic-world/authority/internal/worldstate"
)

var log = logrus.WithField("prefix", "main")

var logFormatFlag = &cli.StringFlag{
	Name:  "log-format",
	Usage: "log format: text, fluentd, or json",
	Value: "text",
}

var dataDirFlag = &cli.StringFlag{
	Name:  "datadir",
	Usage: "directory for the bbolt-backed event log and snapshots",
	Value: "./authority-data",
}

func main() {
	app := &cli.App{
		Name:   "authority",
		Usage:  "deterministic world-simulation authority core",
		Flags:  append(appconfig.Flags(), logFormatFlag, dataDirFlag),
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("fatal error")
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a fatal error to its process exit code by cause: a
// Failure anywhere in the chain names its code directly, a bare chain
// break is chain corruption, anything else is a generic failure.
func exitCodeFor(err error) int {
	var failure *bootvalidator.Failure
	if errors.As(err, &failure) {
		return int(failure.Code)
	}
	var chainBreak *hashchain.ChainBreak
	if errors.As(err, &chainBreak) {
		return int(bootvalidator.ExitChainCorruption)
	}
	return int(bootvalidator.ExitBootValidationFailure)
}

func configureLogging(c *cli.Context) error {
	switch format := c.String(logFormatFlag.Name); format {
	case "text":
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		logrus.SetFormatter(formatter)
	case "fluentd":
		f := joonix.NewFormatter()
		if err := joonix.DisableTimestampFormat(f); err != nil {
			return err
		}
		logrus.SetFormatter(f)
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %s", format)
	}
	return nil
}

func run(c *cli.Context) error {
	if err := configureLogging(c); err != nil {
		return err
	}

	cfg, err := appconfig.FromCLI(c)
	if err != nil {
		return &bootvalidator.Failure{Code: bootvalidator.ExitBootValidationFailure, Err: err}
	}

	s, err := boltstore.Open(c.String(dataDirFlag.Name))
	if err != nil {
		return &bootvalidator.Failure{Code: bootvalidator.ExitBootValidationFailure, Err: err}
	}
	defer s.Close()

	universe, rng, err := bootUniverse(cfg, s)
	if err != nil {
		return err
	}

	elog := eventlog.New(s)
	if err := bootvalidator.Validate(cfg, elog); err != nil {
		return err
	}

	pipe := pipeline.New(pipeline.FromAppConfig(cfg))
	snapper := snapshot.New(s)
	loop := tickloop.New(tickloop.Config{
		MaxTicks:         cfg.MaxTicks,
		SnapshotInterval: cfg.SnapshotInterval,
		CheckpointWriter: os.Stdout,
	}, universe, rng, elog, pipe, snapper)

	log.WithFields(logrus.Fields{
		"genesis_seed": cfg.GenesisSeed,
		"max_ticks":    cfg.MaxTicks,
	}).Info("starting authority core")

	// Run's errors already carry their cause: snapshot-capture failures
	// arrive as a Failure with the snapshot-integrity code, chain breaks
	// carry a ChainBreak, and exitCodeFor maps each to its exit code.
	return loop.Run()
}

// bootUniverse resumes from the latest snapshot if one exists, or
// starts a fresh genesis Universe otherwise.
func bootUniverse(cfg appconfig.Config, s store.Store) (*worldstate.Universe, *rngcore.Core, error) {
	snapper := snapshot.New(s)
	rec, ok, err := snapper.Latest()
	if err != nil {
		return nil, nil, &bootvalidator.Failure{Code: bootvalidator.ExitSnapshotIntegrity, Err: err}
	}
	if !ok {
		return worldstate.NewUniverse(cfg.GenesisSeed), rngcore.New(cfg.GenesisSeed), nil
	}
	universe, rng, err := snapper.Restore(rec)
	if err != nil {
		return nil, nil, &bootvalidator.Failure{Code: bootvalidator.ExitSnapshotIntegrity, Err: err}
	}
	return universe, rng, nil
}
