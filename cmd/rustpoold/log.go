package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/AndesWebDesign/rustpool/poolcfg"
	"github.com/AndesWebDesign/rustpool/poolchain"
	"github.com/AndesWebDesign/rustpool/poolcodec"
	"github.com/AndesWebDesign/rustpool/poolhash"
	"github.com/AndesWebDesign/rustpool/pooldb"
	"github.com/AndesWebDesign/rustpool/poolproto"
)

// logRotator writes rotated log files when a log file path is configured.
// It is nil when running with stdout-only logging. Grounded on the
// btclog+jrick/logrotate pairing already present in this module's go.mod
// — the same pairing used throughout the btcsuite family this codebase's
// package layout descends from.
var logRotator *rotator.Rotator

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("create log rotator: %w", err)
	}
	logRotator = r
	return nil
}

// backendLog is the root btclog backend every subsystem logger is carved
// from via backendLog.Logger(subsystem).
var backendLog = btclog.NewBackend(logWriter{})

var subsystemLoggers = map[string]btclog.Logger{
	"PCOD": backendLog.Logger("PCOD"),
	"PHSH": backendLog.Logger("PHSH"),
	"PDB":  backendLog.Logger("PDB"),
	"PCHN": backendLog.Logger("PCHN"),
	"PRTO": backendLog.Logger("PRTO"),
	"RPLD": backendLog.Logger("RPLD"),
}

// initLogging wires every package's UseLogger slot to a named subsystem
// logger and sets the shared level from cfg.LogLevel. Grounded on
// original_source/src/logging/mod.rs's init_logging, which does the same
// subsystem-by-subsystem wiring against the `log`/`fern` crates.
func initLogging(cfg poolcfg.Config) {
	level, ok := btclog.LevelFromString(cfg.LogLevel)
	if !ok {
		level = btclog.LevelInfo
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}

	poolcodec.UseLogger(subsystemLoggers["PCOD"])
	poolhash.UseLogger(subsystemLoggers["PHSH"])
	pooldb.UseLogger(subsystemLoggers["PDB"])
	poolchain.UseLogger(subsystemLoggers["PCHN"])
	poolproto.UseLogger(subsystemLoggers["PRTO"])
}

// rpcdLog is main's own logger: a top-level subsystem logger for the
// daemon entry point itself, distinct from each library package's logger.
var rpcdLog = subsystemLoggers["RPLD"]
