package server

import (
	"github.com/stayscore/stayscore/internal/analyzer"
	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/runner"
	"github.com/stayscore/stayscore/internal/scheduler"
)

// Config wires the API server together.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// DBPath is the SQLite database file. Empty means an in-memory
	// database, which is what tests use.
	DBPath string

	// Scheduler tuning.
	Scheduler scheduler.Config

	// Analyzer configuration, used when Runner is nil.
	Analyzer analyzer.Config

	// Runner overrides the built-in analyzer (tests inject stubs here).
	Runner runner.AuditRunner

	// Logger defaults to a stdout JSON logger when nil.
	Logger logging.Logger
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		DBPath:     "stayscore.db",
		Scheduler:  scheduler.DefaultConfig(),
		Analyzer:   analyzer.DefaultConfig(),
	}
}
