// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - External errors are wrapped via this package's sentinel kinds.
package config

import (
	"runtime"
)

// Ratio mode names accepted by the aggregator configuration.
const (
	RatioModeDominant     = "dominant"
	RatioModeThresholdSum = "threshold_sum"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" keeps everything in RAM.
	DBPath string `koanf:"db_path"`

	// ModelPath locates the trained classifier artifact. Empty disables the
	// model and the ratio-threshold fallback carries facial categorization.
	ModelPath string `koanf:"model_path"`

	// RatioMode selects the negative-affect ratio definition:
	// "dominant" or "threshold_sum".
	RatioMode string `koanf:"ratio_mode"`

	// FrameQueueSize bounds the in-memory frame queue.
	FrameQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of frame persist workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the frame idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":8080",
		DBPath:         "aula.db",
		ModelPath:      "",
		RatioMode:      RatioModeDominant,
		FrameQueueSize: 50_000,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     200_000,
	}
}
