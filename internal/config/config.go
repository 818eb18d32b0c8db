// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - Validation happens once at startup and is fatal on invalid values.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// HalfLifeSeconds is the interval over which a term's score halves
	// absent new occurrences. Must be > 0.
	HalfLifeSeconds float64 `koanf:"half_life_seconds"`

	// BaseWeight is the score contribution of a first occurrence.
	BaseWeight float64 `koanf:"base_weight"`

	// ScoreFloor is the decayed score below which a term is evicted.
	// Must be >= 0 and < 1.
	ScoreFloor float64 `koanf:"score_floor"`

	// DedupeCapacity bounds exact per-term contributor tracking; beyond it
	// the state degrades to an approximate membership filter. Must be >= 1.
	DedupeCapacity int `koanf:"dedupe_capacity"`

	// DedupeFPRate is the accepted false-positive rate of the approximate
	// membership filter.
	DedupeFPRate float64 `koanf:"dedupe_fp_rate"`

	// LeaderboardSize is the maximum number of ranked terms (N). Must be >= 1.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// ReconcileIntervalMS is the leaderboard reconciliation period and its
	// staleness bound. Must be > 0.
	ReconcileIntervalMS int `koanf:"reconcile_interval_ms"`

	// SnapshotIntervalMS is the persistence period. Must be > 0.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// SweepIntervalMS is the eviction sweep period. Must be > 0.
	SweepIntervalMS int `koanf:"sweep_interval_ms"`

	// SnapshotPath is the SQLite file backing snapshots. Empty disables
	// persistence (memory-only mode).
	SnapshotPath string `koanf:"snapshot_path"`

	// EventQueueSize bounds the in-memory occurrence queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount configures the number of scorer shards.
	ShardCount int `koanf:"shard_count"`

	// MaxTermLength bounds accepted term length at the ingest boundary.
	MaxTermLength int `koanf:"max_term_length"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		HalfLifeSeconds:     3600,
		BaseWeight:          1.0,
		ScoreFloor:          0.01,
		DedupeCapacity:      128,
		DedupeFPRate:        0.01,
		LeaderboardSize:     100,
		ReconcileIntervalMS: 1000,
		SnapshotIntervalMS:  60_000,
		SweepIntervalMS:     30_000,
		SnapshotPath:        "./data/squid.db",
		EventQueueSize:      100_000,
		WorkerCount:         runtime.NumCPU() * 4,
		ShardCount:          32,
		MaxTermLength:       64,
	}
}

// Validate checks startup invariants. Any violation is fatal: the process
// must not start on an invalid configuration.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.HalfLifeSeconds <= 0:
		return fmt.Errorf("%w: half_life_seconds must be > 0", ErrInvalidConfig)
	case c.BaseWeight <= 0:
		return fmt.Errorf("%w: base_weight must be > 0", ErrInvalidConfig)
	case c.ScoreFloor < 0 || c.ScoreFloor >= 1:
		return fmt.Errorf("%w: score_floor must be in [0, 1)", ErrInvalidConfig)
	case c.DedupeCapacity < 1:
		return fmt.Errorf("%w: dedupe_capacity must be >= 1", ErrInvalidConfig)
	case c.DedupeFPRate <= 0 || c.DedupeFPRate >= 1:
		return fmt.Errorf("%w: dedupe_fp_rate must be in (0, 1)", ErrInvalidConfig)
	case c.LeaderboardSize < 1:
		return fmt.Errorf("%w: leaderboard_size must be >= 1", ErrInvalidConfig)
	case c.ReconcileIntervalMS <= 0:
		return fmt.Errorf("%w: reconcile_interval_ms must be > 0", ErrInvalidConfig)
	case c.SnapshotIntervalMS <= 0:
		return fmt.Errorf("%w: snapshot_interval_ms must be > 0", ErrInvalidConfig)
	case c.SweepIntervalMS <= 0:
		return fmt.Errorf("%w: sweep_interval_ms must be > 0", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be >= 1", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be >= 1", ErrInvalidConfig)
	case c.ShardCount < 1:
		return fmt.Errorf("%w: shard_count must be >= 1", ErrInvalidConfig)
	case c.MaxTermLength < 1:
		return fmt.Errorf("%w: max_term_length must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// HalfLife returns the configured half-life as a duration.
func (c *Config) HalfLife() time.Duration {
	return time.Duration(c.HalfLifeSeconds * float64(time.Second))
}

// ReconcileInterval returns the reconciliation period.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMS) * time.Millisecond
}

// SnapshotInterval returns the persistence period.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

// SweepInterval returns the eviction sweep period.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMS) * time.Millisecond
}
