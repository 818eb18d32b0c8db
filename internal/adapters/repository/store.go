// Package repository persists and restores point-in-time score snapshots.
//
// The core is agnostic to the backing mechanism: anything satisfying Store
// works as long as persist/restore round-trips every ScoreEntry field
// exactly. Persistence failures are never fatal to ingestion; the service
// degrades to memory-only mode.
package repository

import (
	"context"

	"github.com/okian/squid/internal/domain/model"
)

// Store is the narrow persistence contract consumed by the core.
type Store interface {
	// Persist writes the snapshot, replacing any previous one.
	Persist(ctx context.Context, snap model.Snapshot) error

	// Restore loads the most recent snapshot. The second return value is
	// false when no snapshot exists.
	Restore(ctx context.Context) (model.Snapshot, bool, error)

	// Close releases the backing resources.
	Close() error
}
