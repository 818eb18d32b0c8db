// Package model contains domain models passed between layers.
package model

import "time"

// Event represents one observed mention of a term by a contributor.
// Events are ephemeral: they flow through the ingest queue and are never
// persisted individually.
type Event struct {
	MessageID   string    // id of the originating message, for tracing
	Term        string    // normalized term key
	Contributor string    // contributor identifier
	TS          time.Time // occurrence time
}

// ScoreEntry is the exported snapshot tuple for one term.
type ScoreEntry struct {
	Term       string  `json:"term"`
	Score      float64 `json:"score"`       // stored score at capture time, >= 0
	LastUpdate int64   `json:"last_update"` // unix nanoseconds, never decreases per term
}

// SnapshotVersion identifies the current snapshot schema.
const SnapshotVersion = 1

// Snapshot is a versioned, point-in-time copy of all score state.
// It is the unit of durability: persisting and restoring a snapshot must
// round-trip every ScoreEntry field exactly.
type Snapshot struct {
	Version int          `json:"version"`
	TakenAt time.Time    `json:"taken_at"`
	Entries []ScoreEntry `json:"entries"`
}
