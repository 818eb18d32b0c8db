package repository

import (
	"context"
	"sync"

	"github.com/okian/squid/internal/domain/model"
)

// MemoryStore implements Store without durability. It backs memory-only
// mode (no snapshot path configured) and tests.
type MemoryStore struct {
	mu   sync.Mutex
	snap model.Snapshot
	set  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Persist replaces the held snapshot.
func (m *MemoryStore) Persist(_ context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]model.ScoreEntry, len(snap.Entries))
	copy(entries, snap.Entries)
	snap.Entries = entries
	m.snap = snap
	m.set = true
	return nil
}

// Restore returns the held snapshot, if any.
func (m *MemoryStore) Restore(_ context.Context) (model.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return model.Snapshot{}, false, nil
	}
	entries := make([]model.ScoreEntry, len(m.snap.Entries))
	copy(entries, m.snap.Entries)
	out := m.snap
	out.Entries = entries
	return out, true, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
