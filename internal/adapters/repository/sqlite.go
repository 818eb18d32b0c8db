package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/squid/internal/domain/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite file (pure Go driver,
// no CGO). Scores are stored as raw float64 bits so round-trips are exact.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	version     INTEGER NOT NULL,
	taken_at_ns INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_entries (
	snapshot_id    INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	term           TEXT    NOT NULL,
	score_bits     INTEGER NOT NULL,
	last_update_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_snapshot ON snapshot_entries(snapshot_id);
`

// OpenSQLite opens (or creates) the snapshot database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLiteMemory opens an in-memory snapshot database, for tests.
func OpenSQLiteMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	s := &SQLiteStore{db: db, path: ":memory:"}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Persist writes the snapshot in one transaction and drops older generations.
func (s *SQLiteStore) Persist(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrPersist, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (version, taken_at_ns) VALUES (?, ?)",
		snap.Version, snap.TakenAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert snapshot: %w", ErrPersist, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: snapshot id: %w", ErrPersist, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_entries (snapshot_id, term, score_bits, last_update_ns) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: prepare entries: %w", ErrPersist, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range snap.Entries {
		if _, err := stmt.ExecContext(ctx, id, e.Term, int64(math.Float64bits(e.Score)), e.LastUpdate); err != nil {
			return fmt.Errorf("%w: insert entry %q: %w", ErrPersist, e.Term, err)
		}
	}

	// Only the latest generation matters for recovery.
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE id != ?", id); err != nil {
		return fmt.Errorf("%w: prune: %w", ErrPersist, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrPersist, err)
	}
	return nil
}

// Restore loads the most recent snapshot, if any.
func (s *SQLiteStore) Restore(ctx context.Context) (model.Snapshot, bool, error) {
	var (
		id      int64
		version int
		takenNS int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, version, taken_at_ns FROM snapshots ORDER BY id DESC LIMIT 1").
		Scan(&id, &version, &takenNS)
	if err == sql.ErrNoRows {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("%w: head: %w", ErrRestore, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT term, score_bits, last_update_ns FROM snapshot_entries WHERE snapshot_id = ? ORDER BY term ASC", id)
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("%w: entries: %w", ErrRestore, err)
	}
	defer func() { _ = rows.Close() }()

	snap := model.Snapshot{
		Version: version,
		TakenAt: time.Unix(0, takenNS),
	}
	for rows.Next() {
		var (
			term      string
			scoreBits int64
			lastNS    int64
		)
		if err := rows.Scan(&term, &scoreBits, &lastNS); err != nil {
			return model.Snapshot{}, false, fmt.Errorf("%w: scan: %w", ErrRestore, err)
		}
		snap.Entries = append(snap.Entries, model.ScoreEntry{
			Term:       term,
			Score:      math.Float64frombits(uint64(scoreBits)),
			LastUpdate: lastNS,
		})
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("%w: rows: %w", ErrRestore, err)
	}
	return snap, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
