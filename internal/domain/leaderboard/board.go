// Package leaderboard maintains the ranked top-N view over scorer state.
//
// The board is a derived cache, never the authoritative store. It is
// reconciled on a periodic timer rather than on every ingest: reads reflect
// scorer truth within one reconciliation interval, an explicit trade-off
// favoring ingest throughput over read-after-write consistency.
package leaderboard

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/squid/pkg/metrics"
)

// Default board configuration constants.
const (
	defaultSize     = 100
	defaultInterval = time.Second
)

// Entry is one ranked row.
type Entry struct {
	Term       string  `json:"term"`
	Score      float64 `json:"score"`
	LastUpdate int64   `json:"-"`
}

// View is an immutable read of the board: the ordered entries plus the
// as-of time and version of the reconciliation that produced them.
type View struct {
	AsOf    time.Time `json:"as_of"`
	Version uint64    `json:"version"`
	Entries []Entry   `json:"entries"`
}

// Source provides decayed scores for candidate terms. The scorer implements it.
type Source interface {
	// DrainTouched returns terms ingested since the previous drain.
	DrainTouched() []string
	// Peek returns the decayed score and lastUpdate of term at now.
	Peek(term string, now time.Time) (float64, int64, bool)
}

// Board holds at most N entries ordered by score.
type Board struct {
	source   Source
	size     int
	interval time.Duration
	now      func() time.Time

	// members and reserve are only touched by reconcile passes; the lock
	// also covers manual Reconcile calls racing the background loop.
	// reserve holds up to size runner-up terms so that an evicted member
	// can be backfilled without rescanning the vocabulary.
	mu      sync.Mutex
	members map[string]struct{}
	reserve map[string]struct{}

	view    atomic.Pointer[View]
	version atomic.Uint64

	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// New constructs a Board over the given score source.
func New(source Source, opts ...Option) *Board {
	b := &Board{
		source:   source,
		size:     defaultSize,
		interval: defaultInterval,
		now:      time.Now,
		members:  make(map[string]struct{}),
		reserve:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.view.Store(&View{AsOf: b.now(), Version: 0, Entries: nil})
	return b
}

// Start launches the periodic reconciliation loop.
func (b *Board) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			case <-ticker.C:
				b.Reconcile(b.now())
			}
		}
	}()
}

// Close stops the reconciliation loop.
func (b *Board) Close() error {
	b.once.Do(func() { close(b.stopCh) })
	b.wg.Wait()
	return nil
}

// Reconcile recomputes the board from a bounded candidate set: the current
// members, the retained runner-ups, and terms touched since the last pass.
// Uniform decay preserves pairwise order between passes, so an untouched
// term outside these sets can never displace a member; the runner-ups let
// the board backfill to N when a member is evicted from the source.
// Cost is O(candidates), never a scan of the whole vocabulary.
func (b *Board) Reconcile(now time.Time) {
	start := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	candidates := make(map[string]struct{}, len(b.members)+len(b.reserve))
	for term := range b.members {
		candidates[term] = struct{}{}
	}
	for term := range b.reserve {
		candidates[term] = struct{}{}
	}
	for _, term := range b.source.DrainTouched() {
		candidates[term] = struct{}{}
	}

	entries := make([]Entry, 0, len(candidates))
	for term := range candidates {
		score, last, ok := b.source.Peek(term, now)
		if !ok {
			continue // evicted since the last pass
		}
		entries = append(entries, Entry{Term: term, Score: score, LastUpdate: last})
	}

	// Rank order: score desc, then more recent lastUpdate, then term asc.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].LastUpdate != entries[j].LastUpdate {
			return entries[i].LastUpdate > entries[j].LastUpdate
		}
		return entries[i].Term < entries[j].Term
	})
	reserve := make(map[string]struct{})
	if len(entries) > b.size {
		for _, e := range entries[b.size:] {
			if len(reserve) == b.size {
				break
			}
			reserve[e.Term] = struct{}{}
		}
		entries = entries[:b.size]
	}
	b.reserve = reserve

	members := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		members[e.Term] = struct{}{}
	}
	b.members = members

	b.view.Store(&View{
		AsOf:    now,
		Version: b.version.Add(1),
		Entries: entries,
	})

	ms := float64(time.Since(start).Milliseconds())
	metrics.RecordReconcileDuration(ms)
	metrics.IncrementReconcileCount()
	metrics.UpdateReconcileLastUnix(float64(now.Unix()))
	metrics.UpdateLeaderboardSize(len(entries))
}

// Top returns the first k ranked entries from the last published view.
// k greater than the board size clamps to the board size; k < 1 is rejected.
// The call copies from an atomic snapshot and never blocks on scorer state.
func (b *Board) Top(ctx context.Context, k int) (View, error) {
	if k < 1 {
		return View{}, ErrInvalidLimit
	}
	if k > b.size {
		k = b.size
	}
	v := b.view.Load()
	if k > len(v.Entries) {
		k = len(v.Entries)
	}
	out := make([]Entry, k)
	copy(out, v.Entries[:k])
	return View{AsOf: v.AsOf, Version: v.Version, Entries: out}, nil
}

// Size returns the configured maximum number of entries.
func (b *Board) Size() int {
	return b.size
}
