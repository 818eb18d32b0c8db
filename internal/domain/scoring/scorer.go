// Package scoring owns the authoritative, time-decayed score state per term.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/squid/internal/domain/dedupe"
	"github.com/okian/squid/internal/domain/model"
	"github.com/okian/squid/pkg/metrics"
)

// Default scoring configuration constants.
const (
	defaultHalfLife   = time.Hour
	defaultBaseWeight = 1.0
	defaultScoreFloor = 0.01
	defaultShardCount = 32
)

// DampeningFunc maps a base weight and a contributor's repeat count within
// the active window to the effective score contribution. n == 0 means the
// contributor is new for the term.
type DampeningFunc func(base float64, n int) float64

// DiminishingWeight is the default dampening policy: base/(n+1) for the
// n-th repeat. Repeats fade rather than being hard-rejected, avoiding
// abrupt discontinuities.
func DiminishingWeight(base float64, n int) float64 {
	return base / float64(n+1)
}

// HardCap ignores repeats entirely: only the first contribution per window
// counts. Available as an alternative policy.
func HardCap(base float64, n int) float64 {
	if n > 0 {
		return 0
	}
	return base
}

// entry is the authoritative per-term state. The limiter shares the owning
// shard's critical section: both are always updated together.
type entry struct {
	storedScore float64
	lastUpdate  int64 // unix nanos, never decreases
	limiter     *dedupe.State
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
	// touched collects terms ingested since the last drain. Uniform decay
	// preserves pairwise score order, so only touched terms can change the
	// ranking; this is what bounds leaderboard reconciliation.
	touched map[string]struct{}
}

// Scorer applies continuous exponential decay and dampened additive weight
// on each occurrence. State is sharded by term so unrelated terms never
// contend.
type Scorer struct {
	shards     []*shard
	lambda     float64 // ln2 / half-life seconds
	halfLife   time.Duration
	baseWeight float64
	floor      float64
	dampening  DampeningFunc
	shardCount int

	dedupeCapacity int
	dedupeFPRate   float64
}

// New constructs a Scorer with default configuration.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		halfLife:   defaultHalfLife,
		baseWeight: defaultBaseWeight,
		floor:      defaultScoreFloor,
		dampening:  DiminishingWeight,
		shardCount: defaultShardCount,
		// zero dedupe knobs leave the limiter defaults in place
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lambda = math.Ln2 / s.halfLife.Seconds()
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			entries: make(map[string]*entry),
			touched: make(map[string]struct{}),
		}
	}
	return s
}

func (s *Scorer) shardFor(term string) *shard {
	return s.shards[xxhash.Sum64String(term)%uint64(len(s.shards))]
}

// decayFactor returns exp(-lambda * elapsed) for non-negative elapsed nanos.
func (s *Scorer) decayFactor(elapsedNanos int64) float64 {
	if elapsedNanos <= 0 {
		return 1
	}
	return math.Exp(-s.lambda * (time.Duration(elapsedNanos).Seconds()))
}

// Ingest applies one occurrence of term by contributor at ts. A non-positive
// baseWeight falls back to the configured default.
//
// The stored score decays by exp(-lambda*dt) up to ts, then gains the
// dampened weight, and lastUpdate advances. An occurrence older than
// lastUpdate never rewinds the clock: elapsed time clamps to zero and the
// late weight is discounted by its age instead, so replaying events in any
// order converges to the same score.
func (s *Scorer) Ingest(ctx context.Context, term, contributor string, ts time.Time, baseWeight float64) error {
	if term == "" {
		return fmt.Errorf("scoring.ingest: %w", ErrInvalidTerm)
	}
	if ts.IsZero() {
		return fmt.Errorf("scoring.ingest: %w", ErrInvalidTimestamp)
	}
	if baseWeight <= 0 {
		baseWeight = s.baseWeight
	}
	tsn := ts.UnixNano()

	sh := s.shardFor(term)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[term]
	if !ok {
		e = &entry{
			lastUpdate: tsn,
			limiter: dedupe.NewState(
				dedupe.WithCapacity(s.dedupeCapacity),
				dedupe.WithFalsePositiveRate(s.dedupeFPRate),
				dedupe.WithWindow(s.halfLife),
			),
		}
		sh.entries[term] = e
	}

	late := e.lastUpdate - tsn // > 0 when the event arrived out of order
	if late < 0 {
		late = 0
	}
	observeAt := tsn
	if observeAt < e.lastUpdate {
		observeAt = e.lastUpdate
	}

	repeats := e.limiter.Observe(contributor, time.Unix(0, observeAt))
	weight := s.dampening(baseWeight, repeats)
	if weight < 0 || math.IsNaN(weight) {
		weight = 0
	}

	if tsn > e.lastUpdate {
		e.storedScore *= s.decayFactor(tsn - e.lastUpdate)
		e.lastUpdate = tsn
	}
	e.storedScore += weight * s.decayFactor(late)
	if e.storedScore < 0 || math.IsNaN(e.storedScore) {
		e.storedScore = 0
	}

	sh.touched[term] = struct{}{}
	metrics.RecordEventScored()
	return nil
}

// Score returns the decayed score of term at now without mutating state.
// The result is a pure function of (storedScore, lastUpdate, now), so every
// caller observes identical values regardless of read frequency.
func (s *Scorer) Score(term string, now time.Time) (float64, bool) {
	score, _, ok := s.Peek(term, now)
	return score, ok
}

// Peek returns the decayed score and lastUpdate of term at now.
func (s *Scorer) Peek(term string, now time.Time) (float64, int64, bool) {
	sh := s.shardFor(term)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[term]
	if !ok {
		return 0, 0, false
	}
	return e.storedScore * s.decayFactor(now.UnixNano() - e.lastUpdate), e.lastUpdate, true
}

// DrainTouched returns the terms ingested since the previous drain and
// resets the tracking. The leaderboard uses this as its candidate set.
func (s *Scorer) DrainTouched() []string {
	var out []string
	for _, sh := range s.shards {
		sh.mu.Lock()
		for term := range sh.touched {
			out = append(out, term)
		}
		if len(sh.touched) > 0 {
			sh.touched = make(map[string]struct{})
		}
		sh.mu.Unlock()
	}
	return out
}

// Sweep removes entries whose decayed score at now dropped below the floor,
// bounding memory against unbounded vocabulary growth. It returns the number
// of evicted terms.
func (s *Scorer) Sweep(now time.Time) int {
	start := time.Now()
	nowNanos := now.UnixNano()
	evicted := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for term, e := range sh.entries {
			if e.storedScore*s.decayFactor(nowNanos-e.lastUpdate) < s.floor {
				delete(sh.entries, term)
				delete(sh.touched, term)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	if evicted > 0 {
		metrics.RecordTermsEvicted(evicted)
	}
	metrics.RecordSweepDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateTermsTracked(s.Count())
	return evicted
}

// Count returns the number of tracked terms.
func (s *Scorer) Count() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

// Snapshot captures a versioned, term-ordered copy of all score state.
func (s *Scorer) Snapshot(now time.Time) model.Snapshot {
	var entries []model.ScoreEntry
	for _, sh := range s.shards {
		sh.mu.Lock()
		for term, e := range sh.entries {
			entries = append(entries, model.ScoreEntry{
				Term:       term,
				Score:      e.storedScore,
				LastUpdate: e.lastUpdate,
			})
		}
		sh.mu.Unlock()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })
	return model.Snapshot{
		Version: model.SnapshotVersion,
		TakenAt: now,
		Entries: entries,
	}
}

// Restore replaces all score state with the snapshot's entries. Limiter
// state is not part of snapshots and starts fresh; restored terms count as
// touched so the next reconciliation picks them up.
func (s *Scorer) Restore(snap model.Snapshot) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]*entry)
		sh.touched = make(map[string]struct{})
		sh.mu.Unlock()
	}
	for _, se := range snap.Entries {
		if se.Term == "" || se.Score < 0 || math.IsNaN(se.Score) {
			continue
		}
		sh := s.shardFor(se.Term)
		sh.mu.Lock()
		sh.entries[se.Term] = &entry{
			storedScore: se.Score,
			lastUpdate:  se.LastUpdate,
			limiter: dedupe.NewState(
				dedupe.WithCapacity(s.dedupeCapacity),
				dedupe.WithFalsePositiveRate(s.dedupeFPRate),
				dedupe.WithWindow(s.halfLife),
			),
		}
		sh.touched[se.Term] = struct{}{}
		sh.mu.Unlock()
	}
	metrics.UpdateTermsTracked(s.Count())
}

// HalfLife returns the configured half-life.
func (s *Scorer) HalfLife() time.Duration {
	return s.halfLife
}
