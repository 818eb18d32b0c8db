// Package dedupe bounds the scoring influence of repeated activity from a
// single contributor on a single term.
package dedupe

import (
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/okian/squid/pkg/metrics"
)

// Default limiter configuration constants.
const (
	defaultCapacity = 128
	defaultFPRate   = 0.01
	defaultWindow   = time.Hour

	// approxScale sizes the membership filter relative to the exact
	// capacity so it stays useful well past the degrade point while
	// remaining fixed-size.
	approxScale = 64
)

type mode uint8

const (
	modeExact mode = iota
	modeApprox
)

// State tracks contributors seen for one term within the active rotation
// window. It starts as an exact counting set and degrades to a fixed-size
// probabilistic membership filter once capacity distinct contributors have
// been seen. In approximate mode only membership is known, so repeats report
// a count of 1.
//
// State carries no lock of its own: it lives inside a scorer entry and is
// guarded by the owning shard's critical section.
type State struct {
	capacity    int
	fpRate      float64
	window      time.Duration
	mode        mode
	exact       map[string]int
	approx      *bloom.BloomFilter
	windowStart int64 // unix nanos
}

// NewState creates limiter state for a single term.
func NewState(opts ...Option) *State {
	s := &State{
		capacity: defaultCapacity,
		fpRate:   defaultFPRate,
		window:   defaultWindow,
		mode:     modeExact,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.exact = make(map[string]int)
	return s
}

// Observe records one occurrence by contributor at the given time and
// returns how many times this contributor was already seen within the
// active window (0 = first sighting).
func (s *State) Observe(contributor string, now time.Time) int {
	s.maybeRotate(now)

	if s.mode == modeExact {
		if n, ok := s.exact[contributor]; ok {
			s.exact[contributor] = n + 1
			return n
		}
		if len(s.exact) >= s.capacity {
			s.degrade()
			return s.observeApprox(contributor)
		}
		s.exact[contributor] = 1
		return 0
	}

	return s.observeApprox(contributor)
}

func (s *State) observeApprox(contributor string) int {
	if s.approx.TestAndAddString(contributor) {
		return 1
	}
	return 0
}

// degrade converts the exact set into a fixed-size membership filter.
// Contributors already counted keep their membership; per-contributor
// counts are lost by design of the approximate representation.
func (s *State) degrade() {
	s.approx = bloom.NewWithEstimates(uint(s.capacity)*approxScale, s.fpRate)
	for c := range s.exact {
		s.approx.AddString(c)
	}
	s.exact = nil
	s.mode = modeApprox
	metrics.RecordDedupeApproxConversion()
}

// maybeRotate clears the whole state once the window elapses, so dedup
// semantics track recency and per-term memory stays bounded regardless of
// contributor churn.
func (s *State) maybeRotate(now time.Time) {
	ts := now.UnixNano()
	if s.windowStart == 0 {
		s.windowStart = ts
		return
	}
	if ts-s.windowStart < int64(s.window) {
		return
	}
	s.exact = make(map[string]int)
	s.approx = nil
	s.mode = modeExact
	s.windowStart = ts
	metrics.RecordDedupeRotation()
}

// Approximate reports whether the state has degraded to the membership filter.
func (s *State) Approximate() bool {
	return s.mode == modeApprox
}

// Distinct returns the number of distinct contributors tracked exactly.
// In approximate mode the exact count is no longer known and -1 is returned.
func (s *State) Distinct() int {
	if s.mode == modeApprox {
		return -1
	}
	return len(s.exact)
}
