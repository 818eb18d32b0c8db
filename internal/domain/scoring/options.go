package scoring

import "time"

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithHalfLife sets the decay half-life. The per-term dedup window tracks it.
func WithHalfLife(halfLife time.Duration) Option {
	return func(s *Scorer) {
		if halfLife > 0 {
			s.halfLife = halfLife
		}
	}
}

// WithBaseWeight sets the default weight of a first occurrence.
func WithBaseWeight(weight float64) Option {
	return func(s *Scorer) {
		if weight > 0 {
			s.baseWeight = weight
		}
	}
}

// WithScoreFloor sets the decayed score below which entries are evicted.
func WithScoreFloor(floor float64) Option {
	return func(s *Scorer) {
		if floor >= 0 && floor < 1 {
			s.floor = floor
		}
	}
}

// WithShardCount sets the number of shards backing the score map.
func WithShardCount(count int) Option {
	return func(s *Scorer) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithDampening sets the contributor dampening policy.
func WithDampening(fn DampeningFunc) Option {
	return func(s *Scorer) {
		if fn != nil {
			s.dampening = fn
		}
	}
}

// WithDedupeCapacity bounds exact contributor tracking per term.
func WithDedupeCapacity(capacity int) Option {
	return func(s *Scorer) {
		if capacity >= 1 {
			s.dedupeCapacity = capacity
		}
	}
}

// WithDedupeFalsePositiveRate sets the accepted false-positive rate of the
// approximate contributor filter.
func WithDedupeFalsePositiveRate(rate float64) Option {
	return func(s *Scorer) {
		if rate > 0 && rate < 1 {
			s.dedupeFPRate = rate
		}
	}
}
