package dedupe

import "time"

// Option applies a configuration option to the State.
type Option func(*State)

// WithCapacity bounds the exact contributor set; past it the state degrades
// to the approximate membership filter.
func WithCapacity(capacity int) Option {
	return func(s *State) {
		if capacity >= 1 {
			s.capacity = capacity
		}
	}
}

// WithFalsePositiveRate sets the accepted false-positive rate of the
// approximate membership filter.
func WithFalsePositiveRate(rate float64) Option {
	return func(s *State) {
		if rate > 0 && rate < 1 {
			s.fpRate = rate
		}
	}
}

// WithWindow sets the rotation window after which the whole state clears.
func WithWindow(window time.Duration) Option {
	return func(s *State) {
		if window > 0 {
			s.window = window
		}
	}
}
