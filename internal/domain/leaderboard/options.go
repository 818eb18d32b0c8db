package leaderboard

import "time"

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithSize sets the maximum number of ranked entries (N).
func WithSize(size int) Option {
	return func(b *Board) {
		if size >= 1 {
			b.size = size
		}
	}
}

// WithInterval sets the reconciliation period, which is also the staleness
// bound of reads.
func WithInterval(interval time.Duration) Option {
	return func(b *Board) {
		if interval > 0 {
			b.interval = interval
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}
