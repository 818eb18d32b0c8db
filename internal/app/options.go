package service

import (
	"time"

	"github.com/okian/squid/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithHalfLife sets the score half-life.
func WithHalfLife(halfLife time.Duration) Option {
	return func(s *Service) {
		if halfLife > 0 {
			s.halfLife = halfLife
		}
	}
}

// WithBaseWeight sets the weight of a first occurrence.
func WithBaseWeight(weight float64) Option {
	return func(s *Service) {
		if weight > 0 {
			s.baseWeight = weight
		}
	}
}

// WithScoreFloor sets the eviction threshold for decayed terms.
func WithScoreFloor(floor float64) Option {
	return func(s *Service) {
		if floor > 0 {
			s.scoreFloor = floor
		}
	}
}

// WithDedupeCapacity sets the exact contributor-tracking limit per term.
func WithDedupeCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.dedupeCapacity = capacity
		}
	}
}

// WithDedupeFalsePositiveRate sets the approximate-mode false positive rate.
func WithDedupeFalsePositiveRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 && rate < 1 {
			s.dedupeFPRate = rate
		}
	}
}

// WithLeaderboardSize sets how many terms the leaderboard retains.
func WithLeaderboardSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.leaderboardSize = size
		}
	}
}

// WithReconcileInterval sets the leaderboard refresh cadence.
func WithReconcileInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.reconcileInterval = interval
		}
	}
}

// WithSnapshotInterval sets the persistence cadence.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithSweepInterval sets the eviction sweep cadence.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithSnapshotPath sets the sqlite snapshot file. Empty keeps snapshots
// in memory only.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.snapshotPath = path
	}
}

// WithQueueSize sets the maximum size of the occurrence queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithShardCount sets the scorer shard count.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
