// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/squid/internal/adapters/mq/queue"
	workerpool "github.com/okian/squid/internal/adapters/mq/worker"
	"github.com/okian/squid/internal/adapters/repository"
	"github.com/okian/squid/internal/domain/leaderboard"
	"github.com/okian/squid/internal/domain/model"
	"github.com/okian/squid/internal/domain/scoring"
	"github.com/okian/squid/pkg/logger"
	"github.com/okian/squid/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerMultiplier = 4
	defaultQueueSize        = 100_000
	defaultHalfLife         = time.Hour
	defaultBaseWeight       = 1.0
	defaultScoreFloor       = 0.01
	defaultDedupeCapacity   = 128
	defaultDedupeFPRate     = 0.01
	defaultLeaderboardSize  = 100
	defaultReconcile        = time.Second
	defaultSnapshot         = time.Minute
	defaultSweep            = 30 * time.Second
)

// Service implements the API dependencies for the trend system.
type Service struct {
	mu sync.RWMutex

	// Core components
	scorer *scoring.Scorer
	board  *leaderboard.Board
	queue  eventqueue.Queue
	pool   *workerpool.Pool
	store  repository.Store

	// Configuration
	halfLife          time.Duration
	baseWeight        float64
	scoreFloor        float64
	dedupeCapacity    int
	dedupeFPRate      float64
	leaderboardSize   int
	reconcileInterval time.Duration
	snapshotInterval  time.Duration
	sweepInterval     time.Duration
	snapshotPath      string
	queueSize         int
	workerCount       int
	shardCount        int

	// State
	started bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		halfLife:          defaultHalfLife,
		baseWeight:        defaultBaseWeight,
		scoreFloor:        defaultScoreFloor,
		dedupeCapacity:    defaultDedupeCapacity,
		dedupeFPRate:      defaultDedupeFPRate,
		leaderboardSize:   defaultLeaderboardSize,
		reconcileInterval: defaultReconcile,
		snapshotInterval:  defaultSnapshot,
		sweepInterval:     defaultSweep,
		queueSize:         defaultQueueSize,
		workerCount:       runtime.NumCPU() * defaultWorkerMultiplier,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting trend service...")

	if err := s.openStore(ctx); err != nil {
		return err
	}

	s.scorer = scoring.New(
		scoring.WithHalfLife(s.halfLife),
		scoring.WithBaseWeight(s.baseWeight),
		scoring.WithScoreFloor(s.scoreFloor),
		scoring.WithShardCount(s.shardCount),
		scoring.WithDedupeCapacity(s.dedupeCapacity),
		scoring.WithDedupeFalsePositiveRate(s.dedupeFPRate),
	)
	s.restore(ctx)

	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	metrics.UpdateQueueCapacity(s.queueSize)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.scorer,
		workerpool.WithBaseWeight(s.baseWeight),
	)
	s.pool.Start(ctx)

	s.board = leaderboard.New(s.scorer,
		leaderboard.WithSize(s.leaderboardSize),
		leaderboard.WithInterval(s.reconcileInterval),
	)
	s.board.Start(ctx)

	s.loopWG.Add(1)
	go s.maintenanceLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "trend service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("halfLife", s.halfLife),
		logger.Int("leaderboardSize", s.leaderboardSize),
	)
	return nil
}

// openStore selects the snapshot store. An empty path keeps snapshots
// in memory only.
func (s *Service) openStore(ctx context.Context) error {
	if s.snapshotPath == "" {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory snapshot store")
		return nil
	}
	store, err := repository.OpenSQLite(s.snapshotPath)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	s.store = store
	s.logger.Info(ctx, "using sqlite snapshot store",
		logger.String("path", s.snapshotPath),
	)
	return nil
}

// restore loads the latest persisted snapshot into the scorer. A missing
// or unreadable snapshot starts the service empty.
func (s *Service) restore(ctx context.Context) {
	snap, ok, err := s.store.Restore(ctx)
	if err != nil {
		s.logger.Warn(ctx, "snapshot restore failed; starting empty",
			logger.Error(err),
		)
		return
	}
	if !ok {
		s.logger.Info(ctx, "no snapshot found; starting empty")
		return
	}
	s.scorer.Restore(snap)
	s.logger.Info(ctx, "snapshot restored",
		logger.Int("terms", len(snap.Entries)),
		logger.Time("takenAt", snap.TakenAt),
	)
}

// maintenanceLoop runs the periodic sweep and snapshot timers.
func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.loopWG.Done()

	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()
	snapshot := time.NewTicker(s.snapshotInterval)
	defer snapshot.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-sweep.C:
			evicted := s.scorer.Sweep(now)
			if evicted > 0 {
				s.logger.Debug(ctx, "sweep evicted terms",
					logger.Int("evicted", evicted),
				)
			}
		case now := <-snapshot.C:
			s.persist(ctx, now)
		}
	}
}

// persist writes a snapshot of the current score state. Failures are
// logged and the service keeps running on in-memory state.
func (s *Service) persist(ctx context.Context, now time.Time) {
	start := time.Now()
	snap := s.scorer.Snapshot(now)
	if err := s.store.Persist(ctx, snap); err != nil {
		metrics.RecordSnapshotFailure()
		s.logger.Error(ctx, "snapshot persist failed",
			logger.Int("terms", len(snap.Entries)),
			logger.Error(err),
		)
		return
	}
	metrics.RecordSnapshotPersistDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateSnapshotLastUnix(float64(now.Unix()))
	s.logger.Debug(ctx, "snapshot persisted",
		logger.Int("terms", len(snap.Entries)),
	)
}

// Stop gracefully shuts down the service, persisting a final snapshot.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping trend service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.loopWG.Wait()

	_ = s.queue.Close()
	s.pool.Stop()
	_ = s.board.Close()

	s.persist(ctx, time.Now())
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "trend service stopped")
}

// Enqueue submits one occurrence for asynchronous scoring.
// Returns false on backpressure.
func (s *Service) Enqueue(ctx context.Context, e model.Event) bool {
	ok := s.queue.Enqueue(ctx, e)
	if ok {
		metrics.RecordMessageAccepted()
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	} else {
		metrics.RecordMessageRejected()
	}
	return ok
}

// Top returns the current top-k view of trending terms.
func (s *Service) Top(ctx context.Context, k int) (leaderboard.View, error) {
	return s.board.Top(ctx, k)
}

// TermScore returns the decayed score for one term as of now.
func (s *Service) TermScore(_ context.Context, term string) (leaderboard.Entry, bool) {
	score, lastUpdate, ok := s.scorer.Peek(term, time.Now())
	if !ok {
		return leaderboard.Entry{}, false
	}
	return leaderboard.Entry{Term: term, Score: score, LastUpdate: lastUpdate}, true
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueCapacity":   s.queueSize,
		"halfLifeSeconds": s.halfLife.Seconds(),
		"leaderboardSize": s.leaderboardSize,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["trackedTerms"] = s.scorer.Count()
	}
	return stats
}
