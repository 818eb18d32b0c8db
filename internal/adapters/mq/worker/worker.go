// Package worker runs the pool draining the occurrence queue into the scorer.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/squid/internal/domain/model"
	"github.com/okian/squid/pkg/logger"
	"github.com/okian/squid/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Event is what workers read off the queue.
type Event = model.Event

// Ingester applies one occurrence to the authoritative score state.
// The scorer implements it.
type Ingester interface {
	Ingest(ctx context.Context, term, contributor string, ts time.Time, baseWeight float64) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes occurrence events until stopped.
type Worker struct {
	queue      Queue
	ingester   Ingester
	baseWeight float64
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(queue Queue, ingester Ingester, opts ...Option) *Worker {
	w := &Worker{
		queue:      queue,
		ingester:   ingester,
		baseWeight: 1.0,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes events until ctx is canceled or the worker shuts down.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, event); err != nil {
				w.logger.Error(ctx, "event processing failed",
					logger.String("message_id", event.MessageID),
					logger.String("term", event.Term),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight event.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.ingester.Ingest(ctx, event.Term, event.Contributor, event.TS, w.baseWeight); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "ingest_error")
		return fmt.Errorf("ingest %q: %w", event.Term, err)
	}
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, queue Queue, ingester Ingester, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewWorker(queue, ingester, wopts...)
	}
	metrics.UpdateWorkerActive(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, bounding the wait per worker.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerActive(0)
}
