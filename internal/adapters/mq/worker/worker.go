package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/aedplacement/internal/adapters/mq/queue"
	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/pkg/logger"
	"github.com/okian/aedplacement/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Resolver returns the walking distance of one cell.
type Resolver interface {
	Resolve(ctx context.Context, origin, dest model.Coordinate) (meters float64, found bool, err error)
}

// Recorder receives every finished job. It is called from several
// goroutines and must be safe for concurrent use.
type Recorder func(model.CellResult)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until the queue drains.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is closed
	// and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for resolving cells.
type InMemoryWorker struct {
	queue    Queue
	resolver Resolver
	record   Recorder
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	processed    atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, resolver Resolver, record Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		resolver: resolver,
		record:   record,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Processed returns the number of jobs handed to the recorder.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	meters, found, err := w.resolver.Resolve(ctx, job.Origin, job.Dest)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "resolve_error")
		w.logger.Error(ctx, "resolve failed",
			logger.Int("row", job.Row),
			logger.Int("col", job.Col),
			logger.Error(err),
		)
	}
	w.processed.Add(1)
	w.record(model.CellResult{Row: job.Row, Col: job.Col, Meters: meters, Found: found, Err: err})
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A count below one yields a single worker.
func NewPool(workerCount int, q Queue, resolver Resolver, record Recorder) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, resolver, record, WithName("worker-"+strconv.Itoa(i)))
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateResolveWorkers(p.Size())
	p.logger.Debug(ctx, "worker pool started", logger.Int("workers", p.Size()))
}

// Wait blocks until every worker has returned and reports how many jobs
// they processed.
func (p *Pool) Wait() int64 {
	var total int64
	for _, w := range p.workers {
		<-w.Done()
		total += w.Processed()
	}
	metrics.UpdateResolveWorkers(0)
	return total
}

// Shutdown closes the queue and stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateResolveWorkers(0)
	return firstErr
}
