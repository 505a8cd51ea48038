package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/aedplacement/internal/adapters/mq/queue"
	"github.com/okian/aedplacement/internal/domain/costmatrix"
	"github.com/okian/aedplacement/internal/domain/model"
)

// Dispatcher resolves cost matrix cells with a fixed-size worker pool. It
// implements costmatrix.Dispatcher.
type Dispatcher struct {
	workers int
	grace   time.Duration
}

var _ costmatrix.Dispatcher = (*Dispatcher)(nil)

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithGrace bounds how long a cancelled dispatch waits for workers to
// finish the request they are on.
func WithGrace(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.grace = d
		}
	}
}

// NewDispatcher creates a Dispatcher running the given number of workers.
func NewDispatcher(workers int, opts ...DispatcherOption) *Dispatcher {
	if workers < 1 {
		workers = defaultWorkerCount
	}
	d := &Dispatcher{workers: workers, grace: poolShutdownTimeout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch queues every job, drains the queue with the pool and returns
// once all workers have stopped. When ctx is cancelled it shuts the pool
// down and returns ctx's error, after at most the grace period even if a
// resolver ignores cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []model.CellJob, resolver costmatrix.CostResolver, record func(model.CellResult)) error {
	if len(jobs) == 0 {
		return nil
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(jobs)))
	for _, job := range jobs {
		if !q.Enqueue(ctx, job) {
			_ = q.Close()
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w: cell (%d,%d)", queue.ErrRejected, job.Row, job.Col)
		}
	}
	if err := q.Close(); err != nil {
		return err
	}

	pool := NewPool(min(d.workers, len(jobs)), q, resolver, record)
	pool.Start(ctx)
	drained := make(chan struct{})
	go func() {
		pool.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return ctx.Err()
	case <-ctx.Done():
		graceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.grace)
		defer cancel()
		if err := pool.Shutdown(graceCtx); err != nil {
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return ctx.Err()
	}
}
