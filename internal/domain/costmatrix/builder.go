package costmatrix

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/pkg/logger"
	"github.com/okian/aedplacement/pkg/metrics"
)

// DefaultClosestCandidates is the number of candidates requested per incident.
const DefaultClosestCandidates = 10

// DeclineMessage is logged when the operator refuses the request volume.
const DeclineMessage = "OK. Will not proceed."

// CostResolver returns the walking distance between two points. found is
// false when the service answered but has no route.
type CostResolver interface {
	Resolve(ctx context.Context, origin, dest model.Coordinate) (meters float64, found bool, err error)
}

// Confirmer asks the operator to approve a batch of paid requests.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Dispatcher runs CellJobs through resolver and calls record once per
// finished job. record may be called from several goroutines.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobs []model.CellJob, resolver CostResolver, record func(model.CellResult)) error
}

// Result is the outcome of a build.
type Result struct {
	Matrix   *Matrix
	Requests int
	Resolved int
	Unknown  int
	// Skipped is set when the operator declined. Matrix is then an all-zero
	// placeholder and must not be optimized.
	Skipped bool
	// Restored is set when the matrix came from a saved export.
	Restored bool
	Duration time.Duration
}

// Builder produces resolved cost matrices.
type Builder struct {
	resolver   CostResolver
	confirmer  Confirmer
	dispatcher Dispatcher
	logger     logger.Logger
}

// NewBuilder creates a Builder. Without WithDispatcher cells are resolved
// one by one in row-major order.
func NewBuilder(resolver CostResolver, confirmer Confirmer, opts ...Option) *Builder {
	b := &Builder{
		resolver:   resolver,
		confirmer:  confirmer,
		dispatcher: sequential{},
		logger:     logger.Get().Named("costmatrix"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Prompt is the confirmation question for n requests.
func Prompt(n int) string {
	return fmt.Sprintf("This will initialize %d API requests. Are you sure? (yes/no): ", n)
}

// Build activates the k nearest candidates per incident, asks for
// confirmation and resolves every active cell with one request each.
// A transport error aborts the whole build.
func (b *Builder) Build(ctx context.Context, incidents []model.Incident, candidates []model.CandidateSite, k int) (Result, error) {
	if b.resolver == nil {
		return Result{}, fmt.Errorf("build: %w", ErrNoResolver)
	}
	if b.confirmer == nil {
		return Result{}, fmt.Errorf("build: %w", ErrNoConfirmer)
	}

	start := time.Now()
	m, err := Activate(incidents, candidates, k)
	if err != nil {
		return Result{}, fmt.Errorf("build: %w", err)
	}
	jobs := m.Jobs()
	metrics.RecordCellsActive(len(jobs))

	ok, err := b.confirmer.Confirm(ctx, Prompt(len(jobs)))
	if err != nil {
		return Result{}, fmt.Errorf("build: confirm: %w", err)
	}
	if !ok {
		b.logger.Info(ctx, DeclineMessage, logger.Int("requests", len(jobs)))
		metrics.RecordBuildSkipped()
		m.Fill(ResolvedCost(0))
		return Result{Matrix: m, Skipped: true, Duration: time.Since(start)}, nil
	}

	res, err := b.resolve(ctx, m, jobs)
	if err != nil {
		return Result{}, err
	}
	res.Duration = time.Since(start)
	b.logger.Info(ctx, "cost matrix resolved",
		logger.Int("requests", res.Requests),
		logger.Int("resolved", res.Resolved),
		logger.Int("unknown", res.Unknown),
		logger.Duration("duration", res.Duration),
	)
	return res, nil
}

// Restore rebuilds the matrix Build would produce from a saved export,
// without asking for confirmation or sending requests. incidents,
// candidates and k must be the ones the export was made with.
func (b *Builder) Restore(ctx context.Context, incidents []model.Incident, candidates []model.CandidateSite, k int, r io.Reader) (Result, error) {
	start := time.Now()
	m, err := Activate(incidents, candidates, k)
	if err != nil {
		return Result{}, fmt.Errorf("restore: %w", err)
	}
	if err := m.ReadCSV(r); err != nil {
		return Result{}, fmt.Errorf("restore: %w", err)
	}
	res := Result{
		Matrix:   m,
		Resolved: m.Count(Resolved),
		Unknown:  m.Count(Unknown),
		Restored: true,
		Duration: time.Since(start),
	}
	b.logger.Info(ctx, "cost matrix restored",
		logger.Int("resolved", res.Resolved),
		logger.Int("unknown", res.Unknown),
	)
	return res, nil
}

func (b *Builder) resolve(ctx context.Context, m *Matrix, jobs []model.CellJob) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
		reported int
		res      = Result{Matrix: m, Requests: len(jobs)}
	)
	record := func(r model.CellResult) {
		mu.Lock()
		defer mu.Unlock()
		reported++
		switch {
		case r.Err != nil:
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: cell (%d,%d): %w", ErrResolve, r.Row, r.Col, r.Err)
				cancel()
			}
		case r.Found:
			m.Set(r.Row, r.Col, ResolvedCost(r.Meters))
			res.Resolved++
			metrics.RecordCellResolved()
		default:
			res.Unknown++
			metrics.RecordCellUnknown()
		}
	}

	dispatchErr := b.dispatcher.Dispatch(ctx, jobs, b.resolver, record)

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		b.logger.Error(ctx, "cost resolution aborted", logger.Error(firstErr))
		return Result{}, fmt.Errorf("build: %w", firstErr)
	}
	if dispatchErr != nil {
		return Result{}, fmt.Errorf("build: dispatch: %w", dispatchErr)
	}
	if reported != len(jobs) {
		return Result{}, fmt.Errorf("build: %w: %d of %d", ErrIncompleteBuild, reported, len(jobs))
	}
	return res, nil
}

// sequential resolves jobs in order on the calling goroutine.
type sequential struct{}

func (sequential) Dispatch(ctx context.Context, jobs []model.CellJob, resolver CostResolver, record func(model.CellResult)) error {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		meters, found, err := resolver.Resolve(ctx, job.Origin, job.Dest)
		record(model.CellResult{Row: job.Row, Col: job.Col, Meters: meters, Found: found, Err: err})
	}
	return nil
}
