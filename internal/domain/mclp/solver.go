package mclp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/okian/aedplacement/pkg/logger"
	"github.com/okian/aedplacement/pkg/metrics"
)

// Default solver configuration constants.
const (
	defaultMaxNodes = 100000
	simplexTol      = 1e-10
	integralTol     = 1e-6
	boundTol        = 1e-9
)

// Solver finds optimal MCLP selections by branch and bound over the
// candidate variables, bounding each node with its LP relaxation.
type Solver struct {
	maxNodes int
	timeout  time.Duration
	logger   logger.Logger
}

// NewSolver creates a Solver with configuration options.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		maxNodes: defaultMaxNodes,
		logger:   logger.Get().Named("mclp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve returns an optimal selection for p. It never selects more than
// p.Budget candidates. When the node limit or the context deadline is hit
// the error wraps ErrSolverLimit and no solution is returned.
func (s *Solver) Solve(ctx context.Context, p *Problem) (Solution, error) {
	if p == nil {
		return Solution{}, fmt.Errorf("solve: %w: nil problem", ErrInvalidProblem)
	}
	if err := p.Validate(); err != nil {
		return Solution{}, fmt.Errorf("solve: %w", err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	r := reduce(p)
	if len(r.cols) > r.budget && r.budget > 0 {
		var err error
		if r, err = r.dropDominated(ctx); err != nil {
			metrics.RecordSolverFailure("limit")
			return Solution{}, fmt.Errorf("solve: %w", err)
		}
	}
	sel := make([]bool, len(r.cols))
	nodes := 0

	switch {
	case len(r.cols) <= r.budget:
		for k := range sel {
			sel[k] = true
		}
	case r.budget == 0:
	default:
		srch := &search{r: r, ctx: ctx, maxNodes: s.maxNodes, best: -1}
		err := srch.run()
		nodes = srch.nodes
		metrics.RecordSolverNodes(nodes)
		if err == nil {
			// The deadline may pass after the last relaxation.
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("%w: %w", ErrSolverLimit, ctxErr)
			}
		}
		if err != nil {
			reason := "infeasible"
			if errors.Is(err, ErrSolverLimit) {
				reason = "limit"
			}
			metrics.RecordSolverFailure(reason)
			s.logger.Error(ctx, "solver failed", logger.Int("nodes", nodes), logger.Error(err))
			return Solution{}, fmt.Errorf("solve: %w", err)
		}
		sel = srch.bestSel
	}

	selected := make([]bool, p.NumCandidates)
	for k, ok := range sel {
		if ok {
			selected[r.cols[k]] = true
		}
	}
	covered, objective := p.Covered(selected)
	metrics.RecordSolverDuration(time.Since(start).Seconds())
	s.logger.Debug(ctx, "solver finished",
		logger.Int("candidates", len(r.cols)),
		logger.Int("incidents", len(r.sets)),
		logger.Int("nodes", nodes),
		logger.Float64("objective", objective),
	)
	return Solution{Selected: selected, Covered: covered, Objective: objective, Nodes: nodes}, nil
}

// reduced keeps only incidents that some candidate covers and candidates
// that cover a positive-weight incident.
type reduced struct {
	cols    []int
	sets    [][]int
	weights []float64
	colRows [][]int
	budget  int
}

func reduce(p *Problem) *reduced {
	colPos := make([]int, p.NumCandidates)
	for j := range colPos {
		colPos[j] = -1
	}
	r := &reduced{budget: p.Budget}
	for i, set := range p.Sets {
		if len(set) == 0 || p.Weights[i] == 0 {
			continue
		}
		row := len(r.sets)
		var rs []int
		for _, j := range set {
			if colPos[j] < 0 {
				colPos[j] = len(r.cols)
				r.cols = append(r.cols, j)
				r.colRows = append(r.colRows, nil)
			}
			k := colPos[j]
			r.colRows[k] = append(r.colRows[k], row)
			rs = append(rs, k)
		}
		r.sets = append(r.sets, rs)
		r.weights = append(r.weights, p.Weights[i])
	}
	return r
}

// dropDominated removes every column whose rows are a subset of another
// column's rows, keeping the lowest index among equal columns, then merges
// rows left with the same columns into one row carrying the summed weight.
// Weights are non-negative, so some optimal selection avoids dominated
// columns and the optimum is unchanged.
func (r *reduced) dropDominated(ctx context.Context) (*reduced, error) {
	n := len(r.cols)
	keep := make([]bool, n)
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSolverLimit, err)
		}
		keep[k] = true
		for l := 0; l < n; l++ {
			if l == k || len(r.colRows[l]) < len(r.colRows[k]) {
				continue
			}
			if !subset(r.colRows[k], r.colRows[l]) {
				continue
			}
			if len(r.colRows[l]) > len(r.colRows[k]) || l < k {
				keep[k] = false
				break
			}
		}
	}

	pos := make([]int, n)
	out := &reduced{budget: r.budget}
	for k := range r.cols {
		pos[k] = -1
		if keep[k] {
			pos[k] = len(out.cols)
			out.cols = append(out.cols, r.cols[k])
			out.colRows = append(out.colRows, nil)
		}
	}

	rowOf := make(map[string]int, len(r.sets))
	var key strings.Builder
	for i, set := range r.sets {
		var rs []int
		for _, k := range set {
			if pos[k] >= 0 {
				rs = append(rs, pos[k])
			}
		}
		sort.Ints(rs)
		key.Reset()
		for _, k := range rs {
			key.WriteString(strconv.Itoa(k))
			key.WriteByte(',')
		}
		if q, ok := rowOf[key.String()]; ok {
			out.weights[q] += r.weights[i]
			continue
		}
		row := len(out.sets)
		rowOf[key.String()] = row
		out.sets = append(out.sets, rs)
		out.weights = append(out.weights, r.weights[i])
		for _, k := range rs {
			out.colRows[k] = append(out.colRows[k], row)
		}
	}
	return out, nil
}

// subset reports whether the ascending list a is contained in the ascending
// list b.
func subset(a, b []int) bool {
	q := 0
	for _, v := range a {
		for q < len(b) && b[q] < v {
			q++
		}
		if q == len(b) || b[q] != v {
			return false
		}
		q++
	}
	return true
}

// Branching state of a reduced column.
const (
	free     int8 = 0
	fixedIn  int8 = 1
	fixedOut int8 = -1
)

type search struct {
	r        *reduced
	ctx      context.Context
	maxNodes int
	nodes    int
	best     float64
	bestSel  []bool
}

func (s *search) run() error {
	stack := [][]int8{make([]int8, len(s.r.cols))}
	for len(stack) > 0 {
		fixed := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := s.ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrSolverLimit, err)
		}
		if s.maxNodes > 0 && s.nodes >= s.maxNodes {
			return fmt.Errorf("%w: %d nodes", ErrSolverLimit, s.nodes)
		}
		s.nodes++
		children, err := s.visit(fixed)
		if err != nil {
			return err
		}
		stack = append(stack, children...)
	}
	return nil
}

// visit bounds one node and returns its children, the fixed-in child last so
// that it is explored first.
func (s *search) visit(fixed []int8) ([][]int8, error) {
	r := s.r
	covered := make([]bool, len(r.sets))
	var base float64
	used := 0
	for k, f := range fixed {
		if f != fixedIn {
			continue
		}
		used++
		for _, i := range r.colRows[k] {
			if !covered[i] {
				covered[i] = true
				base += r.weights[i]
			}
		}
	}
	remaining := r.budget - used
	s.complete(fixed, covered, base, remaining)
	if remaining <= 0 {
		return nil, nil
	}

	freePos := make([]int, len(r.cols))
	var freeCols []int
	for k, f := range fixed {
		freePos[k] = -1
		if f != free {
			continue
		}
		for _, i := range r.colRows[k] {
			if !covered[i] {
				freePos[k] = len(freeCols)
				freeCols = append(freeCols, k)
				break
			}
		}
	}
	var rows []int
	for i, set := range r.sets {
		if covered[i] {
			continue
		}
		for _, k := range set {
			if freePos[k] >= 0 {
				rows = append(rows, i)
				break
			}
		}
	}
	if len(freeCols) == 0 || len(rows) == 0 {
		return nil, nil
	}

	value, x, err := s.relax(rows, freeCols, freePos, remaining)
	if err != nil {
		return nil, err
	}
	if base+value <= s.best+boundTol {
		return nil, nil
	}

	branch := -1
	bestFrac := 0.0
	for p, v := range x {
		frac := math.Min(v, 1-v)
		if frac > integralTol && frac > bestFrac+boundTol {
			branch, bestFrac = freeCols[p], frac
		}
	}
	if branch < 0 {
		sel := make([]bool, len(fixed))
		for k, f := range fixed {
			sel[k] = f == fixedIn
		}
		for p, v := range x {
			if v > 0.5 {
				sel[freeCols[p]] = true
			}
		}
		s.offer(sel)
		return nil, nil
	}

	out := make([]int8, len(fixed))
	copy(out, fixed)
	out[branch] = fixedOut
	in := make([]int8, len(fixed))
	copy(in, fixed)
	in[branch] = fixedIn
	return [][]int8{out, in}, nil
}

// complete extends the fixed-in columns greedily and offers the result as
// an incumbent. Ties go to the lower column.
func (s *search) complete(fixed []int8, covered []bool, base float64, remaining int) {
	r := s.r
	sel := make([]bool, len(fixed))
	for k, f := range fixed {
		sel[k] = f == fixedIn
	}
	cov := append([]bool(nil), covered...)
	value := base
	for ; remaining > 0; remaining-- {
		pick, gain := -1, 0.0
		for k, f := range fixed {
			if f != free || sel[k] {
				continue
			}
			var g float64
			for _, i := range r.colRows[k] {
				if !cov[i] {
					g += r.weights[i]
				}
			}
			if g > gain {
				pick, gain = k, g
			}
		}
		if pick < 0 {
			break
		}
		sel[pick] = true
		value += gain
		for _, i := range r.colRows[pick] {
			cov[i] = true
		}
	}
	if value > s.best+boundTol {
		s.best = value
		s.bestSel = sel
	}
}

func (s *search) offer(sel []bool) {
	cov := make([]bool, len(s.r.sets))
	var value float64
	for k, ok := range sel {
		if !ok {
			continue
		}
		for _, i := range s.r.colRows[k] {
			if !cov[i] {
				cov[i] = true
				value += s.r.weights[i]
			}
		}
	}
	if value > s.best+boundTol {
		s.best = value
		s.bestSel = sel
	}
}

// relax bounds a node without outliving the search context. lp.Simplex
// cannot be interrupted, so on cancellation the relaxation is abandoned and
// its result dropped when it finishes.
func (s *search) relax(rows, freeCols, freePos []int, remaining int) (float64, []float64, error) {
	type result struct {
		value float64
		x     []float64
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, x, err := relax(s.r, rows, freeCols, freePos, remaining)
		ch <- result{value: v, x: x, err: err}
	}()

	select {
	case <-s.ctx.Done():
		return 0, nil, fmt.Errorf("%w: %w", ErrSolverLimit, s.ctx.Err())
	case res := <-ch:
		if err := s.ctx.Err(); err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrSolverLimit, err)
		}
		return res.value, res.x, res.err
	}
}

// relax solves the LP relaxation over the free columns and uncovered rows in
// standard form:
//
//	min  -w·y
//	s.t. y_i - sum x_j + s_i = 0   for each row
//	     sum x_j + s_b = remaining
//	     y_i + t_i = 1
//
// x_j <= 1 is left out: y_i <= 1 caps the gain of any column, so clipping x
// at 1 keeps every row satisfied at the same objective. The returned x is
// clipped. The slacks form the initial basis, which is feasible because
// every right-hand side is non-negative.
func relax(r *reduced, rows, freeCols, freePos []int, remaining int) (float64, []float64, error) {
	nf, mu := len(freeCols), len(rows)
	nRows := 2*mu + 1
	nCols := nf + mu + nRows
	a := mat.NewDense(nRows, nCols, nil)
	b := make([]float64, nRows)
	c := make([]float64, nCols)

	for q, i := range rows {
		a.Set(q, nf+q, 1)
		for _, k := range r.sets[i] {
			if p := freePos[k]; p >= 0 {
				a.Set(q, p, -1)
			}
		}
		c[nf+q] = -r.weights[i]
	}
	budgetRow := mu
	for p := 0; p < nf; p++ {
		a.Set(budgetRow, p, 1)
	}
	b[budgetRow] = float64(remaining)
	for q := 0; q < mu; q++ {
		a.Set(budgetRow+1+q, nf+q, 1)
		b[budgetRow+1+q] = 1
	}

	basic := make([]int, nRows)
	for row := 0; row < nRows; row++ {
		a.Set(row, nf+mu+row, 1)
		basic[row] = nf + mu + row
	}

	optF, optX, err := lp.Simplex(c, a, b, simplexTol, basic)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) || errors.Is(err, lp.ErrUnbounded) {
			return 0, nil, fmt.Errorf("%w: %w", ErrInfeasible, err)
		}
		return 0, nil, fmt.Errorf("lp relaxation: %w", err)
	}
	x := optX[:nf]
	for p, v := range x {
		x[p] = math.Min(v, 1)
	}
	return -optF, x, nil
}
