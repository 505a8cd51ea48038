// Package mclp solves the Maximal Covering Location Problem: choose at most
// budget candidate sites so that the weight of incidents within the coverage
// radius of a chosen site is maximal.
package mclp

import (
	"fmt"

	"github.com/okian/aedplacement/internal/domain/costmatrix"
)

// DefaultRadius is the coverage radius in meters.
const DefaultRadius = 150

// Problem is an MCLP instance in set form. Sets[i] lists the candidates
// that cover incident i.
type Problem struct {
	Sets          [][]int
	Weights       []float64
	NumCandidates int
	Budget        int
}

// NewProblem derives coverage sets from m: incident i is coverable by
// candidate j iff cell (i, j) is resolved with a distance <= radius.
// Excluded and unknown cells never cover. A nil weights slice weighs every
// incident 1.
func NewProblem(m *costmatrix.Matrix, radius float64, budget int, weights []float64) (*Problem, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidProblem)
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: negative radius %v", ErrInvalidProblem, radius)
	}
	sets := make([][]int, m.Rows())
	for i := range sets {
		for j := 0; j < m.Cols(); j++ {
			if d, ok := m.At(i, j).Meters(); ok && d <= radius {
				sets[i] = append(sets[i], j)
			}
		}
	}
	p := &Problem{Sets: sets, Weights: weights, NumCandidates: m.Cols(), Budget: budget}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the shape of p and fills default weights.
func (p *Problem) Validate() error {
	if p.Budget < 0 {
		return fmt.Errorf("%w: negative budget %d", ErrInvalidProblem, p.Budget)
	}
	if p.Weights == nil {
		p.Weights = make([]float64, len(p.Sets))
		for i := range p.Weights {
			p.Weights[i] = 1
		}
	}
	if len(p.Weights) != len(p.Sets) {
		return fmt.Errorf("%w: %d weights for %d incidents", ErrInvalidProblem, len(p.Weights), len(p.Sets))
	}
	for i, w := range p.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight at incident %d", ErrInvalidProblem, i)
		}
	}
	for i, set := range p.Sets {
		for _, j := range set {
			if j < 0 || j >= p.NumCandidates {
				return fmt.Errorf("%w: incident %d references candidate %d", ErrInvalidProblem, i, j)
			}
		}
	}
	return nil
}

// Covered evaluates a selection: covered[i] is true iff some selected
// candidate is in Sets[i].
func (p *Problem) Covered(selected []bool) ([]bool, float64) {
	covered := make([]bool, len(p.Sets))
	var objective float64
	for i, set := range p.Sets {
		for _, j := range set {
			if selected[j] {
				covered[i] = true
				objective += p.Weights[i]
				break
			}
		}
	}
	return covered, objective
}

// Solution is the optimizer output.
type Solution struct {
	Selected  []bool
	Covered   []bool
	Objective float64
	Nodes     int
}

// SelectedIndices returns the chosen candidate indices in ascending order.
func (s Solution) SelectedIndices() []int {
	var out []int
	for j, ok := range s.Selected {
		if ok {
			out = append(out, j)
		}
	}
	return out
}
