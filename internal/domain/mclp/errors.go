package mclp

import "errors"

// Sentinel errors for the optimizer. Failures are hard: no partial solution
// accompanies them.
var (
	ErrInvalidProblem = errors.New("invalid coverage problem")
	ErrInfeasible     = errors.New("coverage relaxation infeasible or unbounded")
	ErrSolverLimit    = errors.New("solver limit reached")
)
