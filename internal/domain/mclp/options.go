package mclp

import (
	"time"

	"github.com/okian/aedplacement/pkg/logger"
)

// Option applies a configuration option to the Solver.
type Option func(*Solver)

// WithMaxNodes caps the number of branch-and-bound nodes. Zero or less
// removes the cap.
func WithMaxNodes(n int) Option {
	return func(s *Solver) {
		s.maxNodes = n
	}
}

// WithTimeout bounds a single Solve call.
func WithTimeout(d time.Duration) Option {
	return func(s *Solver) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the solver.
func WithLogger(l logger.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}
