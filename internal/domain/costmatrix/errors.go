package costmatrix

import "errors"

// Sentinel errors for matrix construction.
var (
	ErrNoResolver      = errors.New("cost resolver not configured")
	ErrNoConfirmer     = errors.New("confirmer not configured")
	ErrInvalidK        = errors.New("closest candidate count must be positive")
	ErrResolve         = errors.New("cost resolution failed")
	ErrDimension       = errors.New("matrix dimension mismatch")
	ErrIncompleteBuild = errors.New("cost resolution did not report every cell")
	ErrStaleMatrix     = errors.New("saved matrix does not match the inputs")
)
