package routing

import "errors"

// Sentinel errors for routing calls.
var (
	ErrMissingKey = errors.New("routing api key missing")
	ErrNoRoute    = errors.New("no walking route")
	ErrRequest    = errors.New("routing request failed")
)
