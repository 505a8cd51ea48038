package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrRoutingDisabled = errors.New("routing disabled")
)
