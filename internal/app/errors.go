package service

import "errors"

// Sentinel errors returned by the pipeline and the dashboard service.
var (
	ErrInputs  = errors.New("pipeline inputs")
	ErrOutputs = errors.New("dashboard outputs")
	ErrCity    = errors.New("city run failed")
)
