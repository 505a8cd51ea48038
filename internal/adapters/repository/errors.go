package repository

import "errors"

// Sentinel kinds for dashboard lookups.
var (
	ErrCityNotFound       = errors.New("city not found")
	ErrNoMatchingIncident = errors.New("no matching incident")
	ErrNoAED              = errors.New("incident has no nearest aed")
)
