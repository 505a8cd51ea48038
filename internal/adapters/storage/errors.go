package storage

import "errors"

// Sentinel errors for file storage.
var (
	ErrEmptyToken    = errors.New("token file missing or empty")
	ErrMissingColumn = errors.New("missing csv column")
	ErrBadValue      = errors.New("bad csv value")
	ErrCityNotFound  = errors.New("city not found")
	ErrBadGeometry   = errors.New("unsupported geometry")
)
