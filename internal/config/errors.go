package config

import "errors"

// Load wraps file, dotenv and decoding failures in ErrLoadConfig and
// validation failures in ErrInvalidConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
