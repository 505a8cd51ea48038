// Package config defines process configuration and its loading.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and AED_ environment variables on top.
// - Every field is validated with struct tags after loading.
package config

import (
	"context"
	"path/filepath"
	"time"
)

// Config contains process configuration for both binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// Addr configures the dashboard listen address, e.g. ":8050".
	Addr string `koanf:"addr" validate:"required"`

	// DataDir holds the input files and token files.
	DataDir string `koanf:"data_dir" validate:"required"`

	// OutputDir receives the pipeline outputs the dashboard reads.
	OutputDir string `koanf:"output_dir" validate:"required"`

	// Cities selects which cities to process, by GeoJSON name.
	Cities []string `koanf:"cities" validate:"min=1,dive,required"`

	// CardiacCodes are the incident codes kept as cardiac arrests.
	CardiacCodes []string `koanf:"cardiac_codes" validate:"min=1,dive,required"`

	// SamplesPerStreet is the number of candidate sites per street line.
	SamplesPerStreet int `koanf:"samples_per_street" validate:"min=1"`

	// MinDistance is the minimum spacing of candidate sites in degrees.
	MinDistance float64 `koanf:"min_distance" validate:"gte=0"`

	// ClosestCandidates is the number of candidates resolved per incident.
	ClosestCandidates int `koanf:"closest_candidates" validate:"min=1"`

	// CoverageRadius is the walking distance in meters within which an AED
	// covers an incident.
	CoverageRadius float64 `koanf:"coverage_radius" validate:"gt=0"`

	// Budget is the number of new AEDs to place per city.
	Budget int `koanf:"budget" validate:"gte=0"`

	// SentinelCost is written for excluded cells in exported cost matrices.
	SentinelCost float64 `koanf:"sentinel_cost" validate:"gt=0"`

	// ReuseCostMatrix loads a city's saved cost matrix from OutputDir
	// instead of paying for the routing requests again.
	ReuseCostMatrix bool `koanf:"reuse_cost_matrix"`

	// MapboxTokenFile and RoutingKeyFile are read relative to DataDir unless
	// absolute.
	MapboxTokenFile string `koanf:"mapbox_token_file" validate:"required"`
	RoutingKeyFile  string `koanf:"routing_key_file" validate:"required"`

	// RoutingBaseURL overrides the Google Maps endpoint (tests, proxies).
	RoutingBaseURL string `koanf:"routing_base_url" validate:"omitempty,url"`

	// RoutingRateLimit caps routing requests per second.
	RoutingRateLimit int `koanf:"routing_rate_limit" validate:"min=1"`

	// RoutingTimeoutMS bounds one routing request.
	RoutingTimeoutMS int `koanf:"routing_timeout_ms" validate:"min=1"`

	// ResolveWorkers is the number of concurrent cost resolvers.
	ResolveWorkers int `koanf:"resolve_workers" validate:"min=1"`

	// SolverMaxNodes bounds the branch-and-bound search per city.
	SolverMaxNodes int `koanf:"solver_max_nodes" validate:"min=1"`

	// SolverTimeoutMS bounds one solve; 0 disables the limit.
	SolverTimeoutMS int `koanf:"solver_timeout_ms" validate:"gte=0"`

	// RouteRateLimit caps GET /api/route per client per minute.
	RouteRateLimit int `koanf:"route_rate_limit" validate:"min=1"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8050",
		DataDir:           "data",
		OutputDir:         "output",
		Cities:            []string{"Antwerpen", "Brugge", "Brussels", "Charleroi", "Gent", "Leuven", "Liege", "Oostende"},
		CardiacCodes:      []string{"P003", "P011", "P039"},
		SamplesPerStreet:  4,
		MinDistance:       0.0012,
		ClosestCandidates: 10,
		CoverageRadius:    150,
		Budget:            20,
		SentinelCost:      1000,
		MapboxTokenFile:   "mapbox_token.txt",
		RoutingKeyFile:    "googlemaps_token.txt",
		RoutingRateLimit:  10,
		RoutingTimeoutMS:  10_000,
		ResolveWorkers:    1,
		SolverMaxNodes:    100_000,
		SolverTimeoutMS:   0,
		RouteRateLimit:    30,
	}
}

// MapboxTokenPath resolves MapboxTokenFile against DataDir.
func (c *Config) MapboxTokenPath() string { return c.resolve(c.MapboxTokenFile) }

// RoutingKeyPath resolves RoutingKeyFile against DataDir.
func (c *Config) RoutingKeyPath() string { return c.resolve(c.RoutingKeyFile) }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// RoutingTimeout returns RoutingTimeoutMS as a duration.
func (c *Config) RoutingTimeout() time.Duration {
	return time.Duration(c.RoutingTimeoutMS) * time.Millisecond
}

// SolverTimeout returns SolverTimeoutMS as a duration.
func (c *Config) SolverTimeout() time.Duration {
	return time.Duration(c.SolverTimeoutMS) * time.Millisecond
}
