package service

import (
	"github.com/okian/aedplacement/internal/adapters/http/api"
	"github.com/okian/aedplacement/internal/adapters/routing"
	"github.com/okian/aedplacement/internal/adapters/storage"
	"github.com/okian/aedplacement/internal/config"
)

// NewRoutingClient reads the routing key file and creates the walking
// distance client shared by the pipeline and the dashboard.
func NewRoutingClient(cfg *config.Config) (*routing.Client, error) {
	key, err := storage.ReadToken(cfg.RoutingKeyPath())
	if err != nil {
		return nil, err
	}
	return routing.New(key,
		routing.WithBaseURL(cfg.RoutingBaseURL),
		routing.WithTimeout(cfg.RoutingTimeout()),
		routing.WithRateLimit(cfg.RoutingRateLimit),
	)
}

// ClientConfig returns the map settings for the browser, carrying the
// Mapbox token read from its file.
func ClientConfig(cfg *config.Config) (api.ClientConfig, error) {
	out := api.DefaultClientConfig()
	token, err := storage.ReadToken(cfg.MapboxTokenPath())
	if err != nil {
		return out, err
	}
	out.MapboxToken = token
	return out, nil
}
