package service

import (
	"time"

	"github.com/okian/aedplacement/internal/adapters/http/api"
	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOutputDir sets the directory the dashboard reads its CSVs from.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithRouter enables click-to-route through r.
func WithRouter(r api.Router) Option {
	return func(s *Service) {
		s.router = r
	}
}

// WithClientConfig sets the map settings handed to the browser.
func WithClientConfig(cfg api.ClientConfig) Option {
	return func(s *Service) {
		s.clientConfig = cfg
	}
}

// WithRouteRateLimit caps route lookups per client IP and minute.
func WithRouteRateLimit(perMinute int) Option {
	return func(s *Service) {
		if perMinute > 0 {
			s.routeRateLimit = perMinute
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*Pipeline)

// WithBounds sets the plausibility box used to clean and repair inputs.
func WithBounds(b geo.Bounds) PipelineOption {
	return func(p *Pipeline) {
		p.bounds = b
	}
}

// WithClock replaces time.Now for the manifest timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunID fixes the manifest run id instead of generating one.
func WithRunID(id string) PipelineOption {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
