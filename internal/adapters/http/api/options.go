package api

import (
	"time"

	"github.com/okian/aedplacement/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRouter enables GET /api/route.
func WithRouter(r Router) Option {
	return func(s *Server) {
		if r != nil {
			s.router = r
		}
	}
}

// WithClientConfig sets what GET /api/config returns.
func WithClientConfig(cfg ClientConfig) Option {
	return func(s *Server) {
		s.clientConfig = cfg
	}
}

// WithRouteRateLimit limits GET /api/route to requests per window and client IP.
func WithRouteRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		if requests > 0 && window > 0 {
			s.routeRequests = requests
			s.routeWindow = window
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
