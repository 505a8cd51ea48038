// Package service wires the optimization pipeline and the dashboard service
// from the adapters and domain packages.
package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/aedplacement/internal/adapters/http/api"
	"github.com/okian/aedplacement/internal/adapters/http/site"
	"github.com/okian/aedplacement/internal/adapters/http/swagger"
	"github.com/okian/aedplacement/internal/adapters/repository"
	"github.com/okian/aedplacement/internal/adapters/storage"
	"github.com/okian/aedplacement/pkg/logger"
)

const (
	defaultOutputDir      = "output"
	defaultRouteRateLimit = 30
)

// Service serves the dashboard over the pipeline outputs.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  *repository.MemoryStore
	router api.Router

	// Configuration
	outputDir      string
	clientConfig   api.ClientConfig
	routeRateLimit int

	// State
	started  bool
	loadedAt time.Time

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		outputDir:      defaultOutputDir,
		clientConfig:   api.DefaultClientConfig(),
		routeRateLimit: defaultRouteRateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the pipeline outputs. It fails when any of them is missing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.store = repository.NewMemoryStore()
	if err := s.reload(ctx); err != nil {
		return err
	}
	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.String("outputDir", s.outputDir),
		logger.Int("cities", len(s.store.Cities(ctx))),
		logger.Bool("routing", s.router != nil),
	)
	return nil
}

// Reload rereads the outputs, e.g. after a new pipeline run. Readers keep
// the previous data until the new files are parsed.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return fmt.Errorf("%w: service not started", ErrOutputs)
	}
	return s.reload(ctx)
}

func (s *Service) reload(ctx context.Context) error {
	app, err := readOutput(s.outputDir, storage.AppDataFile, storage.ReadAppData)
	if err != nil {
		return err
	}
	dens, err := readOutput(s.outputDir, storage.DensityFile, storage.ReadDensity)
	if err != nil {
		return err
	}
	cov, err := readOutput(s.outputDir, storage.CoverageFile, storage.ReadCoverage)
	if err != nil {
		return err
	}
	s.store.Load(ctx, app, dens, cov)
	s.loadedAt = time.Now()
	return nil
}

func readOutput[T any](dir, name string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputs, err)
	}
	defer f.Close() //nolint:errcheck // read only
	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOutputs, name, err)
	}
	return rows, nil
}

// Store returns the read store behind the API. It is nil before Start.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil
	}
	return s.store
}

// Handler builds the dashboard router: API, docs and the map page. Call it
// after Start.
func (s *Service) Handler(ctx context.Context) http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opts := []api.Option{
		api.WithClientConfig(s.clientConfig),
		api.WithRouteRateLimit(s.routeRateLimit, time.Minute),
	}
	if s.router != nil {
		opts = append(opts, api.WithRouter(s.router))
	}

	r := chi.NewRouter()
	// API first: it installs the middleware stack for the whole router.
	api.NewServer(s.store, opts...).Register(r)
	swagger.Register(ctx, r)
	site.Register(ctx, r)
	return r
}

// Stop marks the service stopped. The store stays readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":   s.started,
		"outputDir": s.outputDir,
		"routing":   s.router != nil,
	}
	if s.started {
		stats["cities"] = len(s.store.Cities(context.Background()))
		stats["loadedAt"] = s.loadedAt
	}
	return stats
}
