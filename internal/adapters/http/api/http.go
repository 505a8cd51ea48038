// Package api serves the dashboard JSON API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/aedplacement/internal/adapters/repository"
	"github.com/okian/aedplacement/internal/adapters/routing"
	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/pkg/logger"
	"github.com/okian/aedplacement/pkg/metrics"
)

// Default server configuration constants.
const (
	defaultRouteRequests = 30
	defaultRouteWindow   = time.Minute
)

// Router fetches walking routes for the click-to-route view.
type Router interface {
	Route(ctx context.Context, origin, dest model.Coordinate) (routing.Route, error)
}

// ClientConfig is returned by GET /api/config.
type ClientConfig struct {
	MapboxToken   string  `json:"mapbox_token"`
	MapStyle      string  `json:"map_style"`
	RadiusMin     int     `json:"radius_min"`
	RadiusMax     int     `json:"radius_max"`
	RadiusStep    int     `json:"radius_step"`
	RadiusDefault int     `json:"radius_default"`
	Zoom          float64 `json:"zoom"`
}

// DefaultClientConfig holds the slider bounds of the buffer view.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MapStyle:      "mapbox://styles/mapbox/light-v11",
		RadiusMin:     minRadius,
		RadiusMax:     maxRadius,
		RadiusStep:    radiusStep,
		RadiusDefault: defaultRadius,
		Zoom:          12,
	}
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	store         repository.Store
	router        Router
	clientConfig  ClientConfig
	routeRequests int
	routeWindow   time.Duration
	logger        logger.Logger
}

// NewServer creates a new API server over store.
func NewServer(store repository.Store, opts ...Option) *Server {
	s := &Server{
		store:         store,
		clientConfig:  DefaultClientConfig(),
		routeRequests: defaultRouteRequests,
		routeWindow:   defaultRouteWindow,
		logger:        logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches every API route to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Get("/cities", s.handleCities)
		r.Route("/cities/{city}", func(r chi.Router) {
			r.Get("/points", s.handlePoints)
			r.Get("/heatmap", s.handleHeatmap)
			r.Get("/buffers", s.handleBuffers)
			r.Get("/coverage", s.handleCoverage)
		})
		r.With(httprate.Limit(s.routeRequests, s.routeWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", nil)
			}),
		)).Get("/route", s.handleRoute)
	})
}

// Handler returns a router serving only the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an already encoded JSON document.
func writeRaw(w http.ResponseWriter, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError maps repository lookups to HTTP errors.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrCityNotFound):
		writeError(w, http.StatusNotFound, "city_not_found", err)
	case errors.Is(err, repository.ErrNoMatchingIncident):
		writeError(w, http.StatusNotFound, "no_matching_incident", err)
	case errors.Is(err, repository.ErrNoAED):
		writeError(w, http.StatusNotFound, "no_aed", err)
	default:
		s.logger.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
