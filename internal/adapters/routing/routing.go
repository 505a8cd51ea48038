// Package routing talks to the Google Maps walking Distance Matrix and
// Directions services.
package routing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/pkg/logger"
	"github.com/okian/aedplacement/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 10

	apiDistanceMatrix = "distance_matrix"
	apiDirections     = "directions"

	statusOK = "OK"
)

// Directions answers with these statuses when no route exists.
var noRouteStatuses = []string{"ZERO_RESULTS", "NOT_FOUND"}

// Route is a walking route between two points.
type Route struct {
	Path     []model.Coordinate
	Encoded  string
	Meters   int
	Duration time.Duration
}

// Client resolves walking distances and routes. It performs exactly one
// request per call: no retries, no caching.
type Client struct {
	maps       *maps.Client
	baseURL    string
	httpClient *http.Client
	rateLimit  int
	logger     logger.Logger
}

// New creates a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		rateLimit:  defaultRateLimit,
		logger:     logger.Get().Named("routing"),
	}
	for _, opt := range opts {
		opt(c)
	}

	mopts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(c.httpClient),
		maps.WithRateLimit(c.rateLimit),
	}
	if c.baseURL != "" {
		mopts = append(mopts, maps.WithBaseURL(c.baseURL))
	}
	mc, err := maps.NewClient(mopts...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	c.maps = mc
	return c, nil
}

// Resolve returns the walking distance from origin to dest. found is false
// when the service answers without a route for the pair.
func (c *Client) Resolve(ctx context.Context, origin, dest model.Coordinate) (float64, bool, error) {
	start := time.Now()
	resp, err := c.maps.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(origin)},
		Destinations: []string{latLng(dest)},
		Mode:         maps.TravelModeWalking,
	})
	metrics.RecordRoutingLatency(apiDistanceMatrix, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordRoutingRequest(apiDistanceMatrix, "error")
		metrics.RecordErrorByComponent("routing", "distance_matrix")
		return 0, false, fmt.Errorf("%w: distance matrix: %w", ErrRequest, err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 || resp.Rows[0].Elements[0] == nil {
		metrics.RecordRoutingRequest(apiDistanceMatrix, "no_route")
		metrics.RecordRoutingNoRoute("EMPTY")
		return 0, false, nil
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != statusOK {
		metrics.RecordRoutingRequest(apiDistanceMatrix, "no_route")
		metrics.RecordRoutingNoRoute(el.Status)
		c.logger.Debug(ctx, "no walking route",
			logger.String("origin", origin.Label()),
			logger.String("dest", dest.Label()),
			logger.String("status", el.Status),
		)
		return 0, false, nil
	}
	metrics.RecordRoutingRequest(apiDistanceMatrix, "ok")
	return float64(el.Distance.Meters), true, nil
}

// Route fetches the walking route from origin to dest. It returns
// ErrNoRoute when the service finds none.
func (c *Client) Route(ctx context.Context, origin, dest model.Coordinate) (Route, error) {
	start := time.Now()
	routes, _, err := c.maps.Directions(ctx, &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(dest),
		Mode:        maps.TravelModeWalking,
	})
	metrics.RecordRoutingLatency(apiDirections, time.Since(start).Seconds())
	if err != nil {
		for _, status := range noRouteStatuses {
			if strings.Contains(err.Error(), status) {
				metrics.RecordRoutingRequest(apiDirections, "no_route")
				metrics.RecordRoutingNoRoute(status)
				return Route{}, ErrNoRoute
			}
		}
		metrics.RecordRoutingRequest(apiDirections, "error")
		metrics.RecordErrorByComponent("routing", "directions")
		return Route{}, fmt.Errorf("%w: directions: %w", ErrRequest, err)
	}
	if len(routes) == 0 {
		metrics.RecordRoutingRequest(apiDirections, "no_route")
		return Route{}, ErrNoRoute
	}

	r := routes[0]
	path, err := DecodePath(r.OverviewPolyline.Points)
	if err != nil {
		metrics.RecordRoutingRequest(apiDirections, "error")
		return Route{}, fmt.Errorf("%w: decode polyline: %w", ErrRequest, err)
	}
	out := Route{Path: path, Encoded: r.OverviewPolyline.Points}
	for _, leg := range r.Legs {
		out.Meters += leg.Distance.Meters
		out.Duration += leg.Duration
	}
	metrics.RecordRoutingRequest(apiDirections, "ok")
	return out, nil
}

// DecodePath decodes an encoded polyline into coordinates.
func DecodePath(encoded string) ([]model.Coordinate, error) {
	lls, err := maps.DecodePolyline(encoded)
	if err != nil {
		return nil, err
	}
	out := make([]model.Coordinate, len(lls))
	for i, ll := range lls {
		out[i] = model.Coordinate{Lat: ll.Lat, Lon: ll.Lng}
	}
	return out, nil
}

// EncodePath encodes coordinates as a polyline (1e-5 degree precision).
func EncodePath(path []model.Coordinate) string {
	lls := make([]maps.LatLng, len(path))
	for i, c := range path {
		lls[i] = maps.LatLng{Lat: c.Lat, Lng: c.Lon}
	}
	return maps.Encode(lls)
}

func latLng(c model.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
