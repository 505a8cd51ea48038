package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/aedplacement/internal/adapters/repository"
	"github.com/okian/aedplacement/internal/adapters/routing"
	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/pkg/logger"
)

type routeResponse struct {
	Incident model.Coordinate   `json:"incident"`
	AED      model.Coordinate   `json:"aed"`
	Path     []model.Coordinate `json:"path"`
	Polyline string             `json:"polyline"`
	Meters   int                `json:"meters"`
	Seconds  float64            `json:"seconds"`
	// Distance is the straight-line distance to the nearest AED.
	Distance int `json:"distance"`
}

// handleRoute handles GET /api/route?lat=..&lon=..: the clicked incident
// must match a known incident exactly.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if s.router == nil {
		writeError(w, http.StatusServiceUnavailable, "routing_disabled", ErrRoutingDisabled)
		return
	}
	c, err := parseCoordinate(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	row, err := s.store.IncidentAt(r.Context(), c)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !row.HasAED {
		s.writeStoreError(w, r, fmt.Errorf("%w: %s", repository.ErrNoAED, c.Label()))
		return
	}

	route, err := s.router.Route(r.Context(), row.Point, row.AED)
	switch {
	case errors.Is(err, routing.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no_route", err)
		return
	case err != nil:
		s.logger.Error(r.Context(), "directions failed", logger.String("incident", c.Label()), logger.Error(err))
		writeError(w, http.StatusBadGateway, "routing_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{
		Incident: row.Point,
		AED:      row.AED,
		Path:     route.Path,
		Polyline: route.Encoded,
		Meters:   route.Meters,
		Seconds:  route.Duration.Seconds(),
		Distance: row.Distance,
	})
}

func parseCoordinate(lat, lon string) (model.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: lat %q", ErrBadRequest, lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: lon %q", ErrBadRequest, lon)
	}
	return model.Coordinate{Lat: la, Lon: lo}, nil
}
