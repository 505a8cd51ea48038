package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/okian/aedplacement/internal/domain/coverage"
	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/internal/domain/model"
)

// Buffer radius bounds in meters.
const (
	minRadius     = 100
	maxRadius     = 400
	radiusStep    = 50
	defaultRadius = 300
)

const geoJSONContentType = "application/geo+json; charset=utf-8"

type cityResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type coverageResponse struct {
	City       string  `json:"city"`
	Header     string  `json:"header"`
	Old        string  `json:"old"`
	New        string  `json:"new"`
	OldPercent float64 `json:"old_percent"`
	NewPercent float64 `json:"new_percent"`
}

// handleCities handles GET /api/cities.
func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	cities := s.store.Cities(r.Context())
	out := make([]cityResponse, len(cities))
	for i, c := range cities {
		out[i] = cityResponse{Key: c.Key, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePoints handles GET /api/cities/{city}/points. Each feature carries
// its type, legend label and, for incidents, the nearest AED.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Points(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		f := geojson.NewFeature(geo.Point(row.Point))
		f.Properties["type"] = string(row.Type)
		f.Properties["label"] = row.Type.Label()
		f.Properties["lat"] = row.Point.Lat
		f.Properties["lon"] = row.Point.Lon
		if row.HasAED {
			f.Properties["aed_lat"] = row.AED.Lat
			f.Properties["aed_lon"] = row.AED.Lon
			f.Properties["distance"] = row.Distance
		}
		fc.Append(f)
	}
	s.writeFeatures(w, r, fc)
}

// handleHeatmap handles GET /api/cities/{city}/heatmap.
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Heatmap(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		f := geojson.NewFeature(geo.Point(row.Point))
		f.Properties["density"] = row.Density
		fc.Append(f)
	}
	s.writeFeatures(w, r, fc)
}

// handleBuffers handles GET /api/cities/{city}/buffers?radius=R.
func (s *Server) handleBuffers(w http.ResponseWriter, r *http.Request) {
	radius, err := parseRadius(r.URL.Query().Get("radius"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_radius", err)
		return
	}
	aeds, err := s.store.OldAEDs(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, c := range aeds {
		f := geojson.NewFeature(bufferPolygon(c, float64(radius)))
		f.Properties["radius"] = radius
		fc.Append(f)
	}
	s.writeFeatures(w, r, fc)
}

// handleCoverage handles GET /api/cities/{city}/coverage.
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "city")
	row, err := s.store.Coverage(r.Context(), name)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	display := row.City
	for _, c := range s.store.Cities(r.Context()) {
		if c.Key == row.City {
			display = c.Name
			break
		}
	}
	oldPct, newPct := coverage.Round2(row.Old), coverage.Round2(row.New)
	writeJSON(w, http.StatusOK, coverageResponse{
		City:       display,
		Header:     fmt.Sprintf("Coverage in %s:", display),
		Old:        "Old Coverage: " + formatPercent(oldPct),
		New:        "New Coverage: " + formatPercent(newPct),
		OldPercent: oldPct,
		NewPercent: newPct,
	})
}

func (s *Server) writeFeatures(w http.ResponseWriter, r *http.Request, fc *geojson.FeatureCollection) {
	b, err := fc.MarshalJSON()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeRaw(w, geoJSONContentType, b)
}

// parseRadius accepts an empty value (default) or a multiple of radiusStep
// within [minRadius, maxRadius].
func parseRadius(raw string) (int, error) {
	if raw == "" {
		return defaultRadius, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: radius %q", ErrBadRequest, raw)
	}
	if v < minRadius || v > maxRadius || (v-minRadius)%radiusStep != 0 {
		return 0, fmt.Errorf("%w: radius must be %d..%d in steps of %d", ErrBadRequest, minRadius, maxRadius, radiusStep)
	}
	return v, nil
}

func bufferPolygon(center model.Coordinate, radius float64) orb.Polygon {
	ring := geo.CircleRing(center, radius)
	out := make(orb.Ring, 0, len(ring)+1)
	for _, c := range ring {
		out = append(out, geo.Point(c))
	}
	if len(out) > 0 {
		out = append(out, out[0])
	}
	return orb.Polygon{out}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}
