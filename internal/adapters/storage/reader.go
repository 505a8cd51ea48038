// Package storage reads the pipeline inputs and reads and writes its flat
// file outputs.
package storage

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/internal/domain/sampler"
)

// Input file names under the data directory.
const (
	IncidentsFile = "incidents.csv"
	AEDsFile      = "aeds.csv"
	CitiesFile    = "cities.geojson"
	StreetsFile   = "streets.geojson"
)

var (
	latColumns  = []string{"latitude", "lat"}
	lonColumns  = []string{"longitude", "lon", "lng"}
	wktColumns  = []string{"geometry", "wkt", "point"}
	codeColumns = []string{"code", "eventtype", "event_type"}
)

// ReadIncidents parses incident rows. Rows without coordinates are skipped.
func ReadIncidents(r io.Reader) ([]model.Incident, error) {
	var out []model.Incident
	err := eachRecord(r, func(h header, rec []string, line int) error {
		codeIdx, err := h.require(codeColumns...)
		if err != nil {
			return err
		}
		c, ok, err := coordinate(h, rec, line)
		if err != nil || !ok {
			return err
		}
		out = append(out, model.Incident{Coordinate: c, Code: field(rec, codeIdx)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read incidents: %w", err)
	}
	return out, nil
}

// ReadAEDs parses AED rows given either as latitude/longitude columns or as
// a WKT point column.
func ReadAEDs(r io.Reader) ([]model.AED, error) {
	var out []model.AED
	err := eachRecord(r, func(h header, rec []string, line int) error {
		c, ok, err := coordinate(h, rec, line)
		if err != nil || !ok {
			return err
		}
		out = append(out, model.AED{Coordinate: c})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read aeds: %w", err)
	}
	return out, nil
}

// coordinate extracts a position from a row. ok is false for empty cells.
func coordinate(h header, rec []string, line int) (model.Coordinate, bool, error) {
	if latIdx, ok := h.index(latColumns...); ok {
		lonIdx, err := h.require(lonColumns...)
		if err != nil {
			return model.Coordinate{}, false, err
		}
		if field(rec, latIdx) == "" || field(rec, lonIdx) == "" {
			return model.Coordinate{}, false, nil
		}
		lat, err := parseFloat(rec, latIdx, line)
		if err != nil {
			return model.Coordinate{}, false, err
		}
		lon, err := parseFloat(rec, lonIdx, line)
		if err != nil {
			return model.Coordinate{}, false, err
		}
		return model.Coordinate{Lat: lat, Lon: lon}, true, nil
	}

	wktIdx, err := h.require(wktColumns...)
	if err != nil {
		return model.Coordinate{}, false, fmt.Errorf("%w or %s|%s", err, latColumns[0], lonColumns[0])
	}
	if field(rec, wktIdx) == "" {
		return model.Coordinate{}, false, nil
	}
	c, err := model.ParsePointWKT(field(rec, wktIdx))
	if err != nil {
		return model.Coordinate{}, false, fmt.Errorf("line %d: %w", line, err)
	}
	return c, true, nil
}

// ReadCities loads city polygons from a GeoJSON feature collection whose
// features carry a "name" property. With names empty every city is
// returned; otherwise cities follow the order of names.
func ReadCities(data []byte, names []string) ([]geo.City, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("read cities: %w", err)
	}
	byName := make(map[string]geo.City, len(fc.Features))
	var all []geo.City
	for _, f := range fc.Features {
		name := f.Properties.MustString("name", "")
		if name == "" {
			continue
		}
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			return nil, fmt.Errorf("read cities: %w: %s is %T", ErrBadGeometry, name, f.Geometry)
		}
		c := geo.City{Name: name, Boundary: mp}
		byName[strings.ToLower(name)] = c
		all = append(all, c)
	}
	if len(names) == 0 {
		return all, nil
	}
	out := make([]geo.City, 0, len(names))
	for _, n := range names {
		c, ok := byName[strings.ToLower(n)]
		if !ok {
			return nil, fmt.Errorf("read cities: %w: %s", ErrCityNotFound, n)
		}
		out = append(out, c)
	}
	return out, nil
}

// ReadStreets loads street lines from a GeoJSON feature collection. Multi
// lines are flattened; other geometries are ignored.
func ReadStreets(data []byte) ([]orb.LineString, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("read streets: %w", err)
	}
	out := make([]orb.LineString, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, sampler.Split(f.Geometry)...)
	}
	return out, nil
}

// ReadToken returns the trimmed content of a token file.
func ReadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEmptyToken, err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyToken, path)
	}
	return token, nil
}

// InsertDecimal repairs a coordinate exported without its decimal point by
// placing the point after the first k digits, e.g. InsertDecimal(5085123, 2)
// is 50.85123.
func InsertDecimal(v float64, k int) float64 {
	s := strings.ReplaceAll(strconv.FormatFloat(v, 'f', -1, 64), ".", "")
	if k < 0 || k > len(s) {
		return v
	}
	out, err := strconv.ParseFloat(s[:k]+"."+s[k:], 64)
	if err != nil {
		return v
	}
	return out
}

// Latitude and longitude digit counts before the decimal point in Belgium.
const (
	latIntDigits = 2
	lonIntDigits = 1
)

// CleanIncidents keeps incidents with one of codes whose position, after
// decimal repair, lies in bounds. Input order is preserved.
func CleanIncidents(incidents []model.Incident, codes []string, bounds geo.Bounds) []model.Incident {
	allowed := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	out := make([]model.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if _, ok := allowed[strings.ToUpper(inc.Code)]; !ok && len(allowed) > 0 {
			continue
		}
		inc.Coordinate = Repair(inc.Coordinate, bounds)
		if bounds.Contains(inc.Coordinate) {
			out = append(out, inc)
		}
	}
	return out
}

// CleanAEDs keeps AEDs that lie in bounds after decimal repair.
func CleanAEDs(aeds []model.AED, bounds geo.Bounds) []model.AED {
	out := make([]model.AED, 0, len(aeds))
	for _, a := range aeds {
		a.Coordinate = Repair(a.Coordinate, bounds)
		if bounds.Contains(a.Coordinate) {
			out = append(out, a)
		}
	}
	return out
}

// Repair applies InsertDecimal to each axis that falls outside bounds.
func Repair(c model.Coordinate, bounds geo.Bounds) model.Coordinate {
	if c.Lat < bounds.MinLat || c.Lat > bounds.MaxLat {
		c.Lat = InsertDecimal(c.Lat, latIntDigits)
	}
	if c.Lon < bounds.MinLon || c.Lon > bounds.MaxLon {
		c.Lon = InsertDecimal(c.Lon, lonIntDigits)
	}
	return c
}
