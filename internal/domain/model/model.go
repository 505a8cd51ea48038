// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
)

// keyScale fixes coordinate identity at 7 decimal places (about 1 cm).
const keyScale = 1e7

// ErrBadCoordinate is returned when a coordinate string cannot be parsed.
var ErrBadCoordinate = errors.New("bad coordinate")

// Coordinate is a WGS 84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CoordKey is the canonical identity of a coordinate. Two coordinates that
// print to the same 7-decimal tuple share a key, so joins across datasets
// never depend on exact float equality.
type CoordKey struct {
	Lat int64
	Lon int64
}

// Key returns the canonical identity of c.
func (c Coordinate) Key() CoordKey {
	return CoordKey{
		Lat: int64(math.Round(c.Lat * keyScale)),
		Lon: int64(math.Round(c.Lon * keyScale)),
	}
}

// Label formats c as "lat, lon", the row label of exported cost matrices.
func (c Coordinate) Label() string {
	return fmt.Sprintf("%s, %s", formatFloat(c.Lat), formatFloat(c.Lon))
}

// Tuple formats c as "(lat, lon)", the column label of exported cost matrices.
func (c Coordinate) Tuple() string {
	return "(" + c.Label() + ")"
}

func (c Coordinate) String() string { return c.Tuple() }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Incident is a historical cardiac-arrest event.
type Incident struct {
	Coordinate
	Code string
}

// CandidateSite is a street-sampled point eligible for AED placement.
type CandidateSite struct {
	Coordinate
}

// AED is an existing defibrillator location.
type AED struct {
	Coordinate
}

// Coordinates extracts the positions of any slice of located values.
func Coordinates[T interface{ Position() Coordinate }](items []T) []Coordinate {
	out := make([]Coordinate, len(items))
	for i, it := range items {
		out[i] = it.Position()
	}
	return out
}

// Position returns the coordinate itself; it lets Incident, CandidateSite
// and AED satisfy the constraint of Coordinates through embedding.
func (c Coordinate) Position() Coordinate { return c }

// ParsePointWKT parses "POINT (lon lat)".
func ParsePointWKT(s string) (Coordinate, error) {
	p, err := wkt.UnmarshalPoint(s)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q: %v", ErrBadCoordinate, s, err)
	}
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}, nil
}

// ParseTuple accepts "(lat, lon)", "lat, lon" and "lat,lon".
func ParseTuple(s string) (Coordinate, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrBadCoordinate, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrBadCoordinate, err)
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}
