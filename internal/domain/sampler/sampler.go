// Package sampler generates candidate AED sites along street geometries.
package sampler

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/internal/domain/model"
)

// DefaultPointsPerStreet is the number of samples taken on every street.
const DefaultPointsPerStreet = 4

// SampleStreets returns numPoints points per line at equal arc-length
// intervals, endpoints included, in line order. Lengths are planar in degree
// space. Lines shorter than any dedupe threshold still yield numPoints
// samples.
func SampleStreets(lines []orb.LineString, numPoints int) []model.CandidateSite {
	if numPoints < 1 {
		return nil
	}
	out := make([]model.CandidateSite, 0, len(lines)*numPoints)
	for _, ls := range lines {
		if len(ls) == 0 {
			continue
		}
		length := planar.Length(ls)
		for i := 0; i < numPoints; i++ {
			var d float64
			if numPoints > 1 {
				d = length * float64(i) / float64(numPoints-1)
			}
			out = append(out, model.CandidateSite{Coordinate: geo.FromPoint(Interpolate(ls, d))})
		}
	}
	return out
}

// Interpolate returns the point at planar distance d along ls. Distances
// beyond either end clamp to the endpoints.
func Interpolate(ls orb.LineString, d float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if d <= 0 {
		return ls[0]
	}
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if seg == 0 {
			continue
		}
		if d <= seg {
			f := d / seg
			return orb.Point{
				ls[i-1][0] + f*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + f*(ls[i][1]-ls[i-1][1]),
			}
		}
		d -= seg
	}
	return ls[len(ls)-1]
}

// Split flattens multi-line geometries so that each part is sampled on its own.
func Split(g orb.Geometry) []orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return []orb.LineString{v}
	case orb.MultiLineString:
		return append([]orb.LineString(nil), v...)
	default:
		return nil
	}
}
