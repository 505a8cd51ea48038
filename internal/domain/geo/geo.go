// Package geo holds the planar and spherical helpers shared by the pipeline:
// distances, city polygon filtering and buffer rings.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/okian/aedplacement/internal/domain/model"
)

const (
	earthRadiusMeters = 6371000.0
	// metersPerDegree approximates one degree of latitude.
	metersPerDegree = 111000.0
	ringStepDegrees = 5
)

// Bounds is a lat/lon bounding box.
type Bounds struct {
	MinLat float64 `koanf:"min_lat" yaml:"min_lat"`
	MinLon float64 `koanf:"min_lon" yaml:"min_lon"`
	MaxLat float64 `koanf:"max_lat" yaml:"max_lat"`
	MaxLon float64 `koanf:"max_lon" yaml:"max_lon"`
}

// Belgium is the plausibility box used when cleaning incident data.
var Belgium = Bounds{MinLat: 49, MinLon: 2.5, MaxLat: 52, MaxLon: 6.4}

// Contains reports whether c lies inside b (edges included).
func (b Bounds) Contains(c model.Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b model.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PlanarDistance is the Euclidean distance in degree space. Candidate
// activation and deduplication work in this space.
func PlanarDistance(a, b model.Coordinate) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon)
}

// Point converts a coordinate to an orb point (x = lon, y = lat).
func Point(c model.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point to a coordinate.
func FromPoint(p orb.Point) model.Coordinate {
	return model.Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

// City is a named urban polygon.
type City struct {
	Name     string
	Boundary orb.MultiPolygon
}

// Contains reports whether c lies inside the city boundary.
func (c City) Contains(p model.Coordinate) bool {
	pt := Point(p)
	if !c.Boundary.Bound().Contains(pt) {
		return false
	}
	return planar.MultiPolygonContains(c.Boundary, pt)
}

// FilterWithin keeps the items located inside city, preserving order.
func FilterWithin[T interface{ Position() model.Coordinate }](items []T, city City) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if city.Contains(it.Position()) {
			out = append(out, it)
		}
	}
	return out
}

// StreetsWithin keeps the lines that intersect the city boundary.
func StreetsWithin(lines []orb.LineString, city City) []orb.LineString {
	bound := city.Boundary.Bound()
	out := make([]orb.LineString, 0, len(lines))
	for _, ls := range lines {
		if len(ls) == 0 || !ls.Bound().Intersects(bound) {
			continue
		}
		if lineIntersects(ls, city.Boundary) {
			out = append(out, ls)
		}
	}
	return out
}

func lineIntersects(ls orb.LineString, mp orb.MultiPolygon) bool {
	for _, p := range ls {
		if planar.MultiPolygonContains(mp, p) {
			return true
		}
	}
	for i := 1; i < len(ls); i++ {
		for _, poly := range mp {
			for _, ring := range poly {
				for j := 1; j < len(ring); j++ {
					if segmentsCross(ls[i-1], ls[i], ring[j-1], ring[j]) {
						return true
					}
				}
			}
		}
	}
	return false
}

func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// CircleRing approximates a circle of radiusMeters around center with one
// vertex every 5 degrees. Longitude offsets are widened by 1/cos(lat).
func CircleRing(center model.Coordinate, radiusMeters float64) []model.Coordinate {
	radiusDeg := radiusMeters / metersPerDegree
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	out := make([]model.Coordinate, 0, 360/ringStepDegrees)
	for angle := 0; angle < 360; angle += ringStepDegrees {
		rad := float64(angle) * math.Pi / 180
		out = append(out, model.Coordinate{
			Lat: center.Lat + radiusDeg*math.Cos(rad),
			Lon: center.Lon + radiusDeg*math.Sin(rad)/cosLat,
		})
	}
	return out
}
