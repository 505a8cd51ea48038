package geo_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/internal/domain/model"
)

func square(minLon, minLat, maxLon, maxLat float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}}
}

func TestHaversine(t *testing.T) {
	Convey("Given two points in Brussels", t, func() {
		a := model.Coordinate{Lat: 50.85, Lon: 4.35}
		b := model.Coordinate{Lat: 50.851, Lon: 4.351}

		Convey("Then the distance is about 130 meters", func() {
			d := geo.HaversineMeters(a, b)
			So(d, ShouldAlmostEqual, 131, 3)
			So(geo.HaversineMeters(b, a), ShouldAlmostEqual, d, 1e-9)
			So(geo.HaversineMeters(a, a), ShouldEqual, 0)
		})

		Convey("And the far candidate is about 3.7 km away", func() {
			far := model.Coordinate{Lat: 50.86, Lon: 4.40}
			So(geo.HaversineMeters(a, far), ShouldAlmostEqual, 3700, 150)
		})
	})
}

func TestPlanarDistance(t *testing.T) {
	Convey("Planar distance works in degree space", t, func() {
		d := geo.PlanarDistance(model.Coordinate{Lat: 0, Lon: 0}, model.Coordinate{Lat: 3, Lon: 4})
		So(d, ShouldEqual, 5)
	})
}

func TestCityFiltering(t *testing.T) {
	Convey("Given a square city", t, func() {
		city := geo.City{Name: "Leuven", Boundary: square(4.6, 50.8, 4.8, 50.9)}

		Convey("When filtering incidents", func() {
			incidents := []model.Incident{
				{Coordinate: model.Coordinate{Lat: 50.85, Lon: 4.7}, Code: "P003"},
				{Coordinate: model.Coordinate{Lat: 51.2, Lon: 4.4}, Code: "P003"},
				{Coordinate: model.Coordinate{Lat: 50.81, Lon: 4.61}, Code: "P011"},
			}
			in := geo.FilterWithin(incidents, city)

			Convey("Then only incidents inside remain, in order", func() {
				So(len(in), ShouldEqual, 2)
				So(in[0].Code, ShouldEqual, "P003")
				So(in[1].Code, ShouldEqual, "P011")
			})
		})

		Convey("When filtering streets", func() {
			lines := []orb.LineString{
				{{4.65, 50.85}, {4.66, 50.86}}, // inside
				{{4.5, 50.85}, {4.9, 50.85}},   // crosses without a vertex inside
				{{5.0, 51.0}, {5.1, 51.1}},     // outside
				{{4.5, 50.95}, {4.55, 50.95}},  // outside, bound disjoint
				{},
			}
			kept := geo.StreetsWithin(lines, city)

			Convey("Then crossing and inner lines are kept", func() {
				So(len(kept), ShouldEqual, 2)
				So(kept[0], ShouldResemble, lines[0])
				So(kept[1], ShouldResemble, lines[1])
			})
		})
	})
}

func TestBounds(t *testing.T) {
	Convey("Belgium box accepts Brussels and rejects Paris", t, func() {
		So(geo.Belgium.Contains(model.Coordinate{Lat: 50.85, Lon: 4.35}), ShouldBeTrue)
		So(geo.Belgium.Contains(model.Coordinate{Lat: 48.86, Lon: 2.35}), ShouldBeFalse)
	})
}

func TestCircleRing(t *testing.T) {
	Convey("Given a 300 m ring", t, func() {
		center := model.Coordinate{Lat: 50.85, Lon: 4.35}
		ring := geo.CircleRing(center, 300)

		Convey("Then it has one vertex every 5 degrees", func() {
			So(len(ring), ShouldEqual, 72)
		})

		Convey("And the first vertex is due north", func() {
			So(ring[0].Lon, ShouldEqual, center.Lon)
			So(ring[0].Lat, ShouldAlmostEqual, center.Lat+300.0/111000, 1e-12)
		})

		Convey("And the east vertex is widened by the latitude", func() {
			east := ring[18]
			want := center.Lon + 300.0/111000/math.Cos(center.Lat*math.Pi/180)
			So(east.Lon, ShouldAlmostEqual, want, 1e-9)
		})
	})
}
