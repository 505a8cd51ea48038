package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/aedplacement/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestCoordinateKey(t *testing.T) {
	convey.Convey("Given coordinates from different datasets", t, func() {
		a := model.Coordinate{Lat: 50.8503, Lon: 4.3517}

		convey.Convey("When they differ only by float noise", func() {
			b := model.Coordinate{Lat: 50.85030000000001, Lon: 4.351699999999999}

			convey.Convey("Then they share a key", func() {
				convey.So(a.Key(), convey.ShouldResemble, b.Key())
			})
		})

		convey.Convey("When they differ at the seventh decimal", func() {
			b := model.Coordinate{Lat: 50.8503001, Lon: 4.3517}

			convey.Convey("Then the keys differ", func() {
				convey.So(a.Key(), convey.ShouldNotResemble, b.Key())
			})
		})
	})
}

func TestCoordinateLabels(t *testing.T) {
	convey.Convey("Given a coordinate", t, func() {
		c := model.Coordinate{Lat: 50.85, Lon: 4.35}

		convey.Convey("Then labels follow the exported matrix format", func() {
			convey.So(c.Label(), convey.ShouldEqual, "50.85, 4.35")
			convey.So(c.Tuple(), convey.ShouldEqual, "(50.85, 4.35)")
			convey.So(c.String(), convey.ShouldEqual, "(50.85, 4.35)")
		})

		convey.Convey("And ParseTuple reverses both labels", func() {
			fromTuple, err := model.ParseTuple(c.Tuple())
			convey.So(err, convey.ShouldBeNil)
			convey.So(fromTuple, convey.ShouldResemble, c)

			fromLabel, err := model.ParseTuple(c.Label())
			convey.So(err, convey.ShouldBeNil)
			convey.So(fromLabel, convey.ShouldResemble, c)
		})
	})
}

func TestParseTupleErrors(t *testing.T) {
	convey.Convey("Given malformed tuples", t, func() {
		for _, s := range []string{"", "(50.85)", "(a, 4.35)", "(50.85, b)", "1,2,3"} {
			_, err := model.ParseTuple(s)
			convey.So(errors.Is(err, model.ErrBadCoordinate), convey.ShouldBeTrue)
		}
	})
}

func TestParsePointWKT(t *testing.T) {
	convey.Convey("Given a WKT point", t, func() {
		convey.Convey("When it is well formed", func() {
			c, err := model.ParsePointWKT("POINT (4.35 50.85)")

			convey.Convey("Then longitude comes first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Lat, convey.ShouldEqual, 50.85)
				convey.So(c.Lon, convey.ShouldEqual, 4.35)
			})
		})

		convey.Convey("When it is not a point", func() {
			_, err := model.ParsePointWKT("LINESTRING (4 50, 5 51)")

			convey.Convey("Then it fails", func() {
				convey.So(errors.Is(err, model.ErrBadCoordinate), convey.ShouldBeTrue)
			})
		})
	})
}

func TestCoordinates(t *testing.T) {
	convey.Convey("Given incidents", t, func() {
		incidents := []model.Incident{
			{Coordinate: model.Coordinate{Lat: 1, Lon: 2}, Code: "P003"},
			{Coordinate: model.Coordinate{Lat: 3, Lon: 4}, Code: "P011"},
		}

		convey.Convey("Then Coordinates extracts positions in order", func() {
			convey.So(model.Coordinates(incidents), convey.ShouldResemble, []model.Coordinate{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
		})
	})
}
