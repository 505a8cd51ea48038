package coverage_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aedplacement/internal/domain/coverage"
	"github.com/okian/aedplacement/internal/domain/model"
)

func TestPercent(t *testing.T) {
	Convey("Given incidents around an AED", t, func() {
		aed := model.Coordinate{Lat: 50.85, Lon: 4.35}
		incidents := []model.Coordinate{
			{Lat: 50.8505, Lon: 4.35}, // about 56 m
			{Lat: 50.851, Lon: 4.351}, // about 131 m
			{Lat: 50.86, Lon: 4.40},   // several km
			{Lat: 50.853, Lon: 4.35},  // about 334 m
		}

		Convey("Then half are covered at 150 m", func() {
			So(coverage.Percent(incidents, []model.Coordinate{aed}, 150), ShouldEqual, 50)
		})

		Convey("And none without AEDs", func() {
			So(coverage.Percent(incidents, nil, 150), ShouldEqual, 0)
		})

		Convey("And zero incidents give zero", func() {
			So(coverage.Percent(nil, []model.Coordinate{aed}, 150), ShouldEqual, 0)
		})
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given an evaluator and a new site", t, func() {
		e := coverage.NewEvaluator(coverage.WithRadius(150))
		incidents := []model.Incident{
			{Coordinate: model.Coordinate{Lat: 50.85, Lon: 4.35}},
			{Coordinate: model.Coordinate{Lat: 50.86, Lon: 4.40}},
			{Coordinate: model.Coordinate{Lat: 50.90, Lon: 4.50}},
		}
		existing := []model.Coordinate{{Lat: 50.8501, Lon: 4.3501}}
		added := []model.Coordinate{{Lat: 50.8601, Lon: 4.4001}}

		Convey("When evaluating", func() {
			r := e.Evaluate("Brussels", incidents, existing, added)

			Convey("Then new coverage includes the existing AEDs", func() {
				So(r.City, ShouldEqual, "Brussels")
				So(coverage.Round2(r.Old), ShouldEqual, 33.33)
				So(coverage.Round2(r.New), ShouldEqual, 66.67)
				So(r.New, ShouldBeGreaterThanOrEqualTo, r.Old)
			})
		})

		Convey("Then the radius is configurable", func() {
			So(e.Radius(), ShouldEqual, 150)
			So(coverage.NewEvaluator().Radius(), ShouldEqual, coverage.DefaultRadius)
		})
	})
}

func TestNearestAssignments(t *testing.T) {
	Convey("Given two AEDs", t, func() {
		aeds := []model.Coordinate{{Lat: 50.85, Lon: 4.35}, {Lat: 50.86, Lon: 4.40}}
		incidents := []model.Coordinate{{Lat: 50.851, Lon: 4.351}, {Lat: 50.8601, Lon: 4.4}}

		Convey("Then each incident gets the nearest one in whole meters", func() {
			got := coverage.NearestAssignments(incidents, aeds)
			So(len(got), ShouldEqual, 2)
			So(got[0].AED, ShouldResemble, aeds[0])
			So(got[0].Meters, ShouldBeBetween, 128, 135)
			So(got[1].AED, ShouldResemble, aeds[1])
			So(got[1].Meters, ShouldEqual, 11)
			So(got[1].Found, ShouldBeTrue)
		})

		Convey("And without AEDs nothing is found", func() {
			got := coverage.NearestAssignments(incidents, nil)
			So(got[0].Found, ShouldBeFalse)
		})
	})
}

func TestRound2(t *testing.T) {
	Convey("Percentages round to two decimals", t, func() {
		So(coverage.Round2(12.345678), ShouldEqual, 12.35)
		So(coverage.Round2(40.1), ShouldEqual, 40.1)
	})
}
