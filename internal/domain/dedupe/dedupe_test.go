package dedupe_test

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	dedupe "github.com/okian/aedplacement/internal/domain/dedupe"
	"github.com/okian/aedplacement/internal/domain/model"
)

func site(lat, lon float64) model.CandidateSite {
	return model.CandidateSite{Coordinate: model.Coordinate{Lat: lat, Lon: lon}}
}

func TestRemoveClose(t *testing.T) {
	Convey("Given candidate sites", t, func() {
		sites := []model.CandidateSite{
			site(50.0, 4.0),
			site(50.0, 4.0005), // too close to the first
			site(50.0, 4.002),
			site(50.0, 4.0025), // too close to the third
			site(50.01, 4.0),
		}
		original := append([]model.CandidateSite(nil), sites...)

		Convey("When removing close sites", func() {
			kept := dedupe.RemoveClose(sites, dedupe.DefaultMinDistance)

			Convey("Then earlier sites win and order is preserved", func() {
				So(kept, ShouldResemble, []model.CandidateSite{sites[0], sites[2], sites[4]})
			})

			Convey("And the input is untouched", func() {
				So(sites, ShouldResemble, original)
			})
		})

		Convey("When the separation is disabled", func() {
			kept := dedupe.RemoveClose(sites, 0)

			Convey("Then every site is kept", func() {
				So(kept, ShouldResemble, sites)
			})
		})
	})

	Convey("Given two sites exactly at the separation", t, func() {
		sites := []model.CandidateSite{site(0, 0), site(0, 0.5)}

		Convey("Then both are kept", func() {
			So(len(dedupe.RemoveClose(sites, 0.5)), ShouldEqual, 2)
		})
	})

	Convey("Given duplicate samples from a short street", t, func() {
		sites := []model.CandidateSite{site(50, 4), site(50, 4), site(50, 4), site(50, 4)}

		Convey("Then one survives", func() {
			So(len(dedupe.RemoveClose(sites, dedupe.DefaultMinDistance)), ShouldEqual, 1)
		})
	})

	Convey("Given random sites", t, func() {
		rng := rand.New(rand.NewSource(7))
		sites := make([]model.CandidateSite, 500)
		for i := range sites {
			sites[i] = site(50+rng.Float64()*0.05, 4+rng.Float64()*0.05)
		}

		Convey("Then no kept pair is closer than the separation", func() {
			kept := dedupe.RemoveClose(sites, dedupe.DefaultMinDistance)
			So(len(kept), ShouldBeGreaterThan, 0)
			So(len(kept), ShouldBeLessThan, len(sites))
			ok := true
			for i := range kept {
				for j := i + 1; j < len(kept); j++ {
					d := math.Hypot(kept[i].Lat-kept[j].Lat, kept[i].Lon-kept[j].Lon)
					if d < dedupe.DefaultMinDistance-1e-12 {
						ok = false
					}
				}
			}
			So(ok, ShouldBeTrue)
		})

		Convey("And every dropped site is near an earlier site", func() {
			kept := dedupe.RemoveClose(sites, dedupe.DefaultMinDistance)
			isKept := make(map[model.CandidateSite]bool, len(kept))
			for _, k := range kept {
				isKept[k] = true
			}
			ok := true
			for j, s := range sites {
				near := false
				for i := 0; i < j; i++ {
					if math.Hypot(s.Lat-sites[i].Lat, s.Lon-sites[i].Lon) < dedupe.DefaultMinDistance {
						near = true
						break
					}
				}
				if near == isKept[s] {
					ok = false
				}
			}
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given a chain where only neighbours collide", t, func() {
		sites := []model.CandidateSite{site(0, 0), site(0, 0.001), site(0, 0.002)}

		Convey("Then the later site of each close pair is dropped", func() {
			kept := dedupe.RemoveClose(sites, 0.0012)
			So(kept, ShouldResemble, []model.CandidateSite{sites[0]})
		})
	})

	Convey("Given sampled street points in spatial order", t, func() {
		var sites []model.CandidateSite
		for i := 0; i < 2000; i++ {
			sites = append(sites, site(50, 4+float64(i)*0.0005))
		}

		Convey("Then only the first site of the street survives", func() {
			kept := dedupe.RemoveClose(sites, 0.0006)
			So(kept, ShouldResemble, []model.CandidateSite{sites[0]})
		})

		Convey("And spacing wider than the separation keeps everything", func() {
			So(len(dedupe.RemoveClose(sites, 0.0004)), ShouldEqual, len(sites))
		})
	})
}

func TestDeduper(t *testing.T) {
	Convey("Given a deduper with options", t, func() {
		d := dedupe.New(dedupe.WithMinDistance(1))

		Convey("Then it applies the configured separation", func() {
			kept := d.Apply([]model.CandidateSite{site(0, 0), site(0, 0.9), site(0, 2)})
			So(len(kept), ShouldEqual, 2)
		})

		Convey("And defaults to the standard separation", func() {
			kept := dedupe.New().Apply([]model.CandidateSite{site(0, 0), site(0, 0.001), site(0, 0.0025)})
			So(len(kept), ShouldEqual, 2)
		})
	})
}
