package costmatrix_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aedplacement/internal/domain/costmatrix"
	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/pkg/logger"
)

type stubConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (s *stubConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	s.prompts = append(s.prompts, prompt)
	return s.answer, s.err
}

type call struct{ origin, dest model.Coordinate }

type stubResolver struct {
	mu     sync.Mutex
	calls  []call
	meters func(origin, dest model.Coordinate) (float64, bool, error)
}

func (s *stubResolver) Resolve(_ context.Context, origin, dest model.Coordinate) (float64, bool, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call{origin, dest})
	s.mu.Unlock()
	if s.meters == nil {
		return 100, true, nil
	}
	return s.meters(origin, dest)
}

func incident(lat, lon float64) model.Incident {
	return model.Incident{Coordinate: model.Coordinate{Lat: lat, Lon: lon}, Code: "P003"}
}

func candidate(lat, lon float64) model.CandidateSite {
	return model.CandidateSite{Coordinate: model.Coordinate{Lat: lat, Lon: lon}}
}

func setup() {
	_ = logger.InitWithWriter(io.Discard)
}

func TestCost(t *testing.T) {
	Convey("Given the three cell states", t, func() {
		Convey("Then only resolved cells expose meters", func() {
			m, ok := costmatrix.ResolvedCost(120).Meters()
			So(ok, ShouldBeTrue)
			So(m, ShouldEqual, 120)

			_, ok = costmatrix.UnknownCost().Meters()
			So(ok, ShouldBeFalse)
			_, ok = costmatrix.ExcludedCost().Meters()
			So(ok, ShouldBeFalse)
		})

		Convey("And export values use the sentinel for excluded cells", func() {
			v, ok := costmatrix.ExcludedCost().Value(1000)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 1000)
			_, ok = costmatrix.UnknownCost().Value(1000)
			So(ok, ShouldBeFalse)
		})

		Convey("And activity follows the state", func() {
			So(costmatrix.ExcludedCost().Active(), ShouldBeFalse)
			So(costmatrix.UnknownCost().Active(), ShouldBeTrue)
			So(costmatrix.ResolvedCost(0).Active(), ShouldBeTrue)
			So(costmatrix.Unknown.String(), ShouldEqual, "unknown")
		})
	})
}

func TestActivate(t *testing.T) {
	Convey("Given incidents and candidates", t, func() {
		incidents := []model.Incident{incident(0, 0), incident(10, 10)}
		candidates := []model.CandidateSite{
			candidate(0, 3),
			candidate(0, 1),
			candidate(0, 2),
			candidate(10, 11),
		}

		Convey("When activating two per row", func() {
			m, err := costmatrix.Activate(incidents, candidates, 2)

			Convey("Then the two nearest are active", func() {
				So(err, ShouldBeNil)
				So(m.ActiveCols(0), ShouldResemble, []int{1, 2})
				So(m.ActiveCols(1), ShouldResemble, []int{0, 3})
				So(m.At(0, 0).State(), ShouldEqual, costmatrix.Excluded)
				So(m.At(0, 1).State(), ShouldEqual, costmatrix.Unknown)
			})
		})

		Convey("When k exceeds the number of candidates", func() {
			m, err := costmatrix.Activate(incidents, candidates, 50)

			Convey("Then every cell is active", func() {
				So(err, ShouldBeNil)
				So(m.Count(costmatrix.Unknown), ShouldEqual, 8)
			})
		})

		Convey("When k is not positive", func() {
			_, err := costmatrix.Activate(incidents, candidates, 0)

			Convey("Then it fails", func() {
				So(errors.Is(err, costmatrix.ErrInvalidK), ShouldBeTrue)
			})
		})
	})

	Convey("Given equidistant candidates", t, func() {
		incidents := []model.Incident{incident(0, 0)}
		candidates := []model.CandidateSite{candidate(0, 5), candidate(0, 1), candidate(0, -1), candidate(1, 0)}

		Convey("Then the lower index wins the tie", func() {
			m, err := costmatrix.Activate(incidents, candidates, 2)
			So(err, ShouldBeNil)
			So(m.ActiveCols(0), ShouldResemble, []int{1, 2})
		})
	})
}

func TestBuild(t *testing.T) {
	setup()

	Convey("Given one Brussels incident and two candidates", t, func() {
		incidents := []model.Incident{incident(50.85, 4.35)}
		candidates := []model.CandidateSite{candidate(50.851, 4.351), candidate(50.86, 4.40)}
		resolver := &stubResolver{}

		Convey("When the operator confirms", func() {
			confirmer := &stubConfirmer{answer: true}
			b := costmatrix.NewBuilder(resolver, confirmer)
			res, err := b.Build(context.Background(), incidents, candidates, 1)

			Convey("Then only the nearest cell is requested", func() {
				So(err, ShouldBeNil)
				So(res.Skipped, ShouldBeFalse)
				So(res.Requests, ShouldEqual, 1)
				So(res.Resolved, ShouldEqual, 1)
				So(len(resolver.calls), ShouldEqual, 1)
				So(resolver.calls[0].dest, ShouldResemble, candidates[0].Coordinate)
				So(confirmer.prompts, ShouldResemble, []string{"This will initialize 1 API requests. Are you sure? (yes/no): "})
			})

			Convey("And the far candidate stays excluded", func() {
				So(res.Matrix.At(0, 1).State(), ShouldEqual, costmatrix.Excluded)
				meters, ok := res.Matrix.At(0, 0).Meters()
				So(ok, ShouldBeTrue)
				So(meters, ShouldEqual, 100)
			})
		})

		Convey("When the operator declines", func() {
			confirmer := &stubConfirmer{answer: false}
			b := costmatrix.NewBuilder(resolver, confirmer)
			res, err := b.Build(context.Background(), incidents, candidates, 2)

			Convey("Then no request is made and the matrix is all zero", func() {
				So(err, ShouldBeNil)
				So(res.Skipped, ShouldBeTrue)
				So(resolver.calls, ShouldBeEmpty)
				for j := 0; j < res.Matrix.Cols(); j++ {
					meters, ok := res.Matrix.At(0, j).Meters()
					So(ok, ShouldBeTrue)
					So(meters, ShouldEqual, 0)
				}
			})
		})

		Convey("When the confirmer fails", func() {
			confirmer := &stubConfirmer{err: io.ErrUnexpectedEOF}
			_, err := costmatrix.NewBuilder(resolver, confirmer).Build(context.Background(), incidents, candidates, 1)

			Convey("Then the build fails without requests", func() {
				So(errors.Is(err, io.ErrUnexpectedEOF), ShouldBeTrue)
				So(resolver.calls, ShouldBeEmpty)
			})
		})

		Convey("When the service has no route", func() {
			resolver.meters = func(model.Coordinate, model.Coordinate) (float64, bool, error) { return 0, false, nil }
			res, err := costmatrix.NewBuilder(resolver, &stubConfirmer{answer: true}).Build(context.Background(), incidents, candidates, 2)

			Convey("Then the cells stay unknown", func() {
				So(err, ShouldBeNil)
				So(res.Unknown, ShouldEqual, 2)
				So(res.Matrix.At(0, 0).State(), ShouldEqual, costmatrix.Unknown)
			})
		})

		Convey("When a request fails", func() {
			boom := errors.New("boom")
			resolver.meters = func(model.Coordinate, model.Coordinate) (float64, bool, error) { return 0, false, boom }
			_, err := costmatrix.NewBuilder(resolver, &stubConfirmer{answer: true}).Build(context.Background(), incidents, candidates, 2)

			Convey("Then the build aborts after the first failure", func() {
				So(errors.Is(err, costmatrix.ErrResolve), ShouldBeTrue)
				So(errors.Is(err, boom), ShouldBeTrue)
				So(len(resolver.calls), ShouldEqual, 1)
			})
		})

		Convey("When no resolver is configured", func() {
			_, err := costmatrix.NewBuilder(nil, &stubConfirmer{answer: true}).Build(context.Background(), incidents, candidates, 1)
			So(errors.Is(err, costmatrix.ErrNoResolver), ShouldBeTrue)
		})
	})
}

func TestCSV(t *testing.T) {
	Convey("Given a matrix with every state", t, func() {
		incidents := []model.Incident{incident(50.85, 4.35), incident(50.9, 4.4)}
		candidates := []model.CandidateSite{candidate(50.851, 4.351), candidate(50.86, 4.4)}
		m := costmatrix.NewMatrix(incidents, candidates)
		m.Set(0, 0, costmatrix.ResolvedCost(131.5))
		m.Set(0, 1, costmatrix.UnknownCost())
		m.Set(1, 1, costmatrix.ResolvedCost(80))

		Convey("When it is written", func() {
			var buf bytes.Buffer
			So(m.WriteCSV(&buf, costmatrix.DefaultSentinel), ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

			Convey("Then labels and values follow the export format", func() {
				So(lines[0], ShouldEqual, `,"(50.851, 4.351)","(50.86, 4.4)"`)
				So(lines[1], ShouldEqual, `"50.85, 4.35",131.5,`)
				So(lines[2], ShouldEqual, `"50.9, 4.4",1000,80`)
			})

			Convey("And reading it back into the same activation restores every state", func() {
				back := costmatrix.NewMatrix(incidents, candidates)
				back.Set(0, 0, costmatrix.UnknownCost())
				back.Set(0, 1, costmatrix.UnknownCost())
				back.Set(1, 1, costmatrix.UnknownCost())
				So(back.ReadCSV(strings.NewReader(buf.String())), ShouldBeNil)
				So(back.At(0, 0), ShouldResemble, costmatrix.ResolvedCost(131.5))
				So(back.At(0, 1).State(), ShouldEqual, costmatrix.Unknown)
				So(back.At(1, 0).State(), ShouldEqual, costmatrix.Excluded)
				So(back.At(1, 1), ShouldResemble, costmatrix.ResolvedCost(80))
			})
		})

		Convey("When a resolved distance equals the sentinel", func() {
			m.Set(1, 1, costmatrix.ResolvedCost(costmatrix.DefaultSentinel))
			var buf bytes.Buffer
			So(m.WriteCSV(&buf, costmatrix.DefaultSentinel), ShouldBeNil)

			back := costmatrix.NewMatrix(incidents, candidates)
			back.Set(1, 1, costmatrix.UnknownCost())
			So(back.ReadCSV(strings.NewReader(buf.String())), ShouldBeNil)

			Convey("Then it stays resolved and the excluded neighbour stays excluded", func() {
				So(back.At(1, 1), ShouldResemble, costmatrix.ResolvedCost(costmatrix.DefaultSentinel))
				So(back.At(1, 0).State(), ShouldEqual, costmatrix.Excluded)
			})
		})

		Convey("When the export belongs to other candidates", func() {
			var buf bytes.Buffer
			So(m.WriteCSV(&buf, costmatrix.DefaultSentinel), ShouldBeNil)
			other := costmatrix.NewMatrix(incidents, []model.CandidateSite{candidate(50.851, 4.351), candidate(51, 4.4)})
			err := other.ReadCSV(strings.NewReader(buf.String()))
			So(errors.Is(err, costmatrix.ErrStaleMatrix), ShouldBeTrue)
		})

		Convey("When the export has a different shape", func() {
			var buf bytes.Buffer
			So(m.WriteCSV(&buf, costmatrix.DefaultSentinel), ShouldBeNil)
			smaller := costmatrix.NewMatrix(incidents[:1], candidates)
			So(errors.Is(smaller.ReadCSV(strings.NewReader(buf.String())), costmatrix.ErrDimension), ShouldBeTrue)
		})

		Convey("When reading a malformed file", func() {
			err := costmatrix.NewMatrix(nil, candidates[:1]).ReadCSV(strings.NewReader(",(x; y)\n"))
			So(errors.Is(err, model.ErrBadCoordinate), ShouldBeTrue)
		})
	})
}

func TestRestore(t *testing.T) {
	setup()

	Convey("Given a matrix built and exported earlier", t, func() {
		incidents := []model.Incident{incident(50.85, 4.35), incident(50.9, 4.4)}
		candidates := []model.CandidateSite{candidate(50.851, 4.351), candidate(50.86, 4.4), candidate(50.9, 4.401)}
		resolver := &stubResolver{meters: func(_, dest model.Coordinate) (float64, bool, error) {
			if dest.Lon == 4.4 {
				return 0, false, nil
			}
			return costmatrix.DefaultSentinel, true, nil
		}}
		built, err := costmatrix.NewBuilder(resolver, &stubConfirmer{answer: true}).Build(context.Background(), incidents, candidates, 2)
		So(err, ShouldBeNil)
		So(built.Resolved, ShouldEqual, 2)
		So(built.Unknown, ShouldEqual, 2)
		var buf bytes.Buffer
		So(built.Matrix.WriteCSV(&buf, costmatrix.DefaultSentinel), ShouldBeNil)
		calls := len(resolver.calls)
		refuse := &stubConfirmer{answer: false}

		Convey("When restoring it", func() {
			res, err := costmatrix.NewBuilder(resolver, refuse).Restore(context.Background(), incidents, candidates, 2, &buf)

			Convey("Then no request or confirmation is needed and every cell matches", func() {
				So(err, ShouldBeNil)
				So(len(resolver.calls), ShouldEqual, calls)
				So(refuse.prompts, ShouldBeEmpty)
				So(res.Restored, ShouldBeTrue)
				So(res.Requests, ShouldEqual, 0)
				So(res.Resolved, ShouldEqual, built.Resolved)
				So(res.Unknown, ShouldEqual, built.Unknown)
				for i := range incidents {
					for j := range candidates {
						So(res.Matrix.At(i, j), ShouldResemble, built.Matrix.At(i, j))
					}
				}
			})
		})

		Convey("When restoring with a different k", func() {
			res, err := costmatrix.NewBuilder(resolver, refuse).Restore(context.Background(), incidents, candidates, 1, &buf)

			Convey("Then only the cells active under that k are read", func() {
				So(err, ShouldBeNil)
				So(res.Resolved, ShouldEqual, 2)
			})
		})
	})
}
