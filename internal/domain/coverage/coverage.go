// Package coverage measures how many incidents lie within reach of an AED.
package coverage

import (
	"math"

	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/internal/domain/model"
)

// DefaultRadius is the coverage radius in meters.
const DefaultRadius = 150

// Report compares coverage before and after placing new AEDs. Percentages
// are in [0, 100].
type Report struct {
	City string
	Old  float64
	New  float64
}

// Assignment links an incident to its nearest AED.
type Assignment struct {
	Incident model.Coordinate
	AED      model.Coordinate
	// Meters is rounded to whole meters.
	Meters int
	Found  bool
}

// Evaluator computes coverage reports with a fixed radius.
type Evaluator struct {
	radius float64
}

// NewEvaluator creates an Evaluator with configuration options.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{radius: DefaultRadius}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Radius returns the configured radius.
func (e *Evaluator) Radius() float64 { return e.radius }

// Evaluate reports old coverage by existing AEDs and new coverage by
// existing AEDs plus added sites.
func (e *Evaluator) Evaluate(city string, incidents []model.Incident, existing, added []model.Coordinate) Report {
	all := make([]model.Coordinate, 0, len(existing)+len(added))
	all = append(all, existing...)
	all = append(all, added...)
	points := model.Coordinates(incidents)
	return Report{
		City: city,
		Old:  Percent(points, existing, e.radius),
		New:  Percent(points, all, e.radius),
	}
}

// Percent is the share of incidents with an AED within radius meters
// (haversine). No incidents yields 0.
func Percent(incidents, aeds []model.Coordinate, radius float64) float64 {
	if len(incidents) == 0 {
		return 0
	}
	covered := 0
	for _, inc := range incidents {
		for _, aed := range aeds {
			if geo.HaversineMeters(inc, aed) <= radius {
				covered++
				break
			}
		}
	}
	return 100 * float64(covered) / float64(len(incidents))
}

// NearestAssignments pairs every incident with its nearest AED. Found is
// false when there are no AEDs.
func NearestAssignments(incidents, aeds []model.Coordinate) []Assignment {
	out := make([]Assignment, len(incidents))
	for i, inc := range incidents {
		out[i].Incident = inc
		best := math.Inf(1)
		for _, aed := range aeds {
			if d := geo.HaversineMeters(inc, aed); d < best {
				best = d
				out[i].AED = aed
				out[i].Found = true
			}
		}
		if out[i].Found {
			out[i].Meters = int(math.Round(best))
		}
	}
	return out
}

// Round2 rounds a percentage to two decimals for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
