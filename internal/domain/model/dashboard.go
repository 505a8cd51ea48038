package model

// PointType classifies a dashboard scatter point.
type PointType string

// Point types as written to app_data.csv.
const (
	TypeOldAED   PointType = "old_aed"
	TypeIncident PointType = "card"
	TypeNewAED   PointType = "new_aed"
)

// Label returns the legend label of t.
func (t PointType) Label() string {
	switch t {
	case TypeOldAED:
		return "Old AED"
	case TypeIncident:
		return "Cardiac arrest"
	case TypeNewAED:
		return "New AED"
	default:
		return string(t)
	}
}

// AppRow is one scatter point of a city. Incident rows carry their nearest
// AED and the distance to it in whole meters.
type AppRow struct {
	City     string
	Type     PointType
	Point    Coordinate
	AED      Coordinate
	Distance int
	HasAED   bool
}

// DensityRow is one heatmap sample.
type DensityRow struct {
	City    string
	Point   Coordinate
	Density float64
}

// CoverageRow holds the coverage percentages of a city.
type CoverageRow struct {
	City string
	Old  float64
	New  float64
}
