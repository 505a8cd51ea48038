// Package repository holds the read-only dashboard data of every city.
package repository

import (
	"context"

	"github.com/okian/aedplacement/internal/domain/model"
)

// City names a city as stored in the output files (Key) and as shown to
// users (Name).
type City struct {
	Key  string
	Name string
}

// Store provides read access to the dashboard state.
type Store interface {
	// Cities lists cities in the order they first appear in the data.
	Cities(ctx context.Context) []City

	// Points returns the scatter rows of a city. city may be its key or its
	// display name, in any case. Returns ErrCityNotFound for unknown cities.
	Points(ctx context.Context, city string) ([]model.AppRow, error)

	// Heatmap returns the density samples of a city.
	Heatmap(ctx context.Context, city string) ([]model.DensityRow, error)

	// OldAEDs returns the positions of the existing AEDs of a city.
	OldAEDs(ctx context.Context, city string) ([]model.Coordinate, error)

	// Coverage returns the coverage percentages of a city.
	Coverage(ctx context.Context, city string) (model.CoverageRow, error)

	// IncidentAt returns the incident row whose coordinate has the same
	// canonical key as c. Returns ErrNoMatchingIncident otherwise.
	IncidentAt(ctx context.Context, c model.Coordinate) (model.AppRow, error)
}
