package repository

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/pkg/logger"
)

// DefaultDisplayNames restores the accent dropped from the file names.
var DefaultDisplayNames = map[string]string{"Liege": "Liège"}

// Snapshot is an immutable view of every city. Readers never lock; Load
// swaps in a new snapshot.
type Snapshot struct {
	Cities    []City
	byName    map[string]*cityData
	incidents map[model.CoordKey]model.AppRow
}

type cityData struct {
	points      []model.AppRow
	density     []model.DensityRow
	oldAEDs     []model.Coordinate
	coverage    model.CoverageRow
	hasCoverage bool
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	displayNames map[string]string
	snapshot     atomic.Pointer[Snapshot]
	logger       logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		displayNames: DefaultDisplayNames,
		logger:       logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&Snapshot{byName: map[string]*cityData{}, incidents: map[model.CoordKey]model.AppRow{}})
	return s
}

// Load replaces the store content. Cities come from app rows first, then
// from coverage and density rows.
func (s *MemoryStore) Load(ctx context.Context, app []model.AppRow, density []model.DensityRow, cov []model.CoverageRow) {
	start := time.Now()
	snap := &Snapshot{
		byName:    make(map[string]*cityData),
		incidents: make(map[model.CoordKey]model.AppRow),
	}
	get := func(key string) *cityData {
		if d, ok := snap.byName[strings.ToLower(key)]; ok {
			return d
		}
		c := City{Key: key, Name: s.display(key)}
		d := &cityData{}
		snap.Cities = append(snap.Cities, c)
		snap.byName[strings.ToLower(c.Key)] = d
		snap.byName[strings.ToLower(c.Name)] = d
		return d
	}

	duplicates := 0
	for _, r := range app {
		d := get(r.City)
		d.points = append(d.points, r)
		switch r.Type {
		case model.TypeOldAED:
			d.oldAEDs = append(d.oldAEDs, r.Point)
		case model.TypeIncident:
			k := r.Point.Key()
			if _, ok := snap.incidents[k]; ok {
				duplicates++
				continue
			}
			snap.incidents[k] = r
		}
	}
	for _, r := range cov {
		d := get(r.City)
		d.coverage = r
		d.hasCoverage = true
	}
	for _, r := range density {
		d := get(r.City)
		d.density = append(d.density, r)
	}

	s.snapshot.Store(snap)
	s.logger.Info(ctx, "dashboard data loaded",
		logger.Int("cities", len(snap.Cities)),
		logger.Int("points", len(app)),
		logger.Int("incidents", len(snap.incidents)),
		logger.Int("duplicate_incidents", duplicates),
		logger.Duration("duration", time.Since(start)),
	)
}

// Snapshot returns the current snapshot.
func (s *MemoryStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *MemoryStore) display(key string) string {
	if n, ok := s.displayNames[key]; ok {
		return n
	}
	return key
}

func (s *MemoryStore) city(name string) (*cityData, error) {
	d, ok := s.snapshot.Load().byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, name)
	}
	return d, nil
}

// Cities lists the loaded cities.
func (s *MemoryStore) Cities(context.Context) []City {
	return append([]City(nil), s.snapshot.Load().Cities...)
}

// Points returns the scatter rows of a city.
func (s *MemoryStore) Points(_ context.Context, city string) ([]model.AppRow, error) {
	d, err := s.city(city)
	if err != nil {
		return nil, err
	}
	return d.points, nil
}

// Heatmap returns the density samples of a city.
func (s *MemoryStore) Heatmap(_ context.Context, city string) ([]model.DensityRow, error) {
	d, err := s.city(city)
	if err != nil {
		return nil, err
	}
	return d.density, nil
}

// OldAEDs returns the existing AEDs of a city.
func (s *MemoryStore) OldAEDs(_ context.Context, city string) ([]model.Coordinate, error) {
	d, err := s.city(city)
	if err != nil {
		return nil, err
	}
	return d.oldAEDs, nil
}

// Coverage returns the coverage of a city. Cities without a coverage row
// report ErrCityNotFound.
func (s *MemoryStore) Coverage(_ context.Context, city string) (model.CoverageRow, error) {
	d, err := s.city(city)
	if err != nil {
		return model.CoverageRow{}, err
	}
	if !d.hasCoverage {
		return model.CoverageRow{}, fmt.Errorf("%w: no coverage for %s", ErrCityNotFound, city)
	}
	return d.coverage, nil
}

// IncidentAt looks an incident up by canonical coordinate key.
func (s *MemoryStore) IncidentAt(_ context.Context, c model.Coordinate) (model.AppRow, error) {
	r, ok := s.snapshot.Load().incidents[c.Key()]
	if !ok {
		return model.AppRow{}, fmt.Errorf("%w: %s", ErrNoMatchingIncident, c.Label())
	}
	return r, nil
}
