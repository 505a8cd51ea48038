package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/okian/aedplacement/internal/adapters/mq/worker"
	"github.com/okian/aedplacement/internal/adapters/storage"
	"github.com/okian/aedplacement/internal/config"
	"github.com/okian/aedplacement/internal/domain/costmatrix"
	"github.com/okian/aedplacement/internal/domain/coverage"
	"github.com/okian/aedplacement/internal/domain/dedupe"
	"github.com/okian/aedplacement/internal/domain/density"
	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/internal/domain/mclp"
	"github.com/okian/aedplacement/internal/domain/model"
	"github.com/okian/aedplacement/internal/domain/sampler"
	"github.com/okian/aedplacement/pkg/logger"
	"github.com/okian/aedplacement/pkg/metrics"
)

// Inputs are the cleaned pipeline inputs shared by every city.
type Inputs struct {
	Incidents []model.Incident
	AEDs      []model.AED
	Cities    []geo.City
	Streets   []orb.LineString
}

// CityOutput is everything one city contributes to the run. A skipped city
// carries only its summary.
type CityOutput struct {
	Summary    storage.CityRun
	Matrix     *costmatrix.Matrix
	Candidates []model.CandidateSite
	Selected   []bool
	App        []model.AppRow
	Density    []model.DensityRow
	Coverage   model.CoverageRow
}

// Pipeline samples candidates, resolves cost matrices, places AEDs and
// writes the files the dashboard reads.
type Pipeline struct {
	cfg       *config.Config
	builder   *costmatrix.Builder
	solver    *mclp.Solver
	evaluator *coverage.Evaluator
	deduper   *dedupe.Deduper
	bounds    geo.Bounds
	runID     string
	now       func() time.Time
	logger    logger.Logger
}

// NewPipeline creates a Pipeline. resolver answers walking distances and
// confirmer approves each city's request volume.
func NewPipeline(cfg *config.Config, resolver costmatrix.CostResolver, confirmer costmatrix.Confirmer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		bounds: geo.Belgium,
		now:    time.Now,
		logger: logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.builder = costmatrix.NewBuilder(resolver, confirmer,
		costmatrix.WithDispatcher(worker.NewDispatcher(cfg.ResolveWorkers)),
	)
	p.solver = mclp.NewSolver(
		mclp.WithMaxNodes(cfg.SolverMaxNodes),
		mclp.WithTimeout(cfg.SolverTimeout()),
	)
	p.evaluator = coverage.NewEvaluator(coverage.WithRadius(cfg.CoverageRadius))
	p.deduper = dedupe.New(dedupe.WithMinDistance(cfg.MinDistance))
	return p
}

// LoadInputs reads and cleans the input files under the data directory.
func (p *Pipeline) LoadInputs(ctx context.Context) (*Inputs, error) {
	dir := p.cfg.DataDir

	incidents, err := readFile(filepath.Join(dir, storage.IncidentsFile), storage.ReadIncidents)
	if err != nil {
		return nil, err
	}
	aeds, err := readFile(filepath.Join(dir, storage.AEDsFile), storage.ReadAEDs)
	if err != nil {
		return nil, err
	}
	citiesData, err := os.ReadFile(filepath.Join(dir, storage.CitiesFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputs, err)
	}
	cities, err := storage.ReadCities(citiesData, p.cfg.Cities)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputs, err)
	}
	streetsData, err := os.ReadFile(filepath.Join(dir, storage.StreetsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputs, err)
	}
	streets, err := storage.ReadStreets(streetsData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputs, err)
	}

	in := &Inputs{
		Incidents: storage.CleanIncidents(incidents, p.cfg.CardiacCodes, p.bounds),
		AEDs:      storage.CleanAEDs(aeds, p.bounds),
		Cities:    cities,
		Streets:   streets,
	}
	p.logger.Info(ctx, "inputs loaded",
		logger.Int("incidents", len(incidents)),
		logger.Int("cardiacIncidents", len(in.Incidents)),
		logger.Int("aeds", len(in.AEDs)),
		logger.Int("cities", len(in.Cities)),
		logger.Int("streets", len(in.Streets)),
	)
	return in, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputs, err)
	}
	defer f.Close() //nolint:errcheck // read only
	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInputs, path, err)
	}
	return out, nil
}

// Run processes every configured city in order and writes the outputs and
// the manifest. Any city error aborts the run before the dashboard files are
// written.
func (p *Pipeline) Run(ctx context.Context) (*storage.Manifest, error) {
	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	manifest := &storage.Manifest{
		RunID:     runID,
		StartedAt: p.now().UTC(),
		Parameters: storage.Parameters{
			CardiacCodes:      p.cfg.CardiacCodes,
			SamplesPerStreet:  p.cfg.SamplesPerStreet,
			MinDistance:       p.cfg.MinDistance,
			ClosestCandidates: p.cfg.ClosestCandidates,
			CoverageRadius:    p.cfg.CoverageRadius,
			Budget:            p.cfg.Budget,
			SentinelCost:      p.cfg.SentinelCost,
		},
	}
	p.logger.Info(ctx, "pipeline started", logger.String("runID", runID))

	in, err := p.LoadInputs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		appRows     []model.AppRow
		densityRows []model.DensityRow
		covRows     []model.CoverageRow
	)
	for _, city := range in.Cities {
		out, err := p.RunCity(ctx, in, city)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCity, city.Name, err)
		}
		manifest.Cities = append(manifest.Cities, out.Summary)
		if out.Summary.Skipped {
			continue
		}
		appRows = append(appRows, out.App...)
		densityRows = append(densityRows, out.Density...)
		covRows = append(covRows, out.Coverage)
	}

	if err := p.writeOutputs(appRows, densityRows, covRows); err != nil {
		return nil, err
	}
	manifest.FinishedAt = p.now().UTC()
	if err := storage.WriteFile(p.cfg.OutputDir, storage.ManifestFile, func(w io.Writer) error {
		return storage.WriteManifest(w, manifest)
	}); err != nil {
		return nil, err
	}
	p.logger.Info(ctx, "pipeline finished",
		logger.String("runID", runID),
		logger.Int("cities", len(manifest.Cities)),
		logger.Duration("duration", manifest.FinishedAt.Sub(manifest.StartedAt)),
	)
	return manifest, nil
}

func (p *Pipeline) writeOutputs(app []model.AppRow, dens []model.DensityRow, cov []model.CoverageRow) error {
	dir := p.cfg.OutputDir
	if err := storage.WriteFile(dir, storage.AppDataFile, func(w io.Writer) error {
		return storage.WriteAppData(w, app)
	}); err != nil {
		return err
	}
	if err := storage.WriteFile(dir, storage.DensityFile, func(w io.Writer) error {
		return storage.WriteDensity(w, dens)
	}); err != nil {
		return err
	}
	return storage.WriteFile(dir, storage.CoverageFile, func(w io.Writer) error {
		return storage.WriteCoverage(w, cov)
	})
}

// RunCity optimizes one city. The resolved cost matrix is written as soon as
// it is built so a later solver failure does not waste the paid requests.
// When the operator declines, the city stops before optimizing.
func (p *Pipeline) RunCity(ctx context.Context, in *Inputs, city geo.City) (*CityOutput, error) {
	log := p.logger
	cityField := logger.String("city", city.Name)

	incidents := geo.FilterWithin(in.Incidents, city)
	aeds := geo.FilterWithin(in.AEDs, city)
	streets := geo.StreetsWithin(in.Streets, city)
	sampled := sampler.SampleStreets(streets, p.cfg.SamplesPerStreet)
	candidates := p.deduper.Apply(sampled)
	metrics.UpdateCandidates(city.Name, len(sampled), len(candidates))

	out := &CityOutput{
		Summary: storage.CityRun{
			Name:       city.Name,
			Incidents:  len(incidents),
			AEDs:       len(aeds),
			Streets:    len(streets),
			Sampled:    len(sampled),
			Candidates: len(candidates),
		},
		Candidates: candidates,
	}
	log.Info(ctx, "candidates sampled",
		cityField,
		logger.Int("incidents", len(incidents)),
		logger.Int("aeds", len(aeds)),
		logger.Int("streets", len(streets)),
		logger.Int("sampled", len(sampled)),
		logger.Int("kept", len(candidates)),
	)

	res, err := p.costMatrix(ctx, city.Name, incidents, candidates)
	if err != nil {
		return nil, err
	}
	out.Summary.Requests = res.Requests
	out.Summary.Resolved = res.Resolved
	out.Summary.Unknown = res.Unknown
	out.Summary.Reused = res.Restored
	if res.Skipped {
		out.Summary.Skipped = true
		log.Warn(ctx, "city skipped, no outputs written", cityField)
		return out, nil
	}
	out.Matrix = res.Matrix
	if !res.Restored {
		if err := storage.WriteFile(p.cfg.OutputDir, storage.CostMatrixFile(city.Name), func(w io.Writer) error {
			return res.Matrix.WriteCSV(w, p.cfg.SentinelCost)
		}); err != nil {
			return nil, err
		}
	}

	problem, err := mclp.NewProblem(res.Matrix, p.cfg.CoverageRadius, p.cfg.Budget, nil)
	if err != nil {
		return nil, err
	}
	sol, err := p.solver.Solve(ctx, problem)
	if err != nil {
		return nil, err
	}
	out.Selected = sol.Selected
	metrics.UpdateSolverObjective(city.Name, sol.Objective)
	if err := storage.WriteFile(p.cfg.OutputDir, storage.CandidatesFile(city.Name), func(w io.Writer) error {
		return storage.WriteCandidates(w, candidates, sol.Selected)
	}); err != nil {
		return nil, err
	}

	existing := model.Coordinates(aeds)
	added := make([]model.Coordinate, 0, p.cfg.Budget)
	for _, j := range sol.SelectedIndices() {
		added = append(added, candidates[j].Coordinate)
	}
	report := p.evaluator.Evaluate(city.Name, incidents, existing, added)
	metrics.UpdateCoverage(city.Name, "old", report.Old)
	metrics.UpdateCoverage(city.Name, "new", report.New)

	out.App = appRows(city.Name, incidents, existing, added)
	out.Density = densityRows(city.Name, incidents)
	out.Coverage = model.CoverageRow{City: city.Name, Old: report.Old, New: report.New}
	out.Summary.Selected = len(added)
	out.Summary.Objective = sol.Objective
	out.Summary.OldCoverage = coverage.Round2(report.Old)
	out.Summary.NewCoverage = coverage.Round2(report.New)

	log.Info(ctx, "city optimized",
		cityField,
		logger.Int("selected", len(added)),
		logger.Float64("objective", sol.Objective),
		logger.Float64("oldCoverage", out.Summary.OldCoverage),
		logger.Float64("newCoverage", out.Summary.NewCoverage),
	)
	return out, nil
}

// costMatrix restores the city's saved matrix when reuse is enabled and one
// exists, and resolves a new one otherwise.
func (p *Pipeline) costMatrix(ctx context.Context, city string, incidents []model.Incident, candidates []model.CandidateSite) (costmatrix.Result, error) {
	if p.cfg.ReuseCostMatrix {
		f, err := os.Open(filepath.Join(p.cfg.OutputDir, storage.CostMatrixFile(city)))
		switch {
		case err == nil:
			defer f.Close() //nolint:errcheck // read only
			return p.builder.Restore(ctx, incidents, candidates, p.cfg.ClosestCandidates, f)
		case errors.Is(err, fs.ErrNotExist):
			p.logger.Info(ctx, "no saved cost matrix, resolving", logger.String("city", city))
		default:
			return costmatrix.Result{}, fmt.Errorf("%w: %w", ErrInputs, err)
		}
	}
	return p.builder.Build(ctx, incidents, candidates, p.cfg.ClosestCandidates)
}

// appRows lists old AEDs, new AEDs and incidents. Each incident carries its
// nearest AED after placement.
func appRows(city string, incidents []model.Incident, existing, added []model.Coordinate) []model.AppRow {
	rows := make([]model.AppRow, 0, len(existing)+len(added)+len(incidents))
	for _, c := range existing {
		rows = append(rows, model.AppRow{City: city, Type: model.TypeOldAED, Point: c})
	}
	for _, c := range added {
		rows = append(rows, model.AppRow{City: city, Type: model.TypeNewAED, Point: c})
	}
	all := make([]model.Coordinate, 0, len(existing)+len(added))
	all = append(all, existing...)
	all = append(all, added...)
	for _, a := range coverage.NearestAssignments(model.Coordinates(incidents), all) {
		rows = append(rows, model.AppRow{
			City:     city,
			Type:     model.TypeIncident,
			Point:    a.Incident,
			AED:      a.AED,
			Distance: a.Meters,
			HasAED:   a.Found,
		})
	}
	return rows
}

func densityRows(city string, incidents []model.Incident) []model.DensityRow {
	points := model.Coordinates(incidents)
	values := density.Estimate(points)
	rows := make([]model.DensityRow, len(points))
	for i, pt := range points {
		rows[i] = model.DensityRow{City: city, Point: pt, Density: values[i]}
	}
	return rows
}
