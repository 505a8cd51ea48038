package storage

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest records the parameters and per-city results of a pipeline run.
type Manifest struct {
	RunID      string     `yaml:"run_id"`
	StartedAt  time.Time  `yaml:"started_at"`
	FinishedAt time.Time  `yaml:"finished_at"`
	Parameters Parameters `yaml:"parameters"`
	Cities     []CityRun  `yaml:"cities"`
}

// Parameters are the knobs a run was made with.
type Parameters struct {
	CardiacCodes      []string `yaml:"cardiac_codes"`
	SamplesPerStreet  int      `yaml:"samples_per_street"`
	MinDistance       float64  `yaml:"min_distance"`
	ClosestCandidates int      `yaml:"closest_candidates"`
	CoverageRadius    float64  `yaml:"coverage_radius"`
	Budget            int      `yaml:"budget"`
	SentinelCost      float64  `yaml:"sentinel_cost"`
}

// CityRun summarizes one city.
type CityRun struct {
	Name        string  `yaml:"name"`
	Incidents   int     `yaml:"incidents"`
	AEDs        int     `yaml:"aeds"`
	Streets     int     `yaml:"streets"`
	Sampled     int     `yaml:"sampled"`
	Candidates  int     `yaml:"candidates"`
	Requests    int     `yaml:"requests"`
	Resolved    int     `yaml:"resolved"`
	Unknown     int     `yaml:"unknown"`
	Skipped     bool    `yaml:"skipped"`
	Reused      bool    `yaml:"reused"`
	Selected    int     `yaml:"selected"`
	Objective   float64 `yaml:"objective"`
	OldCoverage float64 `yaml:"old_coverage"`
	NewCoverage float64 `yaml:"new_coverage"`
}

// WriteManifest encodes m as YAML.
func WriteManifest(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}

// ReadManifest decodes a manifest written by WriteManifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
