package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/aedplacement/internal/domain/model"
)

// Output file names under the output directory.
const (
	AppDataFile  = "app_data.csv"
	DensityFile  = "cards_with_density.csv"
	CoverageFile = "coverage.csv"
	ManifestFile = "manifest.yaml"
)

// CostMatrixFile is the per-city cost matrix export.
func CostMatrixFile(city string) string { return "cost_matrix_" + city + ".csv" }

// CandidatesFile is the per-city candidate export.
func CandidatesFile(city string) string { return "candidates_" + city + ".csv" }

// WriteFile writes name under dir through a temporary file so readers never
// see a partial file.
func WriteFile(dir, name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func writeAll(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteAppData writes scatter rows as city,type,lat,lon,aed_lat,aed_lon,distance.
func WriteAppData(w io.Writer, rows []model.AppRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{"city", "type", "lat", "lon", "aed_lat", "aed_lon", "distance"})
	for _, r := range rows {
		rec := []string{r.City, string(r.Type), formatFloat(r.Point.Lat), formatFloat(r.Point.Lon), "", "", ""}
		if r.HasAED {
			rec[4] = formatFloat(r.AED.Lat)
			rec[5] = formatFloat(r.AED.Lon)
			rec[6] = strconv.Itoa(r.Distance)
		}
		records = append(records, rec)
	}
	return writeAll(w, records)
}

// WriteDensity writes heatmap rows as city,lat,lon,density.
func WriteDensity(w io.Writer, rows []model.DensityRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{"city", "lat", "lon", "density"})
	for _, r := range rows {
		records = append(records, []string{r.City, formatFloat(r.Point.Lat), formatFloat(r.Point.Lon), formatFloat(r.Density)})
	}
	return writeAll(w, records)
}

// WriteCoverage writes city,old_coverage,new_coverage.
func WriteCoverage(w io.Writer, rows []model.CoverageRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{"city", "old_coverage", "new_coverage"})
	for _, r := range rows {
		records = append(records, []string{r.City, formatFloat(r.Old), formatFloat(r.New)})
	}
	return writeAll(w, records)
}

// WriteCandidates writes lat,lon,selected for every candidate site.
func WriteCandidates(w io.Writer, sites []model.CandidateSite, selected []bool) error {
	records := make([][]string, 0, len(sites)+1)
	records = append(records, []string{"lat", "lon", "selected"})
	for j, s := range sites {
		sel := j < len(selected) && selected[j]
		records = append(records, []string{formatFloat(s.Lat), formatFloat(s.Lon), strconv.FormatBool(sel)})
	}
	return writeAll(w, records)
}

// ReadAppData parses a file written by WriteAppData.
func ReadAppData(r io.Reader) ([]model.AppRow, error) {
	var out []model.AppRow
	err := eachRecord(r, func(h header, rec []string, line int) error {
		idx, err := columns(h, "city", "type", "lat", "lon")
		if err != nil {
			return err
		}
		row := model.AppRow{City: field(rec, idx[0]), Type: model.PointType(field(rec, idx[1]))}
		if row.Point.Lat, err = parseFloat(rec, idx[2], line); err != nil {
			return err
		}
		if row.Point.Lon, err = parseFloat(rec, idx[3], line); err != nil {
			return err
		}
		aedLat, okLat := h.index("aed_lat")
		aedLon, okLon := h.index("aed_lon")
		dist, okDist := h.index("distance")
		if okLat && okLon && okDist && field(rec, aedLat) != "" {
			if row.AED.Lat, err = parseFloat(rec, aedLat, line); err != nil {
				return err
			}
			if row.AED.Lon, err = parseFloat(rec, aedLon, line); err != nil {
				return err
			}
			d, err := parseFloat(rec, dist, line)
			if err != nil {
				return err
			}
			row.Distance = int(d)
			row.HasAED = true
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read app data: %w", err)
	}
	return out, nil
}

// ReadDensity parses a file written by WriteDensity.
func ReadDensity(r io.Reader) ([]model.DensityRow, error) {
	var out []model.DensityRow
	err := eachRecord(r, func(h header, rec []string, line int) error {
		idx, err := columns(h, "city", "lat", "lon", "density")
		if err != nil {
			return err
		}
		row := model.DensityRow{City: field(rec, idx[0])}
		if row.Point.Lat, err = parseFloat(rec, idx[1], line); err != nil {
			return err
		}
		if row.Point.Lon, err = parseFloat(rec, idx[2], line); err != nil {
			return err
		}
		if row.Density, err = parseFloat(rec, idx[3], line); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read density: %w", err)
	}
	return out, nil
}

// ReadCoverage parses a file written by WriteCoverage.
func ReadCoverage(r io.Reader) ([]model.CoverageRow, error) {
	var out []model.CoverageRow
	err := eachRecord(r, func(h header, rec []string, line int) error {
		idx, err := columns(h, "city", "old_coverage", "new_coverage")
		if err != nil {
			return err
		}
		row := model.CoverageRow{City: field(rec, idx[0])}
		if row.Old, err = parseFloat(rec, idx[1], line); err != nil {
			return err
		}
		if row.New, err = parseFloat(rec, idx[2], line); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read coverage: %w", err)
	}
	return out, nil
}

func columns(h header, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j, err := h.require(n)
		if err != nil {
			return nil, err
		}
		idx[i] = j
	}
	return idx, nil
}
