// Package costmatrix builds the sparse incident-to-candidate walking
// distance matrix that feeds the coverage optimizer.
package costmatrix

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/aedplacement/internal/domain/geo"
	"github.com/okian/aedplacement/internal/domain/model"
)

// DefaultSentinel is the export value of cells that were never requested.
const DefaultSentinel = 1000

// State tags a Cost.
type State uint8

const (
	// Excluded cells were not among the nearest candidates of their row.
	Excluded State = iota
	// Unknown cells are active but have no route.
	Unknown
	// Resolved cells hold a walking distance in meters.
	Resolved
)

func (s State) String() string {
	switch s {
	case Excluded:
		return "excluded"
	case Unknown:
		return "unknown"
	case Resolved:
		return "resolved"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Cost is one matrix cell.
type Cost struct {
	state  State
	meters float64
}

// ExcludedCost returns an inactive cell.
func ExcludedCost() Cost { return Cost{state: Excluded} }

// UnknownCost returns an active cell without a route.
func UnknownCost() Cost { return Cost{state: Unknown} }

// ResolvedCost returns a cell with a known walking distance.
func ResolvedCost(meters float64) Cost { return Cost{state: Resolved, meters: meters} }

// State returns the tag of c.
func (c Cost) State() State { return c.state }

// Active reports whether c was selected for resolution.
func (c Cost) Active() bool { return c.state != Excluded }

// Meters returns the distance and true only for resolved cells.
func (c Cost) Meters() (float64, bool) {
	if c.state != Resolved {
		return 0, false
	}
	return c.meters, true
}

// Value renders c for export. Unknown cells have no numeric value.
func (c Cost) Value(sentinel float64) (float64, bool) {
	switch c.state {
	case Excluded:
		return sentinel, true
	case Resolved:
		return c.meters, true
	default:
		return 0, false
	}
}

// Matrix holds one cost per (incident, candidate) pair.
type Matrix struct {
	incidents  []model.Incident
	candidates []model.CandidateSite
	cells      []Cost
}

// NewMatrix returns a matrix with every cell excluded.
func NewMatrix(incidents []model.Incident, candidates []model.CandidateSite) *Matrix {
	return &Matrix{
		incidents:  incidents,
		candidates: candidates,
		cells:      make([]Cost, len(incidents)*len(candidates)),
	}
}

// Rows returns the number of incidents.
func (m *Matrix) Rows() int { return len(m.incidents) }

// Cols returns the number of candidates.
func (m *Matrix) Cols() int { return len(m.candidates) }

// Incidents returns the row order.
func (m *Matrix) Incidents() []model.Incident { return m.incidents }

// Candidates returns the column order.
func (m *Matrix) Candidates() []model.CandidateSite { return m.candidates }

// At returns cell (i, j).
func (m *Matrix) At(i, j int) Cost { return m.cells[i*len(m.candidates)+j] }

// Set stores cell (i, j).
func (m *Matrix) Set(i, j int, c Cost) { m.cells[i*len(m.candidates)+j] = c }

// ActiveCols returns the active column indices of row i in ascending order.
func (m *Matrix) ActiveCols(i int) []int {
	var cols []int
	for j := range m.candidates {
		if m.At(i, j).Active() {
			cols = append(cols, j)
		}
	}
	return cols
}

// Count returns the number of cells in state s.
func (m *Matrix) Count(s State) int {
	n := 0
	for _, c := range m.cells {
		if c.state == s {
			n++
		}
	}
	return n
}

// Fill overwrites every cell with c.
func (m *Matrix) Fill(c Cost) {
	for i := range m.cells {
		m.cells[i] = c
	}
}

// Jobs lists the active cells in row-major order.
func (m *Matrix) Jobs() []model.CellJob {
	jobs := make([]model.CellJob, 0, m.Rows())
	for i, inc := range m.incidents {
		for _, j := range m.ActiveCols(i) {
			jobs = append(jobs, model.CellJob{Row: i, Col: j, Origin: inc.Coordinate, Dest: m.candidates[j].Coordinate})
		}
	}
	return jobs
}

// Activate marks, for every incident, the min(k, len(candidates)) candidates
// with the smallest planar distance. Equal distances go to the lower
// candidate index. Active cells start Unknown.
func Activate(incidents []model.Incident, candidates []model.CandidateSite, k int) (*Matrix, error) {
	if k <= 0 {
		return nil, fmt.Errorf("activate: %w: %d", ErrInvalidK, k)
	}
	m := NewMatrix(incidents, candidates)
	n := min(k, len(candidates))
	if n == 0 {
		return m, nil
	}

	order := make([]int, len(candidates))
	dist := make([]float64, len(candidates))
	for i, inc := range incidents {
		for j, cand := range candidates {
			order[j] = j
			dist[j] = geo.PlanarDistance(inc.Coordinate, cand.Coordinate)
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })
		for _, j := range order[:n] {
			m.Set(i, j, UnknownCost())
		}
	}
	return m, nil
}

// WriteCSV exports m with "lat, lon" row labels and "(lat, lon)" column
// labels. Excluded cells are written as sentinel and unknown cells as an
// empty field.
func (m *Matrix) WriteCSV(w io.Writer, sentinel float64) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, m.Cols()+1)
	header = append(header, "")
	for _, c := range m.candidates {
		header = append(header, c.Tuple())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, m.Cols()+1)
	for i, inc := range m.incidents {
		record[0] = inc.Label()
		for j := range m.candidates {
			if v, ok := m.At(i, j).Value(sentinel); ok {
				record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				record[j+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV fills the active cells of m from an export of the same incidents
// and candidates. Which cells are excluded follows from m's activation and
// never from the exported values, so a resolved distance equal to the
// sentinel reads back as resolved. An empty active field is unknown; the
// fields of excluded cells are ignored.
func (m *Matrix) ReadCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("read matrix: %w", err)
	}
	if len(records) != m.Rows()+1 {
		return fmt.Errorf("read matrix: %w: %d rows for %d incidents", ErrDimension, len(records)-1, m.Rows())
	}
	if len(records[0]) != m.Cols()+1 {
		return fmt.Errorf("read matrix: %w: %d columns for %d candidates", ErrDimension, len(records[0])-1, m.Cols())
	}

	for j, label := range records[0][1:] {
		if err := sameLabel(label, m.candidates[j].Coordinate); err != nil {
			return fmt.Errorf("read matrix column %d: %w", j, err)
		}
	}
	for i, rec := range records[1:] {
		if err := sameLabel(rec[0], m.incidents[i].Coordinate); err != nil {
			return fmt.Errorf("read matrix row %d: %w", i, err)
		}
		for _, j := range m.ActiveCols(i) {
			field := strings.TrimSpace(rec[j+1])
			if field == "" {
				m.Set(i, j, UnknownCost())
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return fmt.Errorf("read matrix cell (%d,%d): %w", i, j, err)
			}
			m.Set(i, j, ResolvedCost(v))
		}
	}
	return nil
}

func sameLabel(label string, want model.Coordinate) error {
	got, err := model.ParseTuple(label)
	if err != nil {
		return err
	}
	if got.Key() != want.Key() {
		return fmt.Errorf("%w: %s is not %s", ErrStaleMatrix, label, want.Tuple())
	}
	return nil
}
