package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// header maps lower-cased column names to their index.
type header map[string]int

func readHeader(cr *csv.Reader) (header, error) {
	names, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(names))
	for i, n := range names {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(n, "\ufeff")))] = i
	}
	return h, nil
}

// index returns the first column present among names.
func (h header) index(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func (h header) require(names ...string) (int, error) {
	i, ok := h.index(names...)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(names, "|"))
	}
	return i, nil
}

// eachRecord calls fn for every data row with its 1-based line number.
func eachRecord(r io.Reader, fn func(h header, rec []string, line int) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr)
	if err != nil {
		return err
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(h, rec, line); err != nil {
			return err
		}
	}
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseFloat(rec []string, i, line int) (float64, error) {
	v, err := strconv.ParseFloat(field(rec, i), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %v", ErrBadValue, line, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
