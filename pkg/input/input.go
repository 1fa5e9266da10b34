// Package input loads repository metadata and benchmark results from files.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Flagged is an input row that could not be used. The run continues and the
// row is listed in the report.
type Flagged struct {
	Source     string `json:"source" yaml:"source"`
	Line       int    `json:"line" yaml:"line"`
	Identifier string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Reason     string `json:"reason" yaml:"reason"`
}

func (f Flagged) String() string {
	id := f.Identifier
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("%s:%d %s: %s", f.Source, f.Line, id, f.Reason)
}

var errNoHeader = errors.New("input has no header row")

// table is a CSV file indexed by lower-cased header names.
type table struct {
	cols map[string]int
	r    *csv.Reader
}

func newTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoHeader
		}
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	t := &table{cols: make(map[string]int, len(header)), r: cr}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := t.cols[h]; !ok {
			t.cols[h] = i
		}
	}
	return t, nil
}

// has reports whether any of names is a column.
func (t *table) has(names ...string) bool {
	for _, n := range names {
		if _, ok := t.cols[n]; ok {
			return true
		}
	}
	return false
}

// get returns the first non-empty value among the named columns.
func (t *table) get(rec []string, names ...string) string {
	for _, n := range names {
		i, ok := t.cols[n]
		if !ok || i >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[i]); v != "" {
			return v
		}
	}
	return ""
}
