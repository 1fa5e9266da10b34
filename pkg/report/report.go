// Package report renders a ranked table and its resolution mapping.
// Renderers only format; scores are never re-derived here.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/mchmarny/scirank/pkg/score"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatProm     Format = "prom"

	DefaultTitle = "Scientific tool ranking"
	noResults    = "No results."
)

// ErrMalformedRow fails a render when any row breaks the table invariants.
var ErrMalformedRow = errors.New("malformed row")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatCSV, FormatJSON, FormatYAML, FormatProm}
}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "prom", "prometheus", "metrics":
		return FormatProm, nil
	default:
		return "", fmt.Errorf("unsupported format %q, expected one of %v", v, Formats())
	}
}

// FormatFromPath picks a format from a file extension, markdown by default.
func FormatFromPath(path string) Format {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return FormatMarkdown
	}
	f, err := ParseFormat(path[i+1:])
	if err != nil {
		return FormatMarkdown
	}
	return f
}

// Document is everything a report shows.
type Document struct {
	Title       string
	GeneratedAt time.Time
	Table       *score.RankedTable

	// Tools is every resolved tool, including those cut from Table by a
	// row limit. The mapping and skipped sections use it when set.
	Tools   []resolve.ToolRecord
	Bench   *BenchSummary
	Flagged []input.Flagged
}

// Empty reports whether the document has no ranked rows.
func (d *Document) Empty() bool {
	return d == nil || d.Table.Len() == 0
}

func (d *Document) title() string {
	if d.Title == "" {
		return DefaultTitle
	}
	return d.Title
}

func (d *Document) blend() score.Blend {
	if d.Table == nil {
		return score.DefaultBlend()
	}
	return d.Table.Blend
}

// Mapping returns the resolution of every tool ordered by identifier.
func (d *Document) Mapping() []resolve.ToolRecord {
	if d.Empty() {
		return nil
	}
	list := slices.Clone(d.Tools)
	if list == nil {
		list = make([]resolve.ToolRecord, 0, d.Table.Len())
		for _, r := range d.Table.Rows {
			list = append(list, r.Record.Tool)
		}
	}
	slices.SortFunc(list, func(a, b resolve.ToolRecord) int {
		return strings.Compare(a.Identifier, b.Identifier)
	})
	return list
}

// Skipped returns the SKIPPED tools in mapping order.
func (d *Document) Skipped() []resolve.ToolRecord {
	list := make([]resolve.ToolRecord, 0)
	for _, t := range d.Mapping() {
		if t.Resolution.Status() == resolve.StatusSkipped {
			list = append(list, t)
		}
	}
	return list
}

// Validate checks every row; the first violation wraps ErrMalformedRow.
func (d *Document) Validate() error {
	if d.Empty() {
		return nil
	}

	for _, t := range d.Tools {
		if strings.TrimSpace(t.Identifier) == "" {
			return fmt.Errorf("%w: mapping entry with empty identifier", ErrMalformedRow)
		}
		if t.Resolution.Status() == resolve.StatusSkipped {
			if reason, _ := t.Resolution.Reason(); strings.TrimSpace(reason) == "" {
				return fmt.Errorf("%w: mapping entry %q skipped without reason", ErrMalformedRow, t.Identifier)
			}
		}
	}

	for i, r := range d.Table.Rows {
		t := r.Record.Tool
		fail := func(reason string, args ...any) error {
			return fmt.Errorf("%w: row %d (%q): %s", ErrMalformedRow, i+1, t.Identifier, fmt.Sprintf(reason, args...))
		}

		if strings.TrimSpace(t.Identifier) == "" {
			return fail("empty identifier")
		}
		if !unit(r.Record.Composite) {
			return fail("composite_v2 %v outside [0, 1]", r.Record.Composite)
		}
		if r.Record.Bench != nil && !unit(*r.Record.Bench) {
			return fail("bench_score %v outside [0, 1]", *r.Record.Bench)
		}
		if !unit(r.Final) {
			return fail("final_score %v outside [0, 1]", r.Final)
		}
		if r.Rank != i+1 {
			return fail("rank %d out of sequence", r.Rank)
		}

		switch t.Resolution.Status() {
		case resolve.StatusSkipped:
			if reason, _ := t.Resolution.Reason(); strings.TrimSpace(reason) == "" {
				return fail("skipped without reason")
			}
			if r.Record.Benchmarked() {
				return fail("skipped tool has a bench_score")
			}
		case resolve.StatusUnknown:
			if r.Record.Benchmarked() {
				return fail("unresolved tool has a bench_score")
			}
		}
	}
	return nil
}

func unit(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 1
}

// Write validates d and renders it to w. Nothing is written when d is
// invalid.
func Write(w io.Writer, f Format, d *Document) error {
	if d == nil {
		d = &Document{}
	}
	if err := d.Validate(); err != nil {
		return err
	}

	switch f {
	case FormatMarkdown, "":
		return writeMarkdown(w, d)
	case FormatCSV:
		return writeCSV(w, d)
	case FormatJSON:
		return writeJSON(w, d)
	case FormatYAML:
		return writeYAML(w, d)
	case FormatProm:
		return writeProm(w, d)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}
