package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mchmarny/scirank/pkg/input"
	"gopkg.in/yaml.v3"
)

// Row is the flat view of a ranked row used by the tabular and structured
// formats.
type Row struct {
	Rank        int      `json:"rank" yaml:"rank"`
	Identifier  string   `json:"identifier" yaml:"identifier"`
	Domain      string   `json:"domain" yaml:"domain"`
	Status      string   `json:"status" yaml:"status"`
	Package     string   `json:"package,omitempty" yaml:"package,omitempty"`
	Reason      string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Composite   float64  `json:"composite_v2" yaml:"composite_v2"`
	Bench       *float64 `json:"bench_score" yaml:"bench_score"`
	Final       float64  `json:"final_score" yaml:"final_score"`
	Benchmarked bool     `json:"benchmarked" yaml:"benchmarked"`
}

// Mapped is one entry of the resolution mapping.
type Mapped struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Status     string `json:"status" yaml:"status"`
	Package    string `json:"package,omitempty" yaml:"package,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type blendView struct {
	Repo  float64 `json:"repo" yaml:"repo"`
	Bench float64 `json:"bench" yaml:"bench"`
}

type view struct {
	Title       string          `json:"title" yaml:"title"`
	GeneratedAt *time.Time      `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
	Blend       blendView       `json:"blend" yaml:"blend"`
	Message     string          `json:"message,omitempty" yaml:"message,omitempty"`
	Ranking     []Row           `json:"ranking" yaml:"ranking"`
	Mapping     []Mapped        `json:"mapping" yaml:"mapping"`
	Skipped     []Mapped        `json:"skipped" yaml:"skipped"`
	Bench       *BenchSummary   `json:"bench_summary,omitempty" yaml:"bench_summary,omitempty"`
	Flagged     []input.Flagged `json:"flagged,omitempty" yaml:"flagged,omitempty"`
}

// rows flattens the ranked table.
func rows(d *Document) []Row {
	list := make([]Row, 0, d.Table.Len())
	if d.Empty() {
		return list
	}
	for _, r := range d.Table.Rows {
		t := r.Record.Tool
		pkg, _ := t.Resolution.Package()
		reason, _ := t.Resolution.Reason()
		list = append(list, Row{
			Rank:        r.Rank,
			Identifier:  t.Identifier,
			Domain:      string(t.Domain),
			Status:      t.Resolution.Status().String(),
			Package:     pkg,
			Reason:      reason,
			Composite:   r.Record.Composite,
			Bench:       r.Record.Bench,
			Final:       r.Final,
			Benchmarked: r.Record.Benchmarked(),
		})
	}
	return list
}

func toView(d *Document) *view {
	bl := d.blend()
	v := &view{
		Title:   d.title(),
		Blend:   blendView{Repo: bl.Repo, Bench: bl.Bench},
		Ranking: rows(d),
		Mapping: make([]Mapped, 0),
		Skipped: make([]Mapped, 0),
		Bench:   d.Bench,
		Flagged: d.Flagged,
	}
	if !d.GeneratedAt.IsZero() {
		ts := d.GeneratedAt.UTC()
		v.GeneratedAt = &ts
	}
	if d.Empty() {
		v.Message = noResults
	}

	for _, t := range d.Mapping() {
		pkg, _ := t.Resolution.Package()
		reason, _ := t.Resolution.Reason()
		m := Mapped{Identifier: t.Identifier, Status: t.Resolution.Status().String(), Package: pkg, Reason: reason}
		v.Mapping = append(v.Mapping, m)
		if reason != "" {
			v.Skipped = append(v.Skipped, m)
		}
	}
	return v
}

func writeJSON(w io.Writer, d *Document) error {
	je := json.NewEncoder(w)
	je.SetIndent("", "  ")
	if err := je.Encode(toView(d)); err != nil {
		return fmt.Errorf("error encoding json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, d *Document) error {
	ye := yaml.NewEncoder(w)
	ye.SetIndent(2)
	if err := ye.Encode(toView(d)); err != nil {
		return fmt.Errorf("error encoding yaml: %w", err)
	}
	if err := ye.Close(); err != nil {
		return fmt.Errorf("error closing yaml encoder: %w", err)
	}
	return nil
}
