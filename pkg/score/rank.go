package score

import (
	"cmp"
	"slices"

	"github.com/mchmarny/scirank/pkg/resolve"
)

// Blend weighs composite_v2 against bench_score.
type Blend struct {
	Repo  float64
	Bench float64
}

// DefaultBlend is 0.7 repository quality, 0.3 execution.
func DefaultBlend() Blend {
	return Blend{Repo: 0.7, Bench: 0.3}
}

// ScoreRecord ties the two scores to a tool. Bench is nil when the tool was
// never benchmarked (skipped, unresolved or not probed), which is distinct
// from a benchmark that ran and scored 0.
type ScoreRecord struct {
	Tool      resolve.ToolRecord
	Composite float64
	Bench     *float64
}

// Benchmarked reports whether a bench_score exists.
func (r ScoreRecord) Benchmarked() bool {
	return r.Bench != nil
}

// BenchOrZero returns bench_score, counting a missing one as 0.
//
// Counting "never tested" as 0 puts it level with "tested and failed". This
// is kept for compatibility with published rankings; reports flag such rows.
func (r ScoreRecord) BenchOrZero() float64 {
	if r.Bench == nil {
		return 0
	}
	return *r.Bench
}

// Final derives final_score from the record's current inputs.
func (r ScoreRecord) Final(b Blend) float64 {
	return b.Repo*r.Composite + b.Bench*r.BenchOrZero()
}

// RankedRow is one row of a RankedTable.
type RankedRow struct {
	Rank   int
	Record ScoreRecord
	Final  float64
}

// RankedTable is ordered by final score descending, ties by identifier.
type RankedTable struct {
	Blend Blend
	Rows  []RankedRow
}

// Len returns the number of rows.
func (t *RankedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Rank computes final scores and sorts. It does not modify records and an
// empty input yields an empty table.
func Rank(records []ScoreRecord, b Blend) *RankedTable {
	rows := make([]RankedRow, len(records))
	for i, r := range records {
		rows[i] = RankedRow{Record: r, Final: r.Final(b)}
	}

	slices.SortStableFunc(rows, func(x, y RankedRow) int {
		if c := cmp.Compare(y.Final, x.Final); c != 0 {
			return c
		}
		return cmp.Compare(x.Record.Tool.Identifier, y.Record.Tool.Identifier)
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return &RankedTable{Blend: b, Rows: rows}
}
