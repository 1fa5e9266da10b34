package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"rank", "identifier", "domain", "status", "package", "reason",
	"composite_v2", "bench_score", "final_score", "benchmarked",
}

func writeCSV(w io.Writer, d *Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	for _, r := range rows(d) {
		rec := []string{
			strconv.Itoa(r.Rank), r.Identifier, r.Domain, r.Status, r.Package, r.Reason,
			formatScore(r.Composite), "", formatScore(r.Final), strconv.FormatBool(r.Benchmarked),
		}
		if r.Bench != nil {
			rec[7] = formatScore(*r.Bench)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("error writing csv row %d: %w", r.Rank, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
