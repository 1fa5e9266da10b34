package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mchmarny/scirank/pkg/input"
)

// DefaultFastest is how many passing tools a summary lists.
const DefaultFastest = 10

// BenchSummary aggregates benchmark results independently of ranking.
type BenchSummary struct {
	Total    int         `json:"total" yaml:"total"`
	Passed   int         `json:"passed" yaml:"passed"`
	Failed   int         `json:"failed" yaml:"failed"`
	Skipped  int         `json:"skipped" yaml:"skipped"`
	PassRate float64     `json:"pass_rate" yaml:"pass_rate"`
	AvgLat   *float64    `json:"avg_latency_s,omitempty" yaml:"avg_latency_s,omitempty"`
	Fastest  []FastEntry `json:"fastest" yaml:"fastest"`
}

// FastEntry is a passing tool and its smoke-test latency.
type FastEntry struct {
	Name    string  `json:"name" yaml:"name"`
	Latency float64 `json:"latency_s" yaml:"latency_s"`
}

// Summarize counts outcomes in list and keeps the n fastest passing entries
// that have a latency. The average covers every non-skipped entry with a
// latency.
func Summarize(list []input.Bench, n int) *BenchSummary {
	s := &BenchSummary{Total: len(list), Fastest: make([]FastEntry, 0)}

	var sum float64
	timed := 0
	for _, b := range list {
		switch {
		case b.Skipped:
			s.Skipped++
			continue
		case b.Passed:
			s.Passed++
		default:
			s.Failed++
		}

		if b.Latency == nil {
			continue
		}
		sum += *b.Latency
		timed++
		if b.Passed {
			s.Fastest = append(s.Fastest, FastEntry{Name: b.Name, Latency: *b.Latency})
		}
	}

	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total)
	}
	if timed > 0 {
		avg := sum / float64(timed)
		s.AvgLat = &avg
	}

	slices.SortStableFunc(s.Fastest, func(a, b FastEntry) int {
		if c := cmp.Compare(a.Latency, b.Latency); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n > 0 && len(s.Fastest) > n {
		s.Fastest = s.Fastest[:n]
	}
	return s
}

func writeSummaryMarkdown(b *strings.Builder, s *BenchSummary) {
	if s == nil {
		return
	}
	b.WriteString("\n## Benchmark summary\n\n")
	fmt.Fprintf(b, "- Total: %d\n", s.Total)
	fmt.Fprintf(b, "- Passed: %d\n", s.Passed)
	fmt.Fprintf(b, "- Failed: %d\n", s.Failed)
	fmt.Fprintf(b, "- Skipped: %d\n", s.Skipped)
	fmt.Fprintf(b, "- Pass rate: %.1f%%\n", s.PassRate*100)
	if s.AvgLat != nil {
		fmt.Fprintf(b, "- Average latency: %.4fs\n", *s.AvgLat)
	}

	if len(s.Fastest) == 0 {
		return
	}
	b.WriteString("\n| Tool | latency_s |\n")
	b.WriteString("|---|---:|\n")
	for _, f := range s.Fastest {
		fmt.Fprintf(b, "| %s | %.4f |\n", cell(f.Name), f.Latency)
	}
}
