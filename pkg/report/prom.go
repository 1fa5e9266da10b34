package report

import (
	"fmt"
	"io"

	"github.com/mchmarny/scirank/pkg/resolve"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	metricFinal     = "scirank_final_score"
	metricComposite = "scirank_composite_score"
	metricBench     = "scirank_bench_score"
	metricRank      = "scirank_rank"
	metricTools     = "scirank_tools"
	metricOutcomes  = "scirank_bench_results"
)

func writeProm(w io.Writer, d *Document) error {
	final := gaugeFamily(metricFinal, "Blended final score per tool.")
	composite := gaugeFamily(metricComposite, "Repository quality score (composite_v2) per tool.")
	bench := gaugeFamily(metricBench, "Execution score per benchmarked tool.")
	rank := gaugeFamily(metricRank, "Position of the tool in the ranking, 1 is best.")
	tools := gaugeFamily(metricTools, "Number of ranked tools by resolution status.")

	counts := map[resolve.Status]int{}
	for _, r := range rows(d) {
		labels := toolLabels(r)
		final.Metric = append(final.Metric, gauge(r.Final, labels))
		composite.Metric = append(composite.Metric, gauge(r.Composite, labels))
		rank.Metric = append(rank.Metric, gauge(float64(r.Rank), labels))
		if r.Bench != nil {
			bench.Metric = append(bench.Metric, gauge(*r.Bench, labels))
		}
	}
	if !d.Empty() {
		for _, r := range d.Table.Rows {
			counts[r.Record.Tool.Resolution.Status()]++
		}
	}
	for _, s := range []resolve.Status{resolve.StatusOK, resolve.StatusSkipped, resolve.StatusUnknown} {
		tools.Metric = append(tools.Metric, gauge(float64(counts[s]), []*dto.LabelPair{label("status", s.String())}))
	}

	outcomes := gaugeFamily(metricOutcomes, "Number of benchmark results by outcome.")
	if s := d.Bench; s != nil {
		for _, o := range []struct {
			name string
			n    int
		}{{"passed", s.Passed}, {"failed", s.Failed}, {"skipped", s.Skipped}} {
			outcomes.Metric = append(outcomes.Metric, gauge(float64(o.n), []*dto.LabelPair{label("outcome", o.name)}))
		}
	}

	for _, mf := range []*dto.MetricFamily{final, composite, bench, rank, tools, outcomes} {
		// the text encoder rejects families without samples
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("error writing metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: &name,
		Help: &help,
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labels []*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: &v},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: &name, Value: &value}
}

// labels are kept in name order.
func toolLabels(r Row) []*dto.LabelPair {
	return []*dto.LabelPair{
		label("domain", r.Domain),
		label("status", r.Status),
		label("tool", r.Identifier),
	}
}
