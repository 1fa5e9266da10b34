package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/mchmarny/scirank/pkg/score"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func ptr[T any](v T) *T { return &v }

func testDocument() *Document {
	records := []score.ScoreRecord{
		{
			Tool:      resolve.ToolRecord{Identifier: "hail-is/hail", Domain: resolve.DomainBio, Resolution: resolve.Skipped("requires JVM")},
			Composite: 0.2693,
		},
		{
			Tool:      resolve.ToolRecord{Identifier: "plotly/dash", Domain: resolve.DomainOther, Resolution: resolve.OK("dash")},
			Composite: 0.3899,
			Bench:     ptr(0.9996),
		},
	}
	return &Document{
		Title:       "Test ranking",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Table:       score.Rank(records, score.DefaultBlend()),
		Flagged:     []input.Flagged{{Source: "repos.csv", Line: 4, Identifier: "bad", Reason: "invalid identifier"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":          FormatMarkdown,
		"md":        FormatMarkdown,
		"CSV":       FormatCSV,
		"json":      FormatJSON,
		"yml":       FormatYAML,
		"yaml":      FormatYAML,
		"prom":      FormatProm,
		"metrics":   FormatProm,
		" Markdown": FormatMarkdown,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromPath("out/ranking.csv"))
	assert.Equal(t, FormatJSON, FormatFromPath("ranking.json"))
	assert.Equal(t, FormatProm, FormatFromPath("scirank.prom"))
	assert.Equal(t, FormatMarkdown, FormatFromPath("ranking"))
	assert.Equal(t, FormatMarkdown, FormatFromPath("ranking.txt"))
}

func TestWrite_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, testDocument()))
	out := buf.String()

	assert.Contains(t, out, "# Test ranking")
	assert.Contains(t, out, "Generated 2026-01-02T03:04:05Z")
	assert.Contains(t, out, "`final_score = 0.70 * composite_v2 + 0.30 * bench_score`")
	assert.Contains(t, out, "| 1 | plotly/dash | other | OK | 0.3899 | 0.9996 | 0.5728 |")
	assert.Contains(t, out, "| 2 | hail-is/hail | bio | SKIPPED | 0.2693 | n/a* | 0.1885 |")
	assert.Contains(t, out, "1 tool(s) not benchmarked")
	assert.Contains(t, out, "| hail-is/hail | SKIPPED | - | requires JVM |")
	assert.Contains(t, out, "| plotly/dash | OK | dash | - |")
	assert.Contains(t, out, "- `hail-is/hail`: requires JVM")
	assert.Contains(t, out, "- repos.csv:4 bad: invalid identifier")

	assert.Less(t, strings.Index(out, "hail-is/hail | SKIPPED | -"), strings.Index(out, "plotly/dash | OK | dash"),
		"mapping is ordered by identifier")
}

func TestWrite_Empty(t *testing.T) {
	for _, d := range []*Document{nil, {}, {Table: score.Rank(nil, score.DefaultBlend())}} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatMarkdown, d))
		assert.Contains(t, buf.String(), "No results.")
		assert.NotContains(t, buf.String(), "## Ranking")
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, &Document{}))
	var v map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	assert.Equal(t, "No results.", v["message"])
	assert.Empty(t, v["ranking"])
}

func TestValidate_Malformed(t *testing.T) {
	tests := map[string]func(d *Document){
		"empty identifier": func(d *Document) { d.Table.Rows[0].Record.Tool.Identifier = " " },
		"composite range":  func(d *Document) { d.Table.Rows[0].Record.Composite = 1.5 },
		"composite nan":    func(d *Document) { d.Table.Rows[0].Record.Composite = math.NaN() },
		"bench range":      func(d *Document) { d.Table.Rows[0].Record.Bench = ptr(-0.1) },
		"final inf":        func(d *Document) { d.Table.Rows[1].Final = math.Inf(1) },
		"rank order":       func(d *Document) { d.Table.Rows[1].Rank = 7 },
		"skipped benched":  func(d *Document) { d.Table.Rows[1].Record.Bench = ptr(0.5) },
		"mapping identifier": func(d *Document) {
			d.Tools = []resolve.ToolRecord{{Identifier: "", Resolution: resolve.Unknown("x")}}
		},
		"unknown benched": func(d *Document) {
			d.Table.Rows[0].Record.Tool.Resolution = resolve.Unknown("dash")
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			d := testDocument()
			mutate(d)
			err := d.Validate()
			require.ErrorIs(t, err, ErrMalformedRow)

			var buf bytes.Buffer
			for _, f := range Formats() {
				require.ErrorIs(t, Write(&buf, f, d), ErrMalformedRow)
			}
			assert.Zero(t, buf.Len(), "nothing is written for an invalid document")
		})
	}

	assert.NoError(t, testDocument().Validate())
}

func TestWrite_TruncatedTableKeepsMapping(t *testing.T) {
	d := testDocument()
	d.Tools = []resolve.ToolRecord{d.Table.Rows[0].Record.Tool, d.Table.Rows[1].Record.Tool}
	d.Table = &score.RankedTable{Blend: d.Table.Blend, Rows: d.Table.Rows[:1]}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, d))
	out := buf.String()
	assert.NotContains(t, out, "| 2 | hail-is/hail")
	assert.Contains(t, out, "| hail-is/hail | SKIPPED | - | requires JVM |")
	assert.Contains(t, out, "- `hail-is/hail`: requires JVM")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, d))
	var v struct {
		Ranking []Row    `json:"ranking"`
		Mapping []Mapped `json:"mapping"`
		Skipped []Mapped `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	assert.Len(t, v.Ranking, 1)
	assert.Len(t, v.Mapping, 2)
	require.Len(t, v.Skipped, 1)
	assert.Equal(t, "hail-is/hail", v.Skipped[0].Identifier)
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, testDocument()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, csvHeader, recs[0])
	assert.Equal(t, []string{"1", "plotly/dash", "other", "OK", "dash", "", "0.389900", "0.999600", "0.572810", "true"}, recs[1])
	assert.Equal(t, []string{"2", "hail-is/hail", "bio", "SKIPPED", "", "requires JVM", "0.269300", "", "0.188510", "false"}, recs[2])
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, testDocument()))

	var v struct {
		Title   string   `json:"title"`
		Ranking []Row    `json:"ranking"`
		Mapping []Mapped `json:"mapping"`
		Skipped []Mapped `json:"skipped"`
		Flagged []input.Flagged
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	assert.Equal(t, "Test ranking", v.Title)
	require.Len(t, v.Ranking, 2)
	assert.Equal(t, "plotly/dash", v.Ranking[0].Identifier)
	assert.InDelta(t, 0.57281, v.Ranking[0].Final, 1e-9)
	assert.Nil(t, v.Ranking[1].Bench)
	assert.False(t, v.Ranking[1].Benchmarked)
	require.Len(t, v.Skipped, 1)
	assert.Equal(t, "requires JVM", v.Skipped[0].Reason)
	assert.Len(t, v.Mapping, 2)
	assert.Len(t, v.Flagged, 1)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, testDocument()))

	var v map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &v))
	ranking, ok := v["ranking"].([]any)
	require.True(t, ok)
	require.Len(t, ranking, 2)
	first, ok := ranking[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "plotly/dash", first["identifier"])
	assert.Equal(t, "OK", first["status"])
}

func TestWrite_Prom(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatProm, testDocument()))

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)

	require.Contains(t, mfs, metricFinal)
	require.Len(t, mfs[metricFinal].GetMetric(), 2)
	require.Len(t, mfs[metricComposite].GetMetric(), 2)
	require.Len(t, mfs[metricRank].GetMetric(), 2)
	require.Len(t, mfs[metricBench].GetMetric(), 1, "only benchmarked tools")

	values := map[string]float64{}
	for _, m := range mfs[metricFinal].GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "tool" {
				values[l.GetValue()] = m.GetGauge().GetValue()
			}
		}
	}
	assert.InDelta(t, 0.57281, values["plotly/dash"], 1e-9)
	assert.InDelta(t, 0.18851, values["hail-is/hail"], 1e-9)

	counts := map[string]float64{}
	for _, m := range mfs[metricTools].GetMetric() {
		counts[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"OK": 1, "SKIPPED": 1, "UNKNOWN": 0}, counts)
}

func TestWrite_PromEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatProm, &Document{}))

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)
	assert.Len(t, mfs, 1)
	assert.Contains(t, mfs, metricTools)
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("xml"), testDocument()))
}

func TestPretty(t *testing.T) {
	out, err := Pretty("# Title\n\nhello world\n", 80, "notty")
	require.NoError(t, err)
	assert.Contains(t, out, "hello world")

	out, err = Pretty("plain text", 0, "no-such-style")
	require.NoError(t, err)
	assert.Contains(t, out, "plain text")
}
