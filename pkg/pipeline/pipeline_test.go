package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/probe"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/mchmarny/scirank/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fakeIndex map[string]bool

func (f fakeIndex) Exists(_ context.Context, pkg string) (bool, error) {
	return f[pkg], nil
}

var fixedNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func testRanker(t *testing.T) *Ranker {
	t.Helper()
	cfg := config.Default()
	cfg.Index.Enabled = false
	cfg.Skip = map[string]string{"hail-is/hail": "requires JVM"}
	cfg.Overrides = map[string]string{"rdkit/rdkit": "rdkit-pypi"}

	res := resolve.New(cfg.Overrides, cfg.Skip, cfg.Imports, resolve.WithIndex(fakeIndex{"rdkit-pypi": true, "failing": true}))
	return New(cfg, res, WithClock(func() time.Time { return fixedNow }))
}

func recordsByID(list []score.ScoreRecord) map[string]score.ScoreRecord {
	m := make(map[string]score.ScoreRecord, len(list))
	for _, r := range list {
		m[r.Tool.Identifier] = r
	}
	return m
}

func TestPolicyDefaults(t *testing.T) {
	c := config.Default()
	assert.Equal(t, score.DefaultWeights(), Weights(c))
	assert.Equal(t, score.DefaultBenchWeights(), BenchWeights(c))
	assert.Equal(t, score.DefaultBlend(), Blend(c))

	d := Domains(c)
	assert.InDelta(t, 1.05, d[resolve.DomainML], 1e-9)
	assert.InDelta(t, 0.95, d[resolve.DomainChem], 1e-9)
}

func TestRecords(t *testing.T) {
	rk := testRanker(t)

	repos := []*data.Repo{
		{Identifier: "plotly/dash", Domain: "other", Composite: ptr(0.3899)},
		{Identifier: "hail-is/hail", Domain: "bio", Composite: ptr(0.2693)},
		{Identifier: "rdkit/rdkit", Domain: "chem", Composite: ptr(0.5)},
		{Identifier: "org/failing", Composite: ptr(0.4)},
		{Identifier: "org/untested", Composite: ptr(0.3)},
		{Identifier: "org/broken", Composite: ptr(0.2)},
	}
	bench := []input.Bench{
		{Name: "dash", Passed: true, Latency: ptr(1.0)},
		{Name: "hail", Skipped: true},
		{Name: "rdkit-pypi", Passed: true, Latency: ptr(2.0)},
		{Name: "ORG/Failing", Passed: false},
		{Name: "broken", Passed: false},
	}

	recs := rk.Records(context.Background(), repos, bench)
	require.Len(t, recs, len(repos))
	m := recordsByID(recs)

	dash := m["plotly/dash"]
	assert.Equal(t, resolve.StatusOK, dash.Tool.Resolution.Status(), "passing bench verifies the candidate")
	require.NotNil(t, dash.Bench)
	assert.InDelta(t, 1.0, *dash.Bench, 1e-9)

	hail := m["hail-is/hail"]
	assert.Equal(t, resolve.StatusSkipped, hail.Tool.Resolution.Status())
	assert.Nil(t, hail.Bench)
	assert.InDelta(t, 0.18851, hail.Final(score.DefaultBlend()), 1e-9)

	rdkit := m["rdkit/rdkit"]
	assert.Equal(t, resolve.StatusOK, rdkit.Tool.Resolution.Status())
	require.NotNil(t, rdkit.Bench, "matched by resolved package")
	assert.InDelta(t, 0.85, *rdkit.Bench, 1e-9)

	failing := m["org/failing"]
	assert.Equal(t, resolve.StatusOK, failing.Tool.Resolution.Status())
	require.NotNil(t, failing.Bench, "matched by identifier, case-insensitive")
	assert.Zero(t, *failing.Bench)
	assert.True(t, failing.Benchmarked())

	untested := m["org/untested"]
	assert.Equal(t, resolve.StatusUnknown, untested.Tool.Resolution.Status())
	assert.Nil(t, untested.Bench)

	broken := m["org/broken"]
	assert.Equal(t, resolve.StatusUnknown, broken.Tool.Resolution.Status(), "a failed bench does not verify")
	assert.Nil(t, broken.Bench)
}

func TestRank_ReferenceScenario(t *testing.T) {
	rk := testRanker(t)
	repos := []*data.Repo{
		{Identifier: "hail-is/hail", Domain: "bio", Composite: ptr(0.2693)},
		{Identifier: "plotly/dash", Domain: "other", Composite: ptr(0.3899)},
	}
	bench := []input.Bench{{Name: "dash", Passed: true, Latency: ptr(1.0)}}

	table := rk.Rank(context.Background(), repos, bench)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "plotly/dash", table.Rows[0].Record.Tool.Identifier)
	assert.InDelta(t, 0.7*0.3899+0.3*1.0, table.Rows[0].Final, 1e-9)
	assert.Equal(t, "hail-is/hail", table.Rows[1].Record.Tool.Identifier)
	assert.InDelta(t, 0.18851, table.Rows[1].Final, 1e-9)

	empty := rk.Rank(context.Background(), nil, nil)
	assert.Equal(t, 0, empty.Len())
}

func TestComposite_Computed(t *testing.T) {
	rk := testRanker(t)
	r := &data.Repo{
		Identifier:    "a/b",
		Description:   "protein folding",
		Stars:         500,
		Contributors:  20,
		CommitsWindow: 40,
		ClosedIssues:  30,
		OpenIssues:    10,
		HasCI:         true,
		PushedAt:      fixedNow.AddDate(0, 0, -30).Format(time.RFC3339),
	}

	s := Signals(r, fixedNow)
	assert.Equal(t, resolve.DomainBio, s.Domain)
	assert.Equal(t, 30, s.DaysSinceUpdate)

	c := rk.Composite(r)
	assert.Greater(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)
	assert.InDelta(t, score.Composite(s, Weights(rk.cfg), Domains(rk.cfg)), c, 1e-12)

	r.Composite = ptr(0.42)
	assert.InDelta(t, 0.42, rk.Composite(r), 1e-12, "precomputed value is used verbatim")
}

func TestTop(t *testing.T) {
	records := []score.ScoreRecord{
		{Tool: resolve.ToolRecord{Identifier: "a/a"}, Composite: 0.9},
		{Tool: resolve.ToolRecord{Identifier: "b/b"}, Composite: 0.5},
		{Tool: resolve.ToolRecord{Identifier: "c/c"}, Composite: 0.1},
	}
	table := score.Rank(records, score.DefaultBlend())

	top := Top(table, 2)
	require.Equal(t, 2, top.Len())
	assert.Equal(t, "b/b", top.Rows[1].Record.Tool.Identifier)
	assert.Equal(t, 3, table.Len(), "source table untouched")

	assert.Same(t, table, Top(table, 0))
	assert.Same(t, table, Top(table, 10))
	assert.Nil(t, Top(nil, 1))

	tools := Tools(table)
	require.Len(t, tools, 3, "tools cover the full table")
	assert.Equal(t, "c/c", tools[2].Identifier)
	assert.Empty(t, Tools(nil))
}

func TestNewResolver_Index(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/dash/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/files/dash-2.0.0.tar.gz">dash-2.0.0.tar.gz</a></body></html>`)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Index.URL = srv.URL + "/simple/"

	res := NewResolver(cfg, srv.Client(), nil)
	ctx := context.Background()
	assert.Equal(t, resolve.StatusOK, res.Resolve(ctx, "plotly/dash", resolve.DomainOther).Resolution.Status())
	assert.Equal(t, resolve.StatusUnknown, res.Resolve(ctx, "x/missing", resolve.DomainOther).Resolution.Status())

	cfg.Index.Enabled = false
	res = NewResolver(cfg, nil, nil)
	assert.Equal(t, resolve.StatusUnknown, res.Resolve(ctx, "plotly/dash", resolve.DomainOther).Resolution.Status())
}

func TestConversions(t *testing.T) {
	results := []probe.Result{
		{Identifier: "plotly/dash", Package: "dash", Module: "dash", Passed: true, Latency: ptr(0.5), Version: "2.0"},
		{Identifier: "x/y", Package: "y", Module: "y", Error: "no module named y"},
	}

	stored := ToProbes(results, "2026-06-01T00:00:00Z")
	require.Len(t, stored, 2)
	assert.Equal(t, "2026-06-01T00:00:00Z", stored[0].ProbedAt)
	assert.Equal(t, "2.0", stored[0].Version)

	b := FromProbes(append(stored, nil))
	require.Len(t, b, 2)
	assert.Equal(t, FromResults(results), b)
	assert.Equal(t, "no module named y", b[1].Detail)
}
