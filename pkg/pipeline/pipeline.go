// Package pipeline runs resolution, scoring and ranking over repository
// metadata and benchmark results.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/mchmarny/scirank/pkg/score"
)

// Ranker scores and ranks repositories under one configuration.
type Ranker struct {
	cfg      *config.Config
	resolver *resolve.Resolver
	now      func() time.Time
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithClock sets the clock used for repository age.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) {
		r.now = now
	}
}

// New creates a Ranker. A nil cfg uses the defaults.
func New(cfg *config.Config, res *resolve.Resolver, opts ...Option) *Ranker {
	if cfg == nil {
		cfg = config.Default()
	}
	if res == nil {
		res = resolve.New(cfg.Overrides, cfg.Skip, cfg.Imports)
	}
	r := &Ranker{cfg: cfg, resolver: res, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Signals extracts the composite_v2 inputs of a repository.
func Signals(r *data.Repo, now time.Time) score.Signals {
	return score.Signals{
		Stars:         r.Stars,
		Forks:         r.Forks,
		Contributors:  r.Contributors,
		CommitsWindow: r.CommitsWindow,
		OpenIssues:    r.OpenIssues,
		ClosedIssues:  r.ClosedIssues,
		Readme: score.Readme{
			Length:   r.ReadmeLength,
			Sections: r.ReadmeSections,
			Install:  r.ReadmeInstall,
			Citation: r.ReadmeCitation,
		},
		HasCI:           r.HasCI,
		HasTests:        r.HasTests,
		DaysSinceUpdate: r.Days(now),
		Domain:          domainOf(r),
	}
}

func domainOf(r *data.Repo) resolve.Domain {
	if strings.TrimSpace(r.Domain) != "" {
		return resolve.ParseDomain(r.Domain)
	}
	return score.DetectDomain(r.Description + " " + strings.Join(r.Topics, " "))
}

// Composite returns the precomputed composite_v2 of r when present,
// otherwise computes it.
func (rk *Ranker) Composite(r *data.Repo) float64 {
	if r.Composite != nil {
		return *r.Composite
	}
	return score.Composite(Signals(r, rk.now()), Weights(rk.cfg), Domains(rk.cfg))
}

// Resolve maps repositories to tool records in input order.
func (rk *Ranker) Resolve(ctx context.Context, repos []*data.Repo) []resolve.ToolRecord {
	in := make([]resolve.Input, 0, len(repos))
	for _, r := range repos {
		in = append(in, resolve.Input{Identifier: r.Identifier, Domain: domainOf(r)})
	}
	return rk.resolver.ResolveAll(ctx, in)
}

// Records resolves and scores repos. A tool gets a bench_score only when it
// resolved OK and has a bench entry that was not skipped. A passing entry
// for an UNKNOWN tool verifies its candidate package, so it is promoted to
// OK.
func (rk *Ranker) Records(ctx context.Context, repos []*data.Repo, bench []input.Bench) []score.ScoreRecord {
	tools := rk.Resolve(ctx, repos)
	idx := newBenchIndex(bench)
	bw := BenchWeights(rk.cfg)

	list := make([]score.ScoreRecord, 0, len(tools))
	for i, t := range tools {
		rec := score.ScoreRecord{Tool: t, Composite: rk.Composite(repos[i])}

		b := idx.lookup(t)
		if b == nil || b.Skipped {
			list = append(list, rec)
			continue
		}

		if t.Resolution.Status() == resolve.StatusUnknown && b.Passed {
			pkg, ok := t.Resolution.Package()
			if !ok {
				pkg = resolve.Normalize(b.Name)
			}
			if !strings.Contains(pkg, "/") {
				slog.Debug("resolution verified by bench", "tool", t.Identifier, "package", pkg)
				rec.Tool.Resolution = resolve.OK(pkg)
			}
		}

		if rec.Tool.Resolution.Status() == resolve.StatusOK {
			v := score.BenchScore(b.Passed, b.Latency, bw)
			rec.Bench = &v
		}
		list = append(list, rec)
	}
	return list
}

// Rank resolves, scores and ranks repos.
func (rk *Ranker) Rank(ctx context.Context, repos []*data.Repo, bench []input.Bench) *score.RankedTable {
	return score.Rank(rk.Records(ctx, repos, bench), Blend(rk.cfg))
}

// Top returns the first n rows of t; n <= 0 keeps all rows.
func Top(t *score.RankedTable, n int) *score.RankedTable {
	if t == nil || n <= 0 || n >= t.Len() {
		return t
	}
	return &score.RankedTable{Blend: t.Blend, Rows: t.Rows[:n]}
}

// Tools returns the tool record of every row of t in rank order.
func Tools(t *score.RankedTable) []resolve.ToolRecord {
	list := make([]resolve.ToolRecord, 0, t.Len())
	if t == nil {
		return list
	}
	for _, r := range t.Rows {
		list = append(list, r.Record.Tool)
	}
	return list
}
