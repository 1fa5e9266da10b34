package pipeline

import (
	"net/http"

	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/pypi"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/mchmarny/scirank/pkg/score"
)

// Weights maps the configured composite weights.
func Weights(c *config.Config) score.Weights {
	w := c.Weights
	return score.Weights{
		Stars:        w.Stars,
		Forks:        w.Forks,
		Commits:      w.Commits,
		Contributors: w.Contributors,
		Issues:       w.Issues,
		Recency:      w.Recency,
		Readme:       w.Readme,
		CITests:      w.CITests,
	}
}

// BenchWeights maps the configured bench policy; latency is in seconds.
func BenchWeights(c *config.Config) score.BenchWeights {
	return score.BenchWeights{
		Pass:      c.Bench.Pass,
		Speed:     c.Bench.Speed,
		Reference: c.Bench.ReferenceLatency.Seconds(),
	}
}

// Blend maps the configured final blend.
func Blend(c *config.Config) score.Blend {
	return score.Blend{Repo: c.Blend.Repo, Bench: c.Blend.Bench}
}

// Domains maps the configured domain multipliers.
func Domains(c *config.Config) map[resolve.Domain]float64 {
	m := make(map[resolve.Domain]float64, len(c.Domains))
	for k, v := range c.Domains {
		m[resolve.ParseDomain(k)] = v
	}
	return m
}

// NewResolver builds a resolver from the curated tables in c. The package
// index check is enabled when configured; checker may be nil.
func NewResolver(c *config.Config, hc *http.Client, checker resolve.ImportChecker) *resolve.Resolver {
	opts := make([]resolve.Option, 0, 2)
	if c.Index.Enabled {
		popts := []pypi.Option{}
		if hc != nil {
			popts = append(popts, pypi.WithHTTPClient(hc))
		}
		opts = append(opts, resolve.WithIndex(pypi.New(c.Index.URL, popts...)))
	}
	if checker != nil {
		opts = append(opts, resolve.WithImportCheck(checker))
	}
	return resolve.New(c.Overrides, c.Skip, c.Imports, opts...)
}
