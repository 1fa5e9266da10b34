// Package discover finds candidate repositories on GitHub and enriches them
// with the metadata behind composite_v2.
package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/data"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	maxSearchPages = 10 // search API caps at 1000 results
	maxPerPage     = 100
	enrichParallel = 4
	readmeHeadLen  = 2000
)

// Client wraps the GitHub API with a request rate limit.
type Client struct {
	gh      *github.Client
	cfg     config.Discovery
	limiter *rate.Limiter
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different API root (tests, GHES).
func WithBaseURL(u string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		base, err := url.Parse(u)
		if err != nil {
			return fmt.Errorf("invalid base URL %s: %w", u, err)
		}
		c.gh.BaseURL = base
		return nil
	}
}

// WithClock replaces the clock used for date qualifiers and windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}

// New creates a discovery client. hc should carry the auth token, see
// net.GetOAuthClient.
func New(hc *http.Client, cfg config.Discovery, opts ...Option) (*Client, error) {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		gh:      github.NewClient(hc),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}

func (c *Client) perPage() int {
	switch {
	case c.cfg.PerPage <= 0:
		return 30
	case c.cfg.PerPage > maxPerPage:
		return maxPerPage
	default:
		return c.cfg.PerPage
	}
}

func (c *Client) maxPages() int {
	switch {
	case c.cfg.MaxPages <= 0:
		return 1
	case c.cfg.MaxPages > maxSearchPages:
		return maxSearchPages
	default:
		return c.cfg.MaxPages
	}
}

// Search runs every configured query and returns repositories de-duplicated
// by full name, in first-seen order.
func (c *Client) Search(ctx context.Context) ([]*github.Repository, error) {
	seen := make(map[string]bool)
	list := make([]*github.Repository, 0)

	for _, q := range BuildQueries(c.cfg, c.now().UTC()) {
		opt := &github.SearchOptions{
			Sort:        "stars",
			Order:       "desc",
			ListOptions: github.ListOptions{PerPage: c.perPage()},
		}

		for page := 1; page <= c.maxPages(); page++ {
			opt.Page = page
			if err := c.wait(ctx); err != nil {
				return list, err
			}

			res, resp, err := c.gh.Search.Repositories(ctx, q, opt)
			if err != nil {
				if ctx.Err() != nil {
					return list, ctx.Err()
				}
				slog.Warn("search failed", "query", q, "page", page, "error", err)
				break
			}
			checkRateLimit(ctx, resp)

			for _, r := range res.Repositories {
				k := strings.ToLower(r.GetFullName())
				if k == "" || seen[k] {
					continue
				}
				seen[k] = true
				list = append(list, r)
			}

			slog.Debug("search page", "query", q, "page", page, "items", len(res.Repositories), "total", res.GetTotal())
			if resp.NextPage == 0 || len(res.Repositories) == 0 {
				break
			}
		}
	}

	return list, nil
}

// ListOrg returns the public repositories of org, skipping forks, archived
// repositories (unless configured) and those under the star threshold.
func (c *Client) ListOrg(ctx context.Context, org string) ([]*github.Repository, error) {
	if org == "" {
		return nil, errors.New("org is required")
	}

	opt := &github.RepositoryListByOrgOptions{
		Type:        "public",
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}

	list := make([]*github.Repository, 0)
	for {
		if err := c.wait(ctx); err != nil {
			return list, err
		}

		items, resp, err := c.gh.Repositories.ListByOrg(ctx, org, opt)
		if err != nil {
			return list, fmt.Errorf("error listing repos for org %s: %w", org, err)
		}
		checkRateLimit(ctx, resp)

		for _, r := range items {
			if r.GetFork() || (r.GetArchived() && !c.cfg.IncludeArchived) || r.GetStargazersCount() < c.cfg.MinStars {
				continue
			}
			list = append(list, r)
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return list, nil
}

// Discover searches, harvests configured orgs and enriches the union.
// Repositories that fail enrichment are logged and left out.
func (c *Client) Discover(ctx context.Context) ([]*data.Repo, error) {
	found := make([]*github.Repository, 0)
	if len(c.cfg.Topics)+len(c.cfg.Queries) > 0 || len(c.cfg.Orgs) == 0 {
		list, err := c.Search(ctx)
		if err != nil {
			return nil, fmt.Errorf("error searching repos: %w", err)
		}
		found = append(found, list...)
	}

	for _, org := range dedup(c.cfg.Orgs) {
		list, err := c.ListOrg(ctx, org)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("error listing org", "org", org, "error", err)
			continue
		}
		found = append(found, list...)
	}

	found = uniqueRepos(found)
	slog.Info("discovered", "repos", len(found))

	return c.EnrichAll(ctx, found)
}

// EnrichAll enriches repos concurrently, preserving input order.
func (c *Client) EnrichAll(ctx context.Context, repos []*github.Repository) ([]*data.Repo, error) {
	slots := make([]*data.Repo, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichParallel)

	var mu sync.Mutex
	failed := 0
	for i, r := range repos {
		g.Go(func() error {
			e, err := c.Enrich(gctx, r)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("enrichment failed", "repo", r.GetFullName(), "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			slots[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrichment canceled: %w", err)
	}

	list := make([]*data.Repo, 0, len(repos))
	for _, e := range slots {
		if e != nil {
			list = append(list, e)
		}
	}

	slog.Info("enriched", "ok", len(list), "failed", failed)
	return list, nil
}

func uniqueRepos(in []*github.Repository) []*github.Repository {
	seen := make(map[string]bool, len(in))
	out := make([]*github.Repository, 0, len(in))
	for _, r := range in {
		k := strings.ToLower(r.GetFullName())
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
