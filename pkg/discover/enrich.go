package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/score"
)

const defaultCommitWindowDays = 90

var (
	// ErrNotFound is returned by Get for unknown repositories.
	ErrNotFound = errors.New("repository not found")

	// root entries that indicate a CI configuration
	ciMarkers = []string{".travis.yml", ".gitlab-ci.yml", "azure-pipelines.yml", ".circleci", "Jenkinsfile", "tox.ini", "noxfile.py"}

	// root directories that indicate a test suite
	testDirs = []string{"test", "tests", "testing", "testsuite"}
)

// Enrich collects the composite_v2 signals for r. Only failure to identify
// the repository is an error; a missing sub-signal is logged and left zero.
func (c *Client) Enrich(ctx context.Context, r *github.Repository) (*data.Repo, error) {
	owner, name := r.GetOwner().GetLogin(), r.GetName()
	if owner == "" || name == "" {
		parts := strings.SplitN(r.GetFullName(), "/", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("repository without owner/name: %q", r.GetFullName())
		}
		owner, name = parts[0], parts[1]
	}

	now := c.now().UTC()
	e := &data.Repo{
		Identifier:      owner + "/" + name,
		Description:     r.GetDescription(),
		Topics:          r.Topics,
		Language:        r.GetLanguage(),
		Stars:           r.GetStargazersCount(),
		Forks:           r.GetForksCount(),
		OpenIssues:      r.GetOpenIssuesCount(),
		Archived:        r.GetArchived(),
		DaysSinceUpdate: score.UnknownDays,
	}

	if p := r.GetPushedAt(); !p.IsZero() {
		e.PushedAt = p.UTC().Format(time.RFC3339)
		e.DaysSinceUpdate = e.Days(now)
	}

	readme, err := c.readme(ctx, owner, name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("readme unavailable", "repo", e.Identifier, "error", err)
	}
	rs := score.AnalyzeReadme(readme)
	e.ReadmeLength = rs.Length
	e.ReadmeSections = rs.Sections
	e.ReadmeInstall = rs.Install
	e.ReadmeCitation = rs.Citation

	if e.HasCI, e.HasTests, err = c.layout(ctx, owner, name); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("layout unavailable", "repo", e.Identifier, "error", err)
	}

	if e.Contributors, err = c.contributors(ctx, owner, name); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("contributors unavailable", "repo", e.Identifier, "error", err)
	}

	window := c.cfg.CommitWindowDays
	if window <= 0 {
		window = defaultCommitWindowDays
	}
	if e.CommitsWindow, err = c.commits(ctx, owner, name, now.AddDate(0, 0, -window)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("commits unavailable", "repo", e.Identifier, "error", err)
	}

	if open, closed, err := c.issues(ctx, owner, name); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("issue counts unavailable", "repo", e.Identifier, "error", err)
	} else {
		e.OpenIssues, e.ClosedIssues = open, closed
	}

	head := readme
	if len(head) > readmeHeadLen {
		head = head[:readmeHeadLen]
	}
	e.Domain = string(score.DetectDomain(strings.Join([]string{e.Description, strings.Join(e.Topics, " "), head}, " ")))

	slog.Debug("enriched repo", "repo", e.Identifier, "stars", e.Stars, "domain", e.Domain)
	return e, nil
}

func (c *Client) readme(ctx context.Context, owner, name string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	content, resp, err := c.gh.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		if isNotFound(resp) {
			return "", nil
		}
		return "", fmt.Errorf("error getting readme: %w", err)
	}
	checkRateLimit(ctx, resp)

	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("error decoding readme: %w", err)
	}
	return text, nil
}

// layout inspects the repository root for CI and test markers.
func (c *Client) layout(ctx context.Context, owner, name string) (hasCI, hasTests bool, err error) {
	if err := c.wait(ctx); err != nil {
		return false, false, err
	}

	_, root, resp, err := c.gh.Repositories.GetContents(ctx, owner, name, "", nil)
	if err != nil {
		if isNotFound(resp) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("error listing root: %w", err)
	}
	checkRateLimit(ctx, resp)

	hasGitHubDir := false
	for _, f := range root {
		n := f.GetName()
		switch {
		case n == ".github" && f.GetType() == "dir":
			hasGitHubDir = true
		case containsFold(ciMarkers, n):
			hasCI = true
		case f.GetType() == "dir" && containsFold(testDirs, n):
			hasTests = true
		}
	}

	if hasCI || !hasGitHubDir {
		return hasCI, hasTests, nil
	}

	if err := c.wait(ctx); err != nil {
		return hasCI, hasTests, err
	}

	_, flows, resp, err := c.gh.Repositories.GetContents(ctx, owner, name, ".github/workflows", nil)
	if err != nil {
		if isNotFound(resp) {
			return false, hasTests, nil
		}
		return false, hasTests, fmt.Errorf("error listing workflows: %w", err)
	}
	checkRateLimit(ctx, resp)

	for _, f := range flows {
		if n := strings.ToLower(f.GetName()); strings.HasSuffix(n, ".yml") || strings.HasSuffix(n, ".yaml") {
			return true, hasTests, nil
		}
	}
	return false, hasTests, nil
}

func (c *Client) contributors(ctx context.Context, owner, name string) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	opt := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	}
	list, resp, err := c.gh.Repositories.ListContributors(ctx, owner, name, opt)
	if err != nil {
		return 0, fmt.Errorf("error listing contributors: %w", err)
	}
	checkRateLimit(ctx, resp)
	return pageCount(len(list), resp), nil
}

func (c *Client) commits(ctx context.Context, owner, name string, since time.Time) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	opt := &github.CommitsListOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	list, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, opt)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			// empty repository
			return 0, nil
		}
		return 0, fmt.Errorf("error listing commits: %w", err)
	}
	checkRateLimit(ctx, resp)
	return pageCount(len(list), resp), nil
}

// issues counts open and closed issues (pull requests excluded).
func (c *Client) issues(ctx context.Context, owner, name string) (open, closed int, err error) {
	counts := make([]int, 2)
	for i, state := range []string{"open", "closed"} {
		if err := c.wait(ctx); err != nil {
			return 0, 0, err
		}

		q := fmt.Sprintf("repo:%s/%s type:issue state:%s", owner, name, state)
		res, resp, err := c.gh.Search.Issues(ctx, q, &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}})
		if err != nil {
			return 0, 0, fmt.Errorf("error searching %s issues: %w", state, err)
		}
		checkRateLimit(ctx, resp)
		counts[i] = res.GetTotal()
	}
	return counts[0], counts[1], nil
}

// pageCount derives a total from a per_page=1 listing.
func pageCount(n int, resp *github.Response) int {
	if resp != nil && resp.LastPage > 0 {
		return resp.LastPage
	}
	return n
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// Get fetches and enriches a single repository by identifier.
func (c *Client) Get(ctx context.Context, identifier string) (*data.Repo, error) {
	owner, name, ok := strings.Cut(identifier, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid identifier %q, expected org/name", identifier)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	r, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isNotFound(resp) {
			return nil, fmt.Errorf("%s: %w", identifier, ErrNotFound)
		}
		return nil, fmt.Errorf("error getting repo %s: %w", identifier, err)
	}
	checkRateLimit(ctx, resp)

	return c.Enrich(ctx, r)
}
