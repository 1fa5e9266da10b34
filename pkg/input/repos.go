package input

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/mchmarny/scirank/pkg/score"
)

// sentinel some exports use for "never updated"
const daysUnknown = 9999

var idColumns = []string{"repo", "identifier", "full_name"}

// LoadRepos reads repository metadata from CSV. Rows that cannot be parsed
// are returned as Flagged; only an unreadable file is an error.
func LoadRepos(r io.Reader, source string) ([]*data.Repo, []Flagged, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}

	if !t.has(idColumns...) {
		return nil, nil, fmt.Errorf("%s: missing identifier column (one of %s)", source, strings.Join(idColumns, ", "))
	}

	list := make([]*data.Repo, 0)
	flagged := make([]Flagged, 0)
	seen := make(map[string]int)

	for line := 2; ; line++ {
		rec, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			flagged = append(flagged, Flagged{Source: source, Line: line, Reason: err.Error()})
			continue
		}

		repo, err := t.repo(rec)
		if err != nil {
			flagged = append(flagged, Flagged{Source: source, Line: line, Identifier: t.get(rec, idColumns...), Reason: err.Error()})
			continue
		}

		k := strings.ToLower(repo.Identifier)
		if first, ok := seen[k]; ok {
			flagged = append(flagged, Flagged{Source: source, Line: line, Identifier: repo.Identifier,
				Reason: fmt.Sprintf("duplicate of line %d", first)})
			continue
		}
		seen[k] = line
		list = append(list, repo)
	}

	slog.Debug("loaded repos", "source", source, "rows", len(list), "flagged", len(flagged))
	return list, flagged, nil
}

func (t *table) repo(rec []string) (*data.Repo, error) {
	id := t.get(rec, idColumns...)
	if _, _, ok := resolve.SplitIdentifier(id); !ok {
		return nil, fmt.Errorf("invalid identifier %q, expected org/name", id)
	}

	r := &data.Repo{
		Identifier:  id,
		Description: t.get(rec, "description"),
		Topics:      splitList(t.get(rec, "topics")),
		Language:    t.get(rec, "language"),
		PushedAt:    t.get(rec, "pushed_at"),
	}

	if d := t.get(rec, "domain"); d != "" {
		r.Domain = string(resolve.ParseDomain(d))
	} else {
		r.Domain = string(score.DetectDomain(r.Description + " " + strings.Join(r.Topics, " ")))
	}

	ints := []struct {
		dst  *int
		cols []string
	}{
		{&r.Stars, []string{"stars", "stargazers_count"}},
		{&r.Forks, []string{"forks", "forks_count"}},
		{&r.Contributors, []string{"contributors"}},
		{&r.CommitsWindow, []string{"commits_window", "commits_90d"}},
		{&r.OpenIssues, []string{"open_issues", "open_issues_count"}},
		{&r.ClosedIssues, []string{"closed_issues"}},
		{&r.ReadmeLength, []string{"readme_length", "readme_len"}},
		{&r.ReadmeSections, []string{"readme_sections"}},
	}
	for _, f := range ints {
		v, err := parseInt(t.get(rec, f.cols...))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.cols[0], err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s: negative count %d", f.cols[0], v)
		}
		*f.dst = v
	}

	bools := []struct {
		dst  *bool
		cols []string
	}{
		{&r.ReadmeInstall, []string{"readme_install"}},
		{&r.ReadmeCitation, []string{"readme_citation"}},
		{&r.HasCI, []string{"has_ci"}},
		{&r.HasTests, []string{"has_tests"}},
		{&r.Archived, []string{"archived"}},
	}
	for _, f := range bools {
		v, err := parseBool(t.get(rec, f.cols...))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.cols[0], err)
		}
		*f.dst = v
	}

	r.DaysSinceUpdate = -1
	if v := t.get(rec, "days_since_last_update", "days_since_update"); v != "" {
		d, err := parseInt(v)
		if err != nil {
			return nil, fmt.Errorf("days_since_last_update: %w", err)
		}
		if d >= 0 && d < daysUnknown {
			r.DaysSinceUpdate = d
		}
	}

	c, err := parseOptionalFloat(t.get(rec, "composite_v2"))
	if err != nil {
		return nil, fmt.Errorf("composite_v2: %w", err)
	}
	if c != nil && (*c < 0 || *c > 1) {
		return nil, fmt.Errorf("composite_v2: %v outside [0, 1]", *c)
	}
	r.Composite = c

	return r, nil
}
