package input

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mchmarny/scirank/pkg/data"
)

var repoHeader = []string{
	"repo", "domain", "description", "topics", "language",
	"stars", "forks", "contributors", "commits_window", "open_issues", "closed_issues",
	"readme_length", "readme_sections", "readme_install", "readme_citation",
	"has_ci", "has_tests", "archived", "pushed_at", "days_since_last_update",
}

// WriteRepos writes repos as CSV that LoadRepos reads back.
func WriteRepos(w io.Writer, repos []*data.Repo) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(repoHeader); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for _, r := range repos {
		days := daysUnknown
		if r.DaysSinceUpdate >= 0 {
			days = r.DaysSinceUpdate
		}
		rec := []string{
			r.Identifier, r.Domain, r.Description, strings.Join(r.Topics, ";"), r.Language,
			strconv.Itoa(r.Stars), strconv.Itoa(r.Forks), strconv.Itoa(r.Contributors),
			strconv.Itoa(r.CommitsWindow), strconv.Itoa(r.OpenIssues), strconv.Itoa(r.ClosedIssues),
			strconv.Itoa(r.ReadmeLength), strconv.Itoa(r.ReadmeSections),
			strconv.FormatBool(r.ReadmeInstall), strconv.FormatBool(r.ReadmeCitation),
			strconv.FormatBool(r.HasCI), strconv.FormatBool(r.HasTests), strconv.FormatBool(r.Archived),
			r.PushedAt, strconv.Itoa(days),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("error writing %s: %w", r.Identifier, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}
	return nil
}

// WriteBench writes bench entries as the JSON array LoadBench reads back.
func WriteBench(w io.Writer, list []Bench) error {
	if list == nil {
		list = []Bench{}
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(list); err != nil {
		return fmt.Errorf("error encoding bench results: %w", err)
	}
	return nil
}
