package data

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	upsertRepoSQL = `INSERT INTO repo (identifier, domain, description, topics, language,
			stars, forks, contributors, commits_window, open_issues, closed_issues,
			readme_length, readme_sections, readme_install, readme_citation,
			has_ci, has_tests, archived, pushed_at, days_since_update, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identifier) DO UPDATE SET
			domain = excluded.domain,
			description = excluded.description,
			topics = excluded.topics,
			language = excluded.language,
			stars = excluded.stars,
			forks = excluded.forks,
			contributors = excluded.contributors,
			commits_window = excluded.commits_window,
			open_issues = excluded.open_issues,
			closed_issues = excluded.closed_issues,
			readme_length = excluded.readme_length,
			readme_sections = excluded.readme_sections,
			readme_install = excluded.readme_install,
			readme_citation = excluded.readme_citation,
			has_ci = excluded.has_ci,
			has_tests = excluded.has_tests,
			archived = excluded.archived,
			pushed_at = excluded.pushed_at,
			days_since_update = excluded.days_since_update,
			updated_at = excluded.updated_at
	`

	selectRepoSQL = `SELECT identifier, domain, description, topics, language,
			stars, forks, contributors, commits_window, open_issues, closed_issues,
			readme_length, readme_sections, readme_install, readme_citation,
			has_ci, has_tests, archived, pushed_at, days_since_update, updated_at
		FROM repo
		WHERE identifier = COALESCE(?, identifier)
		ORDER BY identifier
	`

	timeFormat = "2006-01-02T15:04:05Z"
)

// Repo is the raw metadata of one repository. It is the hand-off between
// discovery and scoring; scores are never stored with it.
type Repo struct {
	Identifier      string   `json:"identifier" yaml:"identifier"`
	Domain          string   `json:"domain" yaml:"domain"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Topics          []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	Language        string   `json:"language,omitempty" yaml:"language,omitempty"`
	Stars           int      `json:"stars" yaml:"stars"`
	Forks           int      `json:"forks" yaml:"forks"`
	Contributors    int      `json:"contributors" yaml:"contributors"`
	CommitsWindow   int      `json:"commits_window" yaml:"commitsWindow"`
	OpenIssues      int      `json:"open_issues" yaml:"openIssues"`
	ClosedIssues    int      `json:"closed_issues" yaml:"closedIssues"`
	ReadmeLength    int      `json:"readme_length" yaml:"readmeLength"`
	ReadmeSections  int      `json:"readme_sections" yaml:"readmeSections"`
	ReadmeInstall   bool     `json:"readme_install" yaml:"readmeInstall"`
	ReadmeCitation  bool     `json:"readme_citation" yaml:"readmeCitation"`
	HasCI           bool     `json:"has_ci" yaml:"hasCI"`
	HasTests        bool     `json:"has_tests" yaml:"hasTests"`
	Archived        bool     `json:"archived,omitempty" yaml:"archived,omitempty"`
	PushedAt        string   `json:"pushed_at,omitempty" yaml:"pushedAt,omitempty"`
	DaysSinceUpdate int      `json:"days_since_update" yaml:"daysSinceUpdate"`
	UpdatedAt       string   `json:"updated_at,omitempty" yaml:"updatedAt,omitempty"`

	// Composite is a precomputed composite_v2 supplied by an input file.
	Composite *float64 `json:"composite_v2,omitempty" yaml:"compositeV2,omitempty"`
}

// Days returns days since the last push relative to now. PushedAt wins over
// the stored count so the value does not go stale; -1 when unknown.
func (r *Repo) Days(now time.Time) int {
	if r.PushedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.PushedAt); err == nil {
			d := int(now.Sub(t).Hours() / 24)
			if d < 0 {
				d = 0
			}
			return d
		}
	}
	if r.DaysSinceUpdate < 0 {
		return -1
	}
	return r.DaysSinceUpdate
}

// SaveRepos upserts repos in a single transaction.
func SaveRepos(s *Store, list []*Repo) error {
	if s == nil || s.DB == nil {
		return errDBNotInitialized
	}

	if len(list) == 0 {
		return nil
	}

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(s.rebind(upsertRepoSQL))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare repo upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeFormat)
	for _, r := range list {
		if r == nil || r.Identifier == "" {
			_ = tx.Rollback()
			return errors.New("repo identifier is required")
		}

		if _, err := stmt.Exec(r.Identifier, r.Domain, r.Description, strings.Join(r.Topics, ","), r.Language,
			r.Stars, r.Forks, r.Contributors, r.CommitsWindow, r.OpenIssues, r.ClosedIssues,
			r.ReadmeLength, r.ReadmeSections, boolToInt(r.ReadmeInstall), boolToInt(r.ReadmeCitation),
			boolToInt(r.HasCI), boolToInt(r.HasTests), boolToInt(r.Archived), r.PushedAt, r.DaysSinceUpdate, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert repo %s: %w", r.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRepos returns stored repos ordered by identifier; nil identifier
// returns all of them.
func GetRepos(s *Store, identifier *string) ([]*Repo, error) {
	if s == nil || s.DB == nil {
		return nil, errDBNotInitialized
	}

	rows, err := s.Query(s.rebind(selectRepoSQL), identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to query repos: %w", err)
	}
	defer rows.Close()

	list := make([]*Repo, 0)
	for rows.Next() {
		r := &Repo{}
		var topics string
		var install, citation, ci, tests, archived int
		if err := rows.Scan(&r.Identifier, &r.Domain, &r.Description, &topics, &r.Language,
			&r.Stars, &r.Forks, &r.Contributors, &r.CommitsWindow, &r.OpenIssues, &r.ClosedIssues,
			&r.ReadmeLength, &r.ReadmeSections, &install, &citation,
			&ci, &tests, &archived, &r.PushedAt, &r.DaysSinceUpdate, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan repo row: %w", err)
		}
		if topics != "" {
			r.Topics = strings.Split(topics, ",")
		}
		r.ReadmeInstall = install == 1
		r.ReadmeCitation = citation == 1
		r.HasCI = ci == 1
		r.HasTests = tests == 1
		r.Archived = archived == 1
		list = append(list, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate repo rows: %w", err)
	}
	return list, nil
}
