package discover

import (
	"fmt"
	"strings"
	"time"

	"github.com/mchmarny/scirank/pkg/config"
)

// broad science umbrella used when neither topics nor queries are set
var defaultTerms = []string{"chemistry", "bioinformatics", "genomics", "materials", "single-cell", "molecular"}

// BuildQueries returns one search query per (term, language) pair where a
// term is a topic qualifier or a free text query. Shared qualifiers (stars,
// archived, pushed) are appended to each.
func BuildQueries(cfg config.Discovery, now time.Time) []string {
	base := make([]string, 0)
	if cfg.MinStars > 0 {
		base = append(base, fmt.Sprintf("stars:>=%d", cfg.MinStars))
	}
	if !cfg.IncludeArchived {
		base = append(base, "archived:false")
	}
	if cfg.PushedWithinDays > 0 {
		since := now.AddDate(0, 0, -cfg.PushedWithinDays)
		base = append(base, "pushed:>="+since.Format("2006-01-02"))
	}

	terms := make([]string, 0, len(cfg.Topics)+len(cfg.Queries))
	for _, t := range dedup(cfg.Topics) {
		terms = append(terms, "topic:"+t)
	}
	terms = append(terms, dedup(cfg.Queries)...)
	if len(terms) == 0 && len(cfg.Orgs) == 0 {
		terms = defaultTerms
	}

	langs := dedup(cfg.Languages)
	if len(langs) == 0 {
		langs = []string{""}
	}

	list := make([]string, 0, len(terms)*len(langs))
	for _, term := range terms {
		for _, lang := range langs {
			parts := []string{term}
			if lang != "" {
				parts = append(parts, "language:"+lang)
			}
			parts = append(parts, base...)
			list = append(list, strings.Join(parts, " "))
		}
	}
	return list
}

// dedup trims and removes case-insensitive duplicates, keeping order.
func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		k := strings.ToLower(v)
		if v == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
