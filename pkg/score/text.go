package score

import (
	"regexp"
	"strings"

	"github.com/mchmarny/scirank/pkg/resolve"
)

const (
	readmeLengthCeil   = 5000
	readmeSectionsCeil = 10
)

var (
	headingRegEx = regexp.MustCompile(`(?m)^#+`)
	installRegEx = regexp.MustCompile(`(pip|conda)\s+install|requirements\.txt`)

	// order matters, first match wins
	domainKeywords = []struct {
		domain   resolve.Domain
		keywords []string
	}{
		{resolve.DomainBio, []string{"protein", "genome", "rna", "dna", "sequence", "bio"}},
		{resolve.DomainChem, []string{"molecule", "chem", "drug", "compound", "binding"}},
		{resolve.DomainML, []string{"deep", "model", "ai", "ml", "graph", "transformer"}},
	}
)

// Readme captures documentation completeness signals.
type Readme struct {
	Length   int
	Sections int
	Install  bool // mentions how to install
	Citation bool // mentions how to cite
}

// AnalyzeReadme extracts Readme signals from markdown text.
func AnalyzeReadme(text string) Readme {
	lower := strings.ToLower(text)
	return Readme{
		Length:   len(text),
		Sections: len(headingRegEx.FindAllStringIndex(text, -1)),
		Install:  installRegEx.MatchString(lower),
		Citation: strings.Contains(lower, "citation") || strings.Contains(lower, "doi"),
	}
}

// Score maps the README signals into [0, 1].
func (r Readme) Score() float64 {
	install, citation := 0.3, 0.2
	if r.Install {
		install = 1
	}
	if r.Citation {
		citation = 1
	}
	if r.Length == 0 {
		return 0
	}
	total := 0.4*clampedRatio(float64(r.Length), readmeLengthCeil) +
		0.3*clampedRatio(float64(r.Sections), readmeSectionsCeil) +
		0.2*install +
		0.1*citation
	return clamp01(total)
}

// DetectDomain classifies free text (description, topics, README head).
func DetectDomain(text string) resolve.Domain {
	lower := strings.ToLower(text)
	for _, d := range domainKeywords {
		for _, k := range d.keywords {
			if strings.Contains(lower, k) {
				return d.domain
			}
		}
	}
	return resolve.DomainOther
}
