package score

import (
	"github.com/mchmarny/scirank/pkg/resolve"
)

const (
	// Ceilings at which a count signal earns full credit.
	starsCeil        = 10000
	forksCeil        = 2000
	contributorsCeil = 200
	commitsCeil      = 500

	recencyHalfLifeDays = 180.0
	defaultStaleDays    = 180
	neutralIssueRatio   = 0.5

	ciShare    = 0.4
	testsShare = 0.6

	// UnknownDays marks a missing days-since-update signal.
	UnknownDays = -1
)

// Weights are the relative weights of the composite_v2 sub-signals. They
// need not sum to 1, the score is divided by their total.
type Weights struct {
	Stars        float64
	Forks        float64
	Commits      float64
	Contributors float64
	Issues       float64
	Recency      float64
	Readme       float64
	CITests      float64
}

// DefaultWeights mirrors the documented default policy.
func DefaultWeights() Weights {
	return Weights{
		Stars:        0.20,
		Commits:      0.15,
		Contributors: 0.15,
		Issues:       0.10,
		Recency:      0.10,
		Readme:       0.15,
		CITests:      0.15,
	}
}

func (w Weights) total() float64 {
	return w.Stars + w.Forks + w.Commits + w.Contributors + w.Issues + w.Recency + w.Readme + w.CITests
}

// Signals holds the raw repository metadata behind composite_v2.
type Signals struct {
	Stars           int
	Forks           int
	Contributors    int
	CommitsWindow   int // commits in the configured look-back window
	OpenIssues      int
	ClosedIssues    int
	Readme          Readme
	HasCI           bool
	HasTests        bool
	DaysSinceUpdate int // UnknownDays when not available
	Domain          resolve.Domain
}

// Breakdown is the normalized value of every sub-signal, each in [0, 1].
type Breakdown struct {
	Stars        float64 `json:"stars" yaml:"stars"`
	Forks        float64 `json:"forks" yaml:"forks"`
	Commits      float64 `json:"commits" yaml:"commits"`
	Contributors float64 `json:"contributors" yaml:"contributors"`
	Issues       float64 `json:"issues" yaml:"issues"`
	Recency      float64 `json:"recency" yaml:"recency"`
	Readme       float64 `json:"readme" yaml:"readme"`
	CITests      float64 `json:"ci_tests" yaml:"ciTests"`
}

// Normalize maps each signal into [0, 1] independently of other records.
func Normalize(s Signals) Breakdown {
	b := Breakdown{
		Stars:        logCurve(float64(s.Stars), starsCeil),
		Forks:        logCurve(float64(s.Forks), forksCeil),
		Commits:      logCurve(float64(s.CommitsWindow), commitsCeil),
		Contributors: logCurve(float64(s.Contributors), contributorsCeil),
		Readme:       s.Readme.Score(),
	}

	b.Issues = neutralIssueRatio
	if total := s.OpenIssues + s.ClosedIssues; total > 0 {
		b.Issues = clampedRatio(float64(s.ClosedIssues), float64(total))
	}

	days := s.DaysSinceUpdate
	if days < 0 {
		days = defaultStaleDays
	}
	b.Recency = expDecay(float64(days), recencyHalfLifeDays)

	if s.HasCI {
		b.CITests += ciShare
	}
	if s.HasTests {
		b.CITests += testsShare
	}
	return b
}

// Composite returns composite_v2 in [0, 1]: the weighted mean of the
// normalized signals times the domain weight. domains may be nil; a domain
// without an entry weighs 1.
func Composite(s Signals, w Weights, domains map[resolve.Domain]float64) float64 {
	total := w.total()
	if total <= 0 {
		return 0
	}

	b := Normalize(s)
	sum := w.Stars*b.Stars +
		w.Forks*b.Forks +
		w.Commits*b.Commits +
		w.Contributors*b.Contributors +
		w.Issues*b.Issues +
		w.Recency*b.Recency +
		w.Readme*b.Readme +
		w.CITests*b.CITests

	dw := 1.0
	if v, ok := domains[s.Domain]; ok {
		dw = v
	}
	return clamp01(sum / total * dw)
}
