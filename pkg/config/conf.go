package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dirMode  = 0700
	fileMode = 0600

	FileName = "config.yaml"

	InstallerPip   = "pip"
	InstallerConda = "conda"
	InstallerNone  = "none"

	DefaultPyPIURL = "https://pypi.org/simple/"
)

// Config is the scoring, resolution and discovery policy for one run.
type Config struct {
	// Blend weighs composite_v2 against bench_score in the final score.
	Blend Blend `yaml:"blend"`

	// Bench controls how pass/fail and latency become bench_score.
	Bench Bench `yaml:"bench"`

	// Weights are the composite_v2 sub-signal weights.
	Weights Weights `yaml:"weights"`

	// Domains multiplies composite_v2 per domain tag.
	Domains map[string]float64 `yaml:"domains"`

	// Overrides maps a repository identifier to an explicit package name.
	Overrides map[string]string `yaml:"overrides"`

	// Skip maps a repository identifier to the reason it is not supported.
	Skip map[string]string `yaml:"skip"`

	// Imports maps a package name to the module imported in the smoke test.
	Imports map[string]string `yaml:"imports"`

	Probe     Probe     `yaml:"probe"`
	Index     Index     `yaml:"index"`
	Discovery Discovery `yaml:"discovery"`
}

type Blend struct {
	Repo  float64 `yaml:"repo"`
	Bench float64 `yaml:"bench"`
}

type Bench struct {
	Pass  float64 `yaml:"pass"`
	Speed float64 `yaml:"speed"`

	// ReferenceLatency is the smoke-test duration that earns full speed credit.
	ReferenceLatency time.Duration `yaml:"reference_latency"`
}

type Weights struct {
	Stars        float64 `yaml:"stars"`
	Forks        float64 `yaml:"forks"`
	Commits      float64 `yaml:"commits"`
	Contributors float64 `yaml:"contributors"`
	Issues       float64 `yaml:"issues"`
	Recency      float64 `yaml:"recency"`
	Readme       float64 `yaml:"readme"`
	CITests      float64 `yaml:"ci_tests"`
}

type Probe struct {
	Python    string        `yaml:"python"`
	Installer string        `yaml:"installer"`
	Timeout   time.Duration `yaml:"timeout"`
	Parallel  int           `yaml:"parallel"`
}

type Index struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type Discovery struct {
	Topics            []string `yaml:"topics"`
	Queries           []string `yaml:"queries"`
	Languages         []string `yaml:"languages"`
	Orgs              []string `yaml:"orgs"`
	MinStars          int      `yaml:"min_stars"`
	PushedWithinDays  int      `yaml:"pushed_within_days"`
	CommitWindowDays  int      `yaml:"commit_window_days"`
	IncludeArchived   bool     `yaml:"include_archived"`
	MaxPages          int      `yaml:"max_pages"`
	PerPage           int      `yaml:"per_page"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

// Default returns the documented default policy.
func Default() *Config {
	return &Config{
		Blend: Blend{Repo: 0.7, Bench: 0.3},
		Bench: Bench{Pass: 0.7, Speed: 0.3, ReferenceLatency: time.Second},
		Weights: Weights{
			Stars:        0.20,
			Commits:      0.15,
			Contributors: 0.15,
			Issues:       0.10,
			Recency:      0.10,
			Readme:       0.15,
			CITests:      0.15,
		},
		Domains: map[string]float64{
			"bio":   1.0,
			"chem":  0.95,
			"ml":    1.05,
			"other": 1.0,
		},
		Overrides: map[string]string{},
		Skip:      map[string]string{},
		Imports: map[string]string{
			"biopython":    "Bio",
			"scikit-bio":   "skbio",
			"mdanalysis":   "MDAnalysis",
			"scikit-learn": "sklearn",
		},
		Probe: Probe{
			Python:    "python3",
			Installer: InstallerPip,
			Timeout:   5 * time.Minute,
			Parallel:  1,
		},
		Index: Index{Enabled: true, URL: DefaultPyPIURL},
		Discovery: Discovery{
			Topics:            []string{"bioinformatics", "cheminformatics", "computational-chemistry", "genomics"},
			Languages:         []string{"python"},
			MinStars:          50,
			PushedWithinDays:  365,
			CommitWindowDays:  180,
			MaxPages:          2,
			PerPage:           50,
			RequestsPerSecond: 1,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path when it exists, otherwise returns the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes c as YAML into dir.
func Save(dir string, c *Config) error {
	if dir == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// scores stay in [0, 1] only when blended weights sum to at most one
const maxWeightSum = 1 + 1e-9

// Validate checks weights and enumerations.
func (c *Config) Validate() error {
	if c.Blend.Repo < 0 || c.Blend.Bench < 0 || c.Blend.Repo+c.Blend.Bench <= 0 {
		return errors.New("blend weights must be non-negative and not both zero")
	}
	if c.Blend.Repo+c.Blend.Bench > maxWeightSum {
		return fmt.Errorf("blend weights sum to %g, must not exceed 1", c.Blend.Repo+c.Blend.Bench)
	}
	if c.Bench.Pass < 0 || c.Bench.Speed < 0 {
		return errors.New("bench weights must be non-negative")
	}
	if c.Bench.Pass+c.Bench.Speed > maxWeightSum {
		return fmt.Errorf("bench pass and speed weights sum to %g, must not exceed 1", c.Bench.Pass+c.Bench.Speed)
	}
	if c.Bench.ReferenceLatency <= 0 {
		return errors.New("bench.reference_latency must be positive")
	}

	w := c.Weights
	for name, v := range map[string]float64{
		"stars": w.Stars, "forks": w.Forks, "commits": w.Commits,
		"contributors": w.Contributors, "issues": w.Issues, "recency": w.Recency,
		"readme": w.Readme, "ci_tests": w.CITests,
	} {
		if v < 0 {
			return fmt.Errorf("weights.%s must be non-negative", name)
		}
	}
	if w.Total() <= 0 {
		return errors.New("at least one composite weight must be positive")
	}

	for d, v := range c.Domains {
		if v < 0 {
			return fmt.Errorf("domains.%s must be non-negative", d)
		}
	}

	for id, reason := range c.Skip {
		if strings.TrimSpace(reason) == "" {
			return fmt.Errorf("skip.%s requires a reason", id)
		}
	}

	switch c.Probe.Installer {
	case InstallerPip, InstallerConda, InstallerNone:
	default:
		return fmt.Errorf("unknown probe.installer %q", c.Probe.Installer)
	}
	if c.Probe.Timeout <= 0 {
		return errors.New("probe.timeout must be positive")
	}
	if c.Probe.Parallel < 1 {
		return errors.New("probe.parallel must be at least 1")
	}
	if c.Index.Enabled && c.Index.URL == "" {
		return errors.New("index.url is required when the index is enabled")
	}
	return nil
}

// Total returns the sum of all composite weights.
func (w Weights) Total() float64 {
	return w.Stars + w.Forks + w.Commits + w.Contributors + w.Issues + w.Recency + w.Readme + w.CITests
}

// GetOrCreateHomeDir returns the app directory under the user home,
// creating it when missing. The created flag reports whether it was made.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("getting user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("creating dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
