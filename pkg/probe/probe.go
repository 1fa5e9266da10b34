// Package probe installs Python packages and smoke tests their import.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/resolve"
	"golang.org/x/sync/errgroup"
)

const smokeScript = "import importlib; m = importlib.import_module(%q); print(getattr(m, '__version__', 'unknown'))"

var errNoPackage = errors.New("package name is required")

// Result is the outcome of one probe. Latency is the wall-clock time of the
// import smoke test in seconds and is nil when the test never ran.
type Result struct {
	Identifier string   `json:"identifier" yaml:"identifier"`
	Package    string   `json:"package" yaml:"package"`
	Module     string   `json:"module" yaml:"module"`
	Passed     bool     `json:"passed" yaml:"passed"`
	Latency    *float64 `json:"latency,omitempty" yaml:"latency,omitempty"`
	Version    string   `json:"version,omitempty" yaml:"version,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Prober runs the install and import steps. It never retries.
type Prober struct {
	python    string
	installer string
	timeout   time.Duration
	runner    Runner
	now       func() time.Time
}

// Option configures a Prober.
type Option func(*Prober)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(p *Prober) {
		p.runner = r
	}
}

// WithClock replaces the clock used to time the smoke test.
func WithClock(now func() time.Time) Option {
	return func(p *Prober) {
		p.now = now
	}
}

// New creates a Prober from the probe configuration.
func New(cfg config.Probe, opts ...Option) *Prober {
	p := &Prober{
		python:    cfg.Python,
		installer: cfg.Installer,
		timeout:   cfg.Timeout,
		runner:    ExecRunner{},
		now:       time.Now,
	}
	if p.python == "" {
		p.python = "python3"
	}
	if p.installer == "" {
		p.installer = config.InstallerPip
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Prober) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Install installs pkg with the configured installer.
func (p *Prober) Install(ctx context.Context, pkg string) error {
	if pkg == "" {
		return errNoPackage
	}

	var name string
	var args []string
	switch p.installer {
	case config.InstallerNone:
		return nil
	case config.InstallerConda:
		name, args = "conda", []string{"install", "-y", "-q", pkg}
	default:
		name, args = p.python, []string{"-m", "pip", "install", "-q", pkg}
	}

	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	slog.Debug("installing", "package", pkg, "installer", p.installer)
	out, err := p.runner.Run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("install %s failed: %w: %s", pkg, err, tail(out))
	}
	return nil
}

// CheckImport imports module in a fresh interpreter.
func (p *Prober) CheckImport(ctx context.Context, module string) error {
	_, err := p.smoke(ctx, module)
	return err
}

func (p *Prober) smoke(ctx context.Context, module string) (string, error) {
	if module == "" {
		return "", errors.New("module name is required")
	}

	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	out, err := p.runner.Run(ctx, p.python, "-c", fmt.Sprintf(smokeScript, module))
	if err != nil {
		return "", fmt.Errorf("import %s failed: %w: %s", module, err, tail(out))
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// Probe installs pkg and times the import of module. Failures are reported
// in the Result, never as a Go error.
func (p *Prober) Probe(ctx context.Context, pkg, module string) Result {
	r := Result{Package: pkg, Module: module}
	if module == "" {
		r.Module = resolve.DefaultImportName(pkg)
	}

	if err := p.Install(ctx, pkg); err != nil {
		r.Error = err.Error()
		return r
	}

	start := p.now()
	version, err := p.smoke(ctx, r.Module)
	latency := p.now().Sub(start).Seconds()
	r.Latency = &latency

	if err != nil {
		r.Error = err.Error()
		return r
	}

	r.Passed = true
	r.Version = version
	return r
}

// ImportNamer maps a package name to its import module.
type ImportNamer interface {
	ImportName(pkg string) string
}

// ProbeAll probes every OK tool with at most parallel probes in flight.
// Results are in input order; tools that are not OK have no result.
// A canceled ctx stops probes that have not started, discards the ones in
// flight and returns the completed results along with the error.
func (p *Prober) ProbeAll(ctx context.Context, tools []resolve.ToolRecord, names ImportNamer, parallel int) ([]Result, error) {
	if parallel < 1 {
		parallel = 1
	}

	slots := make([]*Result, len(tools))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, t := range tools {
		pkg, ok := t.Resolution.Package()
		if !ok || t.Resolution.Status() != resolve.StatusOK {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			module := resolve.DefaultImportName(pkg)
			if names != nil {
				module = names.ImportName(pkg)
			}
			r := p.Probe(gctx, pkg, module)
			// an interrupted probe is not a failed probe
			if err := gctx.Err(); err != nil {
				slog.Warn("probe interrupted, result discarded", "tool", t.Identifier)
				return err
			}
			r.Identifier = t.Identifier
			slots[i] = &r

			slog.Info("probed", "tool", t.Identifier, "passed", r.Passed)
			return nil
		})
	}

	err := g.Wait()

	list := make([]Result, 0, len(tools))
	for _, r := range slots {
		if r != nil {
			list = append(list, *r)
		}
	}

	if err != nil {
		return list, fmt.Errorf("probing canceled after %d results: %w", len(list), err)
	}
	return list, nil
}
