package probe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]string // substring of the command line -> output
	out   string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name: name, args: args})

	line := name + " " + strings.Join(args, " ")
	for k, out := range f.fail {
		if strings.Contains(line, k) {
			return []byte(out), errors.New("exit status 1")
		}
	}
	return []byte(f.out), nil
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

func newProber(r Runner, installer string) *Prober {
	return New(config.Probe{Python: "py", Installer: installer, Timeout: time.Minute},
		WithRunner(r), WithClock(stepClock(500*time.Millisecond)))
}

func TestProbe_Pass(t *testing.T) {
	r := &fakeRunner{out: "noise\n2.16.1\n"}
	p := newProber(r, config.InstallerPip)

	res := p.Probe(context.Background(), "dash", "dash")
	assert.True(t, res.Passed)
	require.NotNil(t, res.Latency)
	assert.InDelta(t, 0.5, *res.Latency, 1e-9)
	assert.Equal(t, "2.16.1", res.Version)
	assert.Empty(t, res.Error)

	require.Len(t, r.calls, 2)
	assert.Equal(t, "py", r.calls[0].name)
	assert.Equal(t, []string{"-m", "pip", "install", "-q", "dash"}, r.calls[0].args)
	assert.Equal(t, "-c", r.calls[1].args[0])
	assert.Contains(t, r.calls[1].args[1], `import_module("dash")`)
}

func TestProbe_InstallFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{"install": "ERROR: no matching distribution"}}
	p := newProber(r, config.InstallerPip)

	res := p.Probe(context.Background(), "nope", "")
	assert.False(t, res.Passed)
	assert.Nil(t, res.Latency, "smoke test never ran")
	assert.Equal(t, "nope", res.Module)
	assert.Contains(t, res.Error, "no matching distribution")
	assert.Len(t, r.calls, 1, "never retried")
}

func TestProbe_ImportFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{"import_module": "ModuleNotFoundError: No module named 'Bio'"}}
	p := newProber(r, config.InstallerNone)

	res := p.Probe(context.Background(), "biopython", "Bio")
	assert.False(t, res.Passed)
	require.NotNil(t, res.Latency)
	assert.Contains(t, res.Error, "ModuleNotFoundError")
	assert.Len(t, r.calls, 1, "no install step")
}

func TestInstall_Conda(t *testing.T) {
	r := &fakeRunner{}
	p := newProber(r, config.InstallerConda)

	require.NoError(t, p.Install(context.Background(), "rdkit"))
	require.Len(t, r.calls, 1)
	assert.Equal(t, "conda", r.calls[0].name)
	assert.Equal(t, []string{"install", "-y", "-q", "rdkit"}, r.calls[0].args)

	assert.Error(t, p.Install(context.Background(), ""))
}

func TestCheckImport(t *testing.T) {
	r := &fakeRunner{out: "1.0\n", fail: map[string]string{`"missing"`: "boom"}}
	p := newProber(r, config.InstallerNone)

	assert.NoError(t, p.CheckImport(context.Background(), "dash"))
	assert.Error(t, p.CheckImport(context.Background(), "missing"))
	assert.Error(t, p.CheckImport(context.Background(), ""))
}

type mapNamer map[string]string

func (m mapNamer) ImportName(pkg string) string { return m[pkg] }

func TestProbeAll(t *testing.T) {
	r := &fakeRunner{out: "1.0\n", fail: map[string]string{`"broken"`: "ImportError"}}
	p := newProber(r, config.InstallerNone)

	tools := []resolve.ToolRecord{
		{Identifier: "plotly/dash", Resolution: resolve.OK("dash")},
		{Identifier: "hail-is/hail", Resolution: resolve.Skipped("requires JVM")},
		{Identifier: "x/unverified", Resolution: resolve.Unknown("unverified")},
		{Identifier: "biopython/biopython", Resolution: resolve.OK("biopython")},
		{Identifier: "y/broken", Resolution: resolve.OK("broken")},
	}
	names := mapNamer{"dash": "dash", "biopython": "Bio", "broken": "broken"}

	list, err := p.ProbeAll(context.Background(), tools, names, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "plotly/dash", list[0].Identifier)
	assert.True(t, list[0].Passed)
	assert.Equal(t, "biopython/biopython", list[1].Identifier)
	assert.Equal(t, "Bio", list[1].Module)
	assert.True(t, list[1].Passed)
	assert.Equal(t, "y/broken", list[2].Identifier)
	assert.False(t, list[2].Passed)
}

func TestProbeAll_Canceled(t *testing.T) {
	r := &fakeRunner{}
	p := newProber(r, config.InstallerNone)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tools := []resolve.ToolRecord{{Identifier: "plotly/dash", Resolution: resolve.OK("dash")}}
	list, err := p.ProbeAll(ctx, tools, nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, list)
	assert.Empty(t, r.calls)
}

// cancelRunner cancels the run when a command line contains block and then
// waits for the context like a long install would.
type cancelRunner struct {
	fakeRunner
	block  string
	cancel context.CancelFunc
}

func (c *cancelRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if strings.Contains(strings.Join(args, " "), c.block) {
		c.cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return c.fakeRunner.Run(ctx, name, args...)
}

func TestProbeAll_InterruptedProbeDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &cancelRunner{fakeRunner: fakeRunner{out: "1.0\n"}, block: "biopython", cancel: cancel}
	p := newProber(r, config.InstallerPip)

	tools := []resolve.ToolRecord{
		{Identifier: "plotly/dash", Resolution: resolve.OK("dash")},
		{Identifier: "biopython/biopython", Resolution: resolve.OK("biopython")},
		{Identifier: "y/later", Resolution: resolve.OK("later")},
	}
	list, err := p.ProbeAll(ctx, tools, nil, 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, list, 1, "only the probe that finished before the cancel")
	assert.Equal(t, "plotly/dash", list[0].Identifier)
	assert.True(t, list[0].Passed)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "a b c", tail([]byte(" a\n b\tc ")))
	long := strings.Repeat("x", maxOutput+10)
	got := tail([]byte(long))
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.Len(t, got, maxOutput+3)
}
