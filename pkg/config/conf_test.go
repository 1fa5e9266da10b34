package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.InDelta(t, 0.7, c.Blend.Repo, 1e-9)
	assert.InDelta(t, 0.3, c.Blend.Bench, 1e-9)
	assert.InDelta(t, 0.7, c.Bench.Pass, 1e-9)
	assert.InDelta(t, 0.3, c.Bench.Speed, 1e-9)
	assert.InDelta(t, 1.0, c.Weights.Total(), 1e-9)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
blend:
  repo: 0.8
  bench: 0.2
bench:
  reference_latency: 2s
overrides:
  biopython/biopython: biopython
skip:
  hail-is/hail: requires JVM/Spark
probe:
  installer: conda
  parallel: 4
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, c.Blend.Repo, 1e-9)
	assert.Equal(t, 2*time.Second, c.Bench.ReferenceLatency)
	assert.InDelta(t, 0.7, c.Bench.Pass, 1e-9, "unset keys keep defaults")
	assert.Equal(t, "biopython", c.Overrides["biopython/biopython"])
	assert.Equal(t, "requires JVM/Spark", c.Skip["hail-is/hail"])
	assert.Equal(t, InstallerConda, c.Probe.Installer)
	assert.Equal(t, 4, c.Probe.Parallel)
	assert.Equal(t, "python3", c.Probe.Python)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "blend: [1,"},
		{"negative blend", "blend:\n  repo: -1\n"},
		{"zero blend", "blend:\n  repo: 0\n  bench: 0\n"},
		{"blend above one", "blend:\n  repo: 0.8\n  bench: 0.8\n"},
		{"bench weights above one", "bench:\n  pass: 0.9\n  speed: 0.3\n"},
		{"zero reference", "bench:\n  reference_latency: 0s\n"},
		{"negative weight", "weights:\n  stars: -0.1\n"},
		{"skip without reason", "skip:\n  org/tool: \"\"\n"},
		{"unknown installer", "probe:\n  installer: brew\n"},
		{"zero parallel", "probe:\n  parallel: 0\n"},
		{"index without url", "index:\n  enabled: true\n  url: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_PartialBlend(t *testing.T) {
	c, err := Load(writeConfig(t, "blend:\n  repo: 0.5\n  bench: 0.3\n"))
	require.NoError(t, err, "sums below one keep scores in range")
	assert.InDelta(t, 0.8, c.Blend.Repo+c.Blend.Bench, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	c, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c1 := Default()
	c1.Overrides["plotly/dash"] = "dash"
	c1.Probe.Parallel = 3

	require.NoError(t, Save(dir, c1))

	c2, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, c1.Overrides, c2.Overrides)
	assert.Equal(t, 3, c2.Probe.Parallel)

	assert.Error(t, Save("", c1))
	assert.Error(t, Save(dir, nil))
}

func TestGetOrCreateHomeDir_EmptyName(t *testing.T) {
	_, _, err := GetOrCreateHomeDir("")
	assert.Error(t, err)
}

func TestWatch_NotifiesOnWrite(t *testing.T) {
	path := writeConfig(t, "blend:\n  repo: 0.7\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, func(p string) {
			select {
			case changed <- p:
			default:
			}
		}, path)
	}()

	// give the watcher a moment to register
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("blend:\n  repo: 0.6\n"), 0600))

	select {
	case p := <-changed:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, p)
	case <-ctx.Done():
		t.Fatal("no change notification received")
	}

	cancel()
	assert.NoError(t, <-done)
}
