package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("scirank"),
		postgres.WithUsername("scirank"),
		postgres.WithPassword("scirank"),
		postgres.BasicWaitStrategies(),
	)
	if ctr != nil {
		t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })
	}
	if err != nil {
		t.Skipf("container provider unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.Equal(t, DialectPostgres, DialectOf(dsn))

	require.NoError(t, Init(dsn))
	require.NoError(t, Init(dsn), "idempotent")

	s, err := GetDB(dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, SaveRepos(s, testRepos()))
	latency := 1.5
	require.NoError(t, SaveProbes(s, []*Probe{{Identifier: "plotly/dash", Package: "dash", Module: "dash", Passed: true, Latency: &latency}}))

	repos, err := GetRepos(s, nil)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "biopython/biopython", repos[0].Identifier)

	id := "plotly/dash"
	probes, err := GetProbes(s, &id)
	require.NoError(t, err)
	require.Len(t, probes, 1)
	require.NotNil(t, probes[0].Latency)
	assert.InDelta(t, 1.5, *probes[0].Latency, 1e-9)

	require.NoError(t, Reset(s))
	state, err := GetState(s)
	require.NoError(t, err)
	assert.Zero(t, state["repo"])
}
