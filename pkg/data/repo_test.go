package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepos() []*Repo {
	return []*Repo{
		{
			Identifier:      "plotly/dash",
			Domain:          "other",
			Description:     "Data apps",
			Topics:          []string{"dashboard", "python"},
			Language:        "Python",
			Stars:           21000,
			Forks:           2000,
			Contributors:    150,
			CommitsWindow:   120,
			OpenIssues:      400,
			ClosedIssues:    1200,
			ReadmeLength:    4200,
			ReadmeSections:  9,
			ReadmeInstall:   true,
			HasCI:           true,
			HasTests:        true,
			PushedAt:        "2025-06-01T00:00:00Z",
			DaysSinceUpdate: 3,
		},
		{
			Identifier:      "biopython/biopython",
			Domain:          "bio",
			ReadmeCitation:  true,
			DaysSinceUpdate: -1,
		},
	}
}

func TestSaveAndGetRepos(t *testing.T) {
	s := setupTestDB(t)
	require.NoError(t, SaveRepos(s, testRepos()))

	list, err := GetRepos(s, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// ordered by identifier
	assert.Equal(t, "biopython/biopython", list[0].Identifier)
	assert.True(t, list[0].ReadmeCitation)
	assert.Empty(t, list[0].Topics)
	assert.Equal(t, -1, list[0].DaysSinceUpdate)

	d := list[1]
	assert.Equal(t, "plotly/dash", d.Identifier)
	assert.Equal(t, []string{"dashboard", "python"}, d.Topics)
	assert.Equal(t, 21000, d.Stars)
	assert.Equal(t, 120, d.CommitsWindow)
	assert.True(t, d.ReadmeInstall)
	assert.False(t, d.ReadmeCitation)
	assert.True(t, d.HasCI)
	assert.True(t, d.HasTests)
	assert.False(t, d.Archived)
	assert.NotEmpty(t, d.UpdatedAt)
	assert.Nil(t, d.Composite)
}

func TestSaveRepos_Upsert(t *testing.T) {
	s := setupTestDB(t)
	list := testRepos()
	require.NoError(t, SaveRepos(s, list))

	list[1].Stars = 4000
	require.NoError(t, SaveRepos(s, list[1:]))

	id := "biopython/biopython"
	got, err := GetRepos(s, &id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4000, got[0].Stars)
}

func TestSaveRepos_Invalid(t *testing.T) {
	s := setupTestDB(t)
	assert.NoError(t, SaveRepos(s, nil))
	assert.Error(t, SaveRepos(s, []*Repo{{Identifier: "a/b"}, {}}))

	list, err := GetRepos(s, nil)
	require.NoError(t, err)
	assert.Empty(t, list, "transaction rolled back")
}

func TestRepoDays(t *testing.T) {
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

	r := &Repo{PushedAt: "2025-06-01T00:00:00Z", DaysSinceUpdate: 99}
	assert.Equal(t, 10, r.Days(now))

	r = &Repo{PushedAt: "not a date", DaysSinceUpdate: 7}
	assert.Equal(t, 7, r.Days(now))

	r = &Repo{DaysSinceUpdate: -5}
	assert.Equal(t, -1, r.Days(now))

	r = &Repo{PushedAt: "2030-01-01T00:00:00Z"}
	assert.Equal(t, 0, r.Days(now))
}
