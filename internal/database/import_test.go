package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/agentdeck/internal/datamodel"
)

func TestImportTeam_FromConfig(t *testing.T) {
	m := newTestManager(t)

	cfg := &datamodel.ComponentConfig{Provider: "roundrobin", Label: "writers"}
	res := m.ImportTeam(context.Background(), cfg, "user-1", false)
	require.True(t, res.Status, res.Message)

	data := res.Data.(map[string]any)
	assert.NotZero(t, data["id"])
}

func TestImportTeam_FromFile(t *testing.T) {
	m := newTestManager(t)

	path := filepath.Join(t.TempDir(), "team.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"provider": "selector", "label": "planners"}`), 0o600))

	res := m.ImportTeam(context.Background(), path, "user-1", false)
	require.True(t, res.Status, res.Message)

	got := Get[datamodel.Team](context.Background(), m, map[string]any{"user_id": "user-1"}, OrderAsc)
	require.True(t, got.Status, got.Message)
	teams := got.Data.([]*datamodel.Team)
	require.Len(t, teams, 1)
	assert.Equal(t, "selector", teams[0].Component.Provider)
}

func TestImportTeam_UnsupportedSource(t *testing.T) {
	m := newTestManager(t)

	res := m.ImportTeam(context.Background(), 42, "user-1", false)
	assert.False(t, res.Status)
	assert.Contains(t, res.Message, "unsupported team source")
}

func TestImportTeam_CheckExistsShortCircuits(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	cfg := &datamodel.ComponentConfig{
		Provider: "roundrobin",
		Config:   map[string]any{"max_turns": float64(5)},
	}
	first := m.ImportTeam(ctx, cfg, "user-1", true)
	require.True(t, first.Status, first.Message)
	firstID := first.Data.(map[string]any)["id"]

	// Structurally identical config, freshly constructed.
	again := &datamodel.ComponentConfig{
		Provider: "roundrobin",
		Config:   map[string]any{"max_turns": float64(5)},
	}
	second := m.ImportTeam(ctx, again, "user-1", true)
	require.True(t, second.Status, second.Message)
	assert.Equal(t, "identical team configuration already exists", second.Message)
	assert.Equal(t, firstID, second.Data.(map[string]any)["id"])

	got := Get[datamodel.Team](ctx, m, map[string]any{"user_id": "user-1"}, OrderAsc)
	require.True(t, got.Status, got.Message)
	assert.Len(t, got.Data.([]*datamodel.Team), 1, "dedupe must not write a second row")
}

func TestImportTeam_CheckExistsScopedToOwner(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	cfg := &datamodel.ComponentConfig{Provider: "roundrobin"}
	require.True(t, m.ImportTeam(ctx, cfg, "user-1", true).Status)

	// Same structure under a different owner is a fresh team.
	res := m.ImportTeam(ctx, &datamodel.ComponentConfig{Provider: "roundrobin"}, "user-2", true)
	require.True(t, res.Status, res.Message)
	assert.NotEqual(t, "identical team configuration already exists", res.Message)
}

func TestImportTeamsFromDirectory_IsolatesFailures(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"),
		[]byte(`{"provider": "roundrobin"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"),
		[]byte(`{"provider":`), 0o600))

	res := m.ImportTeamsFromDirectory(context.Background(), dir, "user-1", false)
	require.True(t, res.Status, res.Message)
	assert.Equal(t, "directory import complete", res.Message)

	results := res.Data.([]ImportResult)
	require.Len(t, results, 2)

	succeeded := 0
	for _, item := range results {
		if item.Status {
			succeeded++
			require.NotNil(t, item.ID)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestImportTeamsFromDirectory_DedupesIdenticalConfigs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()

	for i := 0; i < 12; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("team-%02d.json", i)),
			[]byte(`{"provider": "roundrobin", "config": {"max_turns": 5}}`), 0o600))
	}

	res := m.ImportTeamsFromDirectory(ctx, dir, "user-1", true)
	require.True(t, res.Status, res.Message)

	results := res.Data.([]ImportResult)
	require.Len(t, results, 12)
	for _, item := range results {
		assert.True(t, item.Status, item.Message)
	}

	got := Get[datamodel.Team](ctx, m, map[string]any{"user_id": "user-1"}, OrderAsc)
	require.True(t, got.Status, got.Message)
	assert.Len(t, got.Data.([]*datamodel.Team), 1,
		"identical configs in one batch must collapse to a single row")
}

func TestImportTeamsFromDirectory_MissingDirectory(t *testing.T) {
	m := newTestManager(t)

	res := m.ImportTeamsFromDirectory(context.Background(), filepath.Join(t.TempDir(), "absent"), "user-1", false)
	assert.False(t, res.Status)
	assert.Nil(t, res.Data)
}
