package teamloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadOne_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "team.json",
		`{"provider": "roundrobin", "label": "writers", "config": {"max_turns": 5}}`)

	cfg, err := LoadOne(path)
	require.NoError(t, err)
	assert.Equal(t, "roundrobin", cfg.Provider)
	assert.Equal(t, "writers", cfg.Label)
	assert.EqualValues(t, 5, cfg.Config["max_turns"])
}

func TestLoadOne_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "team.yaml", `
provider: selector
label: planners
config:
  model: default
`)

	cfg, err := LoadOne(path)
	require.NoError(t, err)
	assert.Equal(t, "selector", cfg.Provider)
	assert.Equal(t, "default", cfg.Config["model"])
}

func TestLoadOne_Malformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.json", `{"provider":`)

	_, err := LoadOne(path)
	require.Error(t, err)
}

func TestLoadOne_MissingProvider(t *testing.T) {
	path := writeFile(t, t.TempDir(), "team.json", `{"label": "nameless"}`)

	_, err := LoadOne(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")
}

func TestLoadOne_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "team.toml", `provider = "x"`)

	_, err := LoadOne(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestLoadAllFromDirectory_IsolatesBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"provider": "roundrobin"}`)
	writeFile(t, dir, "b.yaml", `provider:`)
	writeFile(t, dir, "notes.txt", "not a team config")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))

	results, err := LoadAllFromDirectory(dir)
	require.NoError(t, err)
	require.Len(t, results, 2, "non-config files and subdirectories are skipped")

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "roundrobin", results[0].Config.Provider)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Config)
}

func TestLoadAllFromDirectory_MissingDir(t *testing.T) {
	_, err := LoadAllFromDirectory(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
