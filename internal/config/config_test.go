package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harbor.toml")
	content := `
theme = "nord"
enable_server_management = false

[[servers]]
name = "Community"
url = "https://chat.example.com"

[[servers]]
name = "Work"
url = "https://work.example.com/chat"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, "nord", cfg.Theme)
	assert.False(t, cfg.EnableServerManagement)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "Community", cfg.Servers[0].Name)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.toml"), cfg))
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "harbor.toml")

	cfg := DefaultConfig()
	cfg.Theme = "gruvbox"
	cfg.Servers = []PredefinedServer{{Name: "Pinned", URL: "https://pinned.example.com"}}
	require.NoError(t, Save(path, cfg))

	loaded := DefaultConfig()
	require.NoError(t, Load(path, loaded))
	assert.Equal(t, "gruvbox", loaded.Theme)
	require.Len(t, loaded.Servers, 1)
	assert.Equal(t, "Pinned", loaded.Servers[0].Name)
}

func TestPredefinedServers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Servers = []PredefinedServer{
		{Name: "Community", URL: "https://chat.example.com"},
	}

	srvs, err := cfg.PredefinedServers()
	require.NoError(t, err)
	require.Len(t, srvs, 1)
	assert.True(t, srvs[0].IsPredefined)
	assert.Equal(t, "https://chat.example.com/", srvs[0].URL.String())

	cfg.Servers = append(cfg.Servers, PredefinedServer{Name: "Broken", URL: "not a url"})
	_, err = cfg.PredefinedServers()
	assert.Error(t, err)
}
