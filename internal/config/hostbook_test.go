package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertHostCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	err := UpsertHost(path, Host{Name: "web-01", Address: "10.0.0.5", User: "deploy"})
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 1)
	assert.Equal(t, "web-01", cfg.Hosts[0].Name)
	assert.Equal(t, "deploy", cfg.Hosts[0].User)
}

func TestUpsertHostAppendsAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	require.NoError(t, UpsertHost(path, Host{Name: "web-01", Address: "10.0.0.5"}))
	require.NoError(t, UpsertHost(path, Host{Name: "db-01", Address: "10.0.0.6"}))

	// Same name replaces in place instead of duplicating.
	require.NoError(t, UpsertHost(path, Host{Name: "web-01", Address: "10.0.0.50", Port: 2222}))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, "10.0.0.50", cfg.Hosts[0].Address)
	assert.Equal(t, 2222, cfg.Hosts[0].Port)
	assert.Equal(t, "db-01", cfg.Hosts[1].Name)
}

func TestUpsertHostPreservesOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	seed := `# fleet config
defaults:
  interval: 5s
hosts:
  - name: web-01
    address: 10.0.0.5
`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	require.NoError(t, UpsertHost(path, Host{Name: "db-01", Address: "10.0.0.6"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// The comment and the defaults block survive the edit.
	assert.Contains(t, string(data), "# fleet config")
	assert.Contains(t, string(data), "interval: 5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 2)
}

func TestUpsertHostRejectsInvalidEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	err := UpsertHost(path, Host{Name: "bad name", Address: "10.0.0.5"})
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "invalid entry should not create the file")
}

func TestRemoveHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, UpsertHost(path, Host{Name: "web-01", Address: "10.0.0.5"}))
	require.NoError(t, UpsertHost(path, Host{Name: "db-01", Address: "10.0.0.6"}))

	removed, err := RemoveHost(path, "web-01")
	require.NoError(t, err)
	assert.True(t, removed)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 1)
	assert.Equal(t, "db-01", cfg.Hosts[0].Name)

	// Removing again is a clean no-op.
	removed, err = RemoveHost(path, "web-01")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveHostMissingFile(t *testing.T) {
	removed, err := RemoveHost(filepath.Join(t.TempDir(), FileName), "web-01")
	require.NoError(t, err)
	assert.False(t, removed)
}
