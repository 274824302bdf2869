package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2*time.Second, cfg.Defaults.Interval)
	assert.Equal(t, 10*time.Second, cfg.Defaults.CommandTimeout)
	assert.Equal(t, 10*time.Second, cfg.Defaults.ConnectTimeout)
	assert.Equal(t, TransportSSH, cfg.Defaults.Transport)
	assert.Empty(t, cfg.Hosts)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	content := `
defaults:
  interval: 5s
  command_timeout: 15s
hosts:
  - name: web-01
    address: 10.0.0.5
    user: deploy
    auth: key
    key_file: ~/.ssh/id_ed25519
  - name: win-01
    address: 10.0.0.9
    port: 5986
    user: Administrator
    transport: winrm
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Explicit values override, untouched ones keep defaults.
	assert.Equal(t, 5*time.Second, cfg.Defaults.Interval)
	assert.Equal(t, 15*time.Second, cfg.Defaults.CommandTimeout)
	assert.Equal(t, 10*time.Second, cfg.Defaults.ConnectTimeout)

	require.Len(t, cfg.Hosts, 2)

	web, ok := cfg.Host("web-01")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", web.Address)
	assert.Equal(t, "deploy", web.User)
	assert.Equal(t, AuthKey, web.Auth)
	// Tilde in key_file expands at load time.
	assert.True(t, strings.HasSuffix(web.KeyFile, filepath.Join(".ssh", "id_ed25519")))
	assert.NotContains(t, web.KeyFile, "~")

	win, ok := cfg.Host("win-01")
	require.True(t, ok)
	assert.Equal(t, 5986, win.Port)
	assert.Equal(t, TransportWinRM, win.Transport)

	_, ok = cfg.Host("db-01")
	assert.False(t, ok)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config file not found")
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("hosts: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidHost(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	content := `
hosts:
  - name: bad host name
    address: 10.0.0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad host name")
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("defaults:\n  interval: 2s\n"), 0o644))

	t.Setenv("VIGIL_INTERVAL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Defaults.Interval)
}

func TestFind(t *testing.T) {
	t.Run("explicit path exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("hosts: []\n"), 0o644))

		found, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, found)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		// Point cwd and the config dir somewhere empty.
		dir := t.TempDir()
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { _ = os.Chdir(wd) })
		t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
		t.Setenv("HOME", dir)

		found, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Defaults.Interval)
	assert.Empty(t, cfg.Hosts)
}

func TestHostString(t *testing.T) {
	assert.Equal(t, "10.0.0.5", Host{Address: "10.0.0.5"}.String())
	assert.Equal(t, "deploy@10.0.0.5", Host{Address: "10.0.0.5", User: "deploy"}.String())
	assert.Equal(t, "deploy@10.0.0.5:2222", Host{Address: "10.0.0.5", User: "deploy", Port: 2222}.String())
}
