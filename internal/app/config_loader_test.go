package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8080
download:
  dir: ` + filepath.Join(dir, "downloads") + `
  workers: 2
  file_ttl: 30m
engine:
  retries: 3
  user_agents:
    - agent-one
    - agent-two
history:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, filepath.Join(dir, "downloads"), config.Download.Dir)
	assert.Equal(t, 2, config.Download.Workers)
	assert.Equal(t, 30*time.Minute, config.Download.FileTTL)
	assert.Equal(t, 3, config.Engine.Retries)
	assert.Equal(t, 5, config.Engine.FragmentRetries)
	assert.Equal(t, []string{"agent-one", "agent-two"}, config.Engine.UserAgents)
	assert.False(t, config.History.Enabled)
}

func TestLoadConfig_ListsReplaceDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
engine:
  user_agents: [ua-a, ua-b]
  shortener_hosts: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"ua-a", "ua-b"}, config.Engine.UserAgents)
	assert.Empty(t, config.Engine.ShortenerHosts)

	// The rotation wraps after the configured list, not the default one
	rotator := NewUserAgentRotator(config.Engine.UserAgents)
	assert.Equal(t, 2, rotator.Len())
	assert.Equal(t, "ua-b", rotator.Next())
	assert.Equal(t, "ua-a", rotator.Next())
}

func TestLoadConfig_DownloadDirIsAbsolute(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  dir: ./relative-downloads\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(config.Download.Dir))
	assert.Equal(t, "relative-downloads", filepath.Base(config.Download.Dir))
	assert.Len(t, config.Engine.UserAgents, 4)
	assert.Equal(t, time.Hour, config.Download.FileTTL)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("MEDIAPROXY_SERVER_PORT", "9090")
	t.Setenv("MEDIAPROXY_DOWNLOAD_WORKERS", "8")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 8, config.Download.Workers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  workers: 0\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be at least 1")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "media"), expandPath("~/media"))

	t.Setenv("MEDIA_ROOT", "/srv/media")
	assert.Equal(t, "/srv/media/downloads", expandPath("$MEDIA_ROOT/downloads"))
	assert.Equal(t, "./downloads", expandPath("./downloads"))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	original, err := LoadConfig(writeMinimalConfig(t, dir))
	require.NoError(t, err)
	original.Server.Port = 7070

	require.NoError(t, SaveConfig(original, path))
	assert.FileExists(t, path)
}

func writeMinimalConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 5000\n"), 0644))
	return path
}
