package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AUTOSKIP_STORE_DIR",
		"AUTOSKIP_PLAYER",
		"SPOTIFY_CLIENT_ID",
		"SPOTIFY_CLIENT_SECRET",
		"SPOTIFY_REFRESH_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autoskip.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDir(), cfg.Store.Dir)
	assert.Equal(t, uint(3), cfg.Store.ReadAttempts)
	assert.Equal(t, time.Second, cfg.ReadRetryInterval())
	assert.Equal(t, BackendMPRIS, cfg.Player.Backend)
	assert.Equal(t, time.Second, cfg.ConnectRetryInterval())
	assert.Equal(t, "autoskip", cfg.Notifications.AppName)
	assert.Equal(t, 3000, cfg.Notifications.TimeoutMs)

	mpris, err := cfg.MPRIS()
	require.NoError(t, err)
	assert.Equal(t, "org.mpris.MediaPlayer2.spotify", mpris.BusName)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
store:
  dir: /tmp/autoskip-test
  read_attempts: 5
  read_retry_interval_ms: 250
player:
  backend: mpris
  connect_retry_interval_ms: 500
  settings:
    bus_name: org.mpris.MediaPlayer2.vlc
notifications:
  app_name: skipper
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/autoskip-test", cfg.Store.Dir)
	assert.Equal(t, "/tmp/autoskip-test/artists.json", cfg.ArtistsPath())
	assert.Equal(t, "/tmp/autoskip-test/settings.json", cfg.SettingsPath())
	assert.Equal(t, uint(5), cfg.Store.ReadAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.ReadRetryInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectRetryInterval())
	assert.Equal(t, "skipper", cfg.Notifications.AppName)

	mpris, err := cfg.MPRIS()
	require.NoError(t, err)
	assert.Equal(t, "org.mpris.MediaPlayer2.vlc", mpris.BusName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOSKIP_STORE_DIR", "/from/env")

	path := writeConfig(t, "store:\n  dir: /from/file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Store.Dir)
}

func TestLoad_SpotifyBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "token")

	path := writeConfig(t, `
player:
  backend: spotify
  settings:
    poll_interval_ms: "1500"
    market: JP
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSpotify, cfg.Player.Backend)
	assert.Equal(t, "id", cfg.Spotify.ClientID)

	sp, err := cfg.SpotifyPlayer()
	require.NoError(t, err)
	assert.Equal(t, 1500, sp.PollIntervalMs)
	assert.Equal(t, "JP", sp.Market)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "unknown backend",
			content: "player:\n  backend: winamp\n",
			errMsg:  "Backend",
		},
		{
			name:    "too many read attempts",
			content: "store:\n  read_attempts: 50\n",
			errMsg:  "ReadAttempts",
		},
		{
			name:    "spotify without credentials",
			content: "player:\n  backend: spotify\n",
			errMsg:  "refresh_token",
		},
		{
			name:    "spotify poll interval too short",
			content: "player:\n  backend: spotify\n  settings:\n    poll_interval_ms: 10\n",
			errMsg:  "PollIntervalMs",
		},
		{
			name:    "malformed yaml",
			content: "store: [\n",
			errMsg:  "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDefaultDir_IgnoresXDGConfigHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))

	assert.Equal(t, filepath.Join(home, ".config", "autoskip"), DefaultDir())
	assert.Equal(t, filepath.Join(home, ".config", "autoskip", "autoskip.yaml"), DefaultPath())
}
