package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, "stridedash_session", cfg.Server.SessionCookie)

	assert.Equal(t, "https://www.strava.com/oauth/authorize", cfg.OAuth.AuthURL)
	assert.Equal(t, "https://www.strava.com/oauth/token", cfg.OAuth.TokenURL)
	assert.Contains(t, cfg.OAuth.Scopes, "activity:read_all")
	assert.Equal(t, 10*time.Second, cfg.OAuth.Timeout)
	assert.Equal(t, time.Minute, cfg.OAuth.RefreshMargin)
	assert.False(t, cfg.OAuth.Keychain)

	assert.Equal(t, "https://www.strava.com/api/v3", cfg.Feed.BaseURL)
	assert.Equal(t, 100, cfg.Feed.PerPage)
	assert.Equal(t, 15*time.Second, cfg.Feed.Timeout)

	assert.Equal(t, "https://wttr.in", cfg.Weather.BaseURL)
}

func TestLoadDerivesRedirectURI(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8501/auth/callback", cfg.OAuth.RedirectURI)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STRIDEDASH_OAUTH_CLIENT_ID", "env-client")
	t.Setenv("STRIDEDASH_OAUTH_CLIENT_SECRET", "env-secret")
	t.Setenv("STRIDEDASH_OAUTH_REDIRECT_URI", "https://dash.example/auth/callback")
	t.Setenv("STRIDEDASH_SERVER_PORT", "9000")
	t.Setenv("STRIDEDASH_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-client", cfg.OAuth.ClientID)
	assert.Equal(t, "env-secret", cfg.OAuth.ClientSecret)
	assert.Equal(t, "https://dash.example/auth/callback", cfg.OAuth.RedirectURI)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsBadPerPage(t *testing.T) {
	t.Setenv("STRIDEDASH_FEED_PER_PAGE", "500")

	_, err := Load()
	assert.Error(t, err)
}
