package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientRequiresBaseURL(t *testing.T) {
	t.Setenv("AVATAR_BASE_URL", "")
	_, err := LoadClient()
	require.Error(t, err)
}

func TestLoadClientReadsEnv(t *testing.T) {
	t.Setenv("AVATAR_BASE_URL", "http://localhost:8084")
	t.Setenv("AVATAR_ID", "av-1")
	t.Setenv("VOICE_ID", "")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8084", cfg.BaseURL)
	assert.Equal(t, "av-1", cfg.AvatarID)
	assert.Empty(t, cfg.VoiceID)
}

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("HEYGEN_API_KEY", "key-1")
	t.Setenv("CONFIG_ENV", "nonexistent")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8084, cfg.Port)
	assert.Equal(t, "https://api.heygen.com", cfg.HeyGenBaseURL)
	assert.Equal(t, "en", cfg.DefaultLang)
	assert.Equal(t, "key-1", cfg.HeyGenAPIKey)
}

func TestLoadServerRequiresAPIKey(t *testing.T) {
	t.Setenv("HEYGEN_API_KEY", "")
	t.Setenv("CONFIG_ENV", "nonexistent")

	_, err := LoadServer()
	require.Error(t, err)
}
