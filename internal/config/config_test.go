package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("MAX_TOOL_TURNS", "")
	t.Setenv("SESSION_TTL_MS", "")
	t.Setenv("ALLOW_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 7, cfg.MaxToolTurns)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.False(t, cfg.LLMConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("ALLOW_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("PROVIDER_TIMEOUT_MS", "250")
	t.Setenv("MOCK_STARTER_PACK", "true")

	cfg := Load()

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, "legacy-key", cfg.LLMAPIKey)
	assert.True(t, cfg.LLMConfigured())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.ProviderTimeout)
	assert.True(t, cfg.MockStarterPack)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warn"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}
