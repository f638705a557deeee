package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRequiresToken(t *testing.T) {
	err := Normalize(&Config{})
	var fatal *FatalConfigError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "BOT_TOKEN", fatal.Field)
	assert.Equal(t, "FATAL_CONFIG", fatal.Code())
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{
		Telegram:  TelegramConfig{Token: " abc "},
		RateLimit: RateLimitConfig{PerSecond: 2, ExcludeUpdates: []string{" Callback "}},
	}
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, "abc", cfg.Telegram.Token)
	assert.Equal(t, 25, cfg.Telegram.LongPollTimeoutSeconds)
	assert.Equal(t, 8, cfg.Telegram.Workers)
	assert.Equal(t, 64, cfg.Telegram.QueueSize)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestNormalizeRejectsUnknownExclusion(t *testing.T) {
	cfg := Config{
		Telegram:  TelegramConfig{Token: "abc"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline"}},
	}
	var fatal *FatalConfigError
	require.True(t, errors.As(Normalize(&cfg), &fatal))
	assert.Equal(t, "rate_limit.exclude_updates", fatal.Field)
}

func TestDecodeMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	var cfg Config
	require.NoError(t, Decode(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))
	assert.Equal(t, "from-env", cfg.Telegram.Token)
}

func TestDecodeEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"telegram:\n  token: from-file\n  admin_ids: [1, 2]\nlogging:\n  level: debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	var cfg Config
	require.NoError(t, Decode(path, &cfg))
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Telegram.IsAdmin(2))
	assert.False(t, cfg.Telegram.IsAdmin(3))
}
