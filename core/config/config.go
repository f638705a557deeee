package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds bot transport settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminIDs lists user ids promoted to shop administrators on startup.
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"ADMIN_IDS"`
	// APIURL overrides the Bot API endpoint (self-hosted API servers).
	APIURL string `yaml:"api_url" envconfig:"API_URL"`
	// LongPollTimeoutSeconds defines the getUpdates timeout; 0 -> default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"LONGPOLL_TIMEOUT_SECONDS"`
	// Workers is the number of per-user ordered event workers.
	Workers int `yaml:"workers" envconfig:"WORKERS"`
	// QueueSize bounds each worker's backlog.
	QueueSize int `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// UpdateCallback identifies button presses for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies plain messages for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig configures the per-user token bucket.
// ExcludeUpdates accepts update kinds that bypass limiting: "callback", "message".
type RateLimitConfig struct {
	PerSecond      float64  `yaml:"per_second" envconfig:"RATE_LIMIT_PER_SECOND"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// FatalConfigError reports configuration the process cannot start without.
type FatalConfigError struct {
	Field  string
	Reason string
}

func (e *FatalConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Code implements the error code contract used by handler summaries.
func (e *FatalConfigError) Code() string { return "FATAL_CONFIG" }

// Decode fills target from the YAML file at path (skipped when the file does not
// exist) and then overlays environment variables.
func Decode(path string, target any) error {
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, target); err != nil {
				return fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", target); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates required fields and applies defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		return &FatalConfigError{Field: "BOT_TOKEN", Reason: "bot token is required"}
	}
	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return &FatalConfigError{Field: "telegram.longpoll_timeout_seconds", Reason: "must be >= 0"}
	}
	if cfg.Telegram.LongPollTimeoutSeconds == 0 {
		cfg.Telegram.LongPollTimeoutSeconds = 25
	}
	if cfg.Telegram.Workers <= 0 {
		cfg.Telegram.Workers = 8
	}
	if cfg.Telegram.QueueSize <= 0 {
		cfg.Telegram.QueueSize = 64
	}

	if cfg.RateLimit.PerSecond < 0 {
		return &FatalConfigError{Field: "rate_limit.per_second", Reason: "must be >= 0"}
	}
	if cfg.RateLimit.PerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		switch key {
		case UpdateCallback, UpdateMessage:
			cfg.RateLimit.ExcludeUpdates[i] = key
		default:
			return &FatalConfigError{
				Field:  "rate_limit.exclude_updates",
				Reason: fmt.Sprintf("invalid value %q; allowed: callback, message", v),
			}
		}
	}
	return nil
}

// IsAdmin reports whether userID is listed in the static admin list.
func (c TelegramConfig) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
