// Package app wires the shop bot: storage, catalog, conversation engine,
// notifications and the Telegram runtime.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/shopbot/core/cmd"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
)

// RedisConfig enables the shared update ledger and rate limiter. An empty
// address keeps both in process.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// KafkaConfig enables order event publishing when brokers are set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" envconfig:"KAFKA_TOPIC"`
}

// MetricsConfig exposes /metrics and /healthz on Listen; empty disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// ShopConfig holds business settings.
type ShopConfig struct {
	Currency string `yaml:"currency" envconfig:"SHOP_CURRENCY"`
	// AwardRate is the share of an order total credited as loyalty points.
	AwardRate string `yaml:"award_rate" envconfig:"SHOP_AWARD_RATE"`
	// FlowTTL bounds how long an abandoned conversation survives.
	FlowTTL time.Duration `yaml:"flow_ttl" envconfig:"SHOP_FLOW_TTL"`
	// CatalogFile is seeded on startup and on forced reloads; empty skips seeding.
	CatalogFile    string        `yaml:"catalog_file" envconfig:"SHOP_CATALOG_FILE"`
	ForceFlag      string        `yaml:"force_flag" envconfig:"SHOP_FORCE_FLAG"`
	UpdateFlag     string        `yaml:"update_flag" envconfig:"SHOP_UPDATE_FLAG"`
	ReloadInterval time.Duration `yaml:"reload_interval" envconfig:"SHOP_RELOAD_INTERVAL"`

	awardRate decimal.Decimal
}

// Rate returns the parsed award rate.
func (s ShopConfig) Rate() decimal.Decimal { return s.awardRate }

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Kafka    KafkaConfig         `yaml:"kafka"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	Shop     ShopConfig          `yaml:"shop"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

var _ cmd.ConfigCarrier = (*Config)(nil)

// LoadConfig reads path (optional) and the environment, then validates.
// Environment keys accept both the nested form (TELEGRAM_BOT_TOKEN) and the
// short one (BOT_TOKEN).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := coreconfig.Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return &coreconfig.FatalConfigError{Field: "database.driver", Reason: err.Error()}
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		c.Kafka.Topic = "shop.orders"
	}

	s := &c.Shop
	if s.Currency == "" {
		s.Currency = "сум"
	}
	s.awardRate = decimal.RequireFromString("0.05")
	if s.AwardRate != "" {
		rate, err := decimal.NewFromString(strings.TrimSpace(s.AwardRate))
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return &coreconfig.FatalConfigError{
				Field:  "shop.award_rate",
				Reason: fmt.Sprintf("invalid value %q; want a fraction between 0 and 1", s.AwardRate),
			}
		}
		s.awardRate = rate
	}
	if s.FlowTTL < 0 {
		return &coreconfig.FatalConfigError{Field: "shop.flow_ttl", Reason: "must be >= 0"}
	}
	if s.FlowTTL == 0 {
		s.FlowTTL = 30 * time.Minute
	}
	if s.ForceFlag == "" {
		s.ForceFlag = "force_reload_flag.txt"
	}
	if s.UpdateFlag == "" {
		s.UpdateFlag = "data_update_flag.txt"
	}
	if s.ReloadInterval <= 0 {
		s.ReloadInterval = 5 * time.Second
	}
	return nil
}
