// Package config reads process settings from GIFTDRAW_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the server process configuration.
type Config struct {
	HTTPAddr string `env:"GIFTDRAW_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GIFTDRAW_GRPC_ADDR" envDefault:":9090"`

	StoreDriver string `env:"GIFTDRAW_STORE_DRIVER" envDefault:"bbolt"`
	StorePath   string `env:"GIFTDRAW_STORE_PATH" envDefault:"data/giftdraw.db"`
	CatalogPath string `env:"GIFTDRAW_CATALOG_PATH"`

	AdminIDs   []string `env:"GIFTDRAW_ADMIN_IDS" envSeparator:","`
	AdminToken string   `env:"GIFTDRAW_ADMIN_TOKEN"`

	BotToken        string        `env:"GIFTDRAW_BOT_TOKEN"`
	BotAPIBaseURL   string        `env:"GIFTDRAW_BOT_API_URL" envDefault:"https://api.telegram.org"`
	DeliveryTimeout time.Duration `env:"GIFTDRAW_DELIVERY_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"GIFTDRAW_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GIFTDRAW_LOG_FORMAT" envDefault:"text"`

	BroadcastRate        float64       `env:"GIFTDRAW_BROADCAST_RATE" envDefault:"20"`
	BroadcastConcurrency int           `env:"GIFTDRAW_BROADCAST_CONCURRENCY" envDefault:"4"`
	BroadcastSessionTTL  time.Duration `env:"GIFTDRAW_BROADCAST_SESSION_TTL" envDefault:"10m"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DeliveryEnabled reports whether gifts are sent through the Bot API.
func (c Config) DeliveryEnabled() bool {
	return strings.TrimSpace(c.BotToken) != ""
}

func (c Config) Validate() error {
	var errs []string
	switch c.StoreDriver {
	case "bbolt", "sqlite":
		if strings.TrimSpace(c.StorePath) == "" {
			errs = append(errs, "GIFTDRAW_STORE_PATH is required for driver "+c.StoreDriver)
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("GIFTDRAW_STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}
	if c.BroadcastRate < 0 {
		errs = append(errs, "GIFTDRAW_BROADCAST_RATE must be >= 0")
	}
	if c.BroadcastConcurrency < 1 {
		errs = append(errs, "GIFTDRAW_BROADCAST_CONCURRENCY must be >= 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
