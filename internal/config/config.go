package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Clock sources accepted in CLOCK_SOURCE.
const (
	ClockRedis    = "redis"
	ClockInterval = "interval"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string // postgres:// URL or SQLite path (":memory:" for throwaway runs)
	RedisURL    string

	ClockSource   string        // "redis" (shared counter) or "interval" (derived from wall clock)
	ClockGenesis  time.Time     // height 0 for the interval clock
	ClockInterval time.Duration // one block per interval

	ProtocolOwner       string // initial protocol admin principal
	MaterializeAllSlots bool
	RebalanceCooldown   uint64

	AdminKeyHash   string // bcrypt hash guarding operator endpoints (chain advance)
	HealthAdminKey string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "registry.db")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("CLOCK_SOURCE", ClockRedis)
	v.SetDefault("CLOCK_GENESIS", "2026-01-01T00:00:00Z")
	v.SetDefault("CLOCK_INTERVAL", "10m")
	v.SetDefault("REBALANCE_COOLDOWN", 144)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	source := strings.ToLower(strings.TrimSpace(v.GetString("CLOCK_SOURCE")))
	if source != ClockRedis && source != ClockInterval {
		return nil, fmt.Errorf("CLOCK_SOURCE must be %q or %q, got %q", ClockRedis, ClockInterval, source)
	}
	genesis, err := time.Parse(time.RFC3339, v.GetString("CLOCK_GENESIS"))
	if err != nil {
		return nil, fmt.Errorf("CLOCK_GENESIS: %w", err)
	}
	interval := v.GetDuration("CLOCK_INTERVAL")
	if interval <= 0 {
		return nil, fmt.Errorf("CLOCK_INTERVAL must be positive")
	}
	owner := strings.TrimSpace(v.GetString("PROTOCOL_OWNER"))
	if owner == "" {
		return nil, fmt.Errorf("PROTOCOL_OWNER is required")
	}

	return &Config{
		Env:                 v.GetString("APP_ENV"),
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisURL:            v.GetString("REDIS_URL"),
		ClockSource:         source,
		ClockGenesis:        genesis,
		ClockInterval:       interval,
		ProtocolOwner:       owner,
		MaterializeAllSlots: v.GetBool("MATERIALIZE_ALL_SLOTS"),
		RebalanceCooldown:   v.GetUint64("REBALANCE_COOLDOWN"),
		AdminKeyHash:        v.GetString("ADMIN_KEY_HASH"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
	}, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
