// Package config loads the terminal configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// QuietHours configures the token-saver window.
type QuietHours struct {
	StartHour int    `yaml:"start_hour"`
	EndHour   int    `yaml:"end_hour"`
	Timezone  string `yaml:"timezone"`
}

// NewsConfig configures the headline job.
type NewsConfig struct {
	Feeds    []string `yaml:"feeds"`
	Cap      int      `yaml:"cap"`
	Schedule string   `yaml:"schedule"`
}

// HeatmapConfig configures the sector heatmap job.
type HeatmapConfig struct {
	Limit    int    `yaml:"limit"`
	Schedule string `yaml:"schedule"`
}

// RateLimitConfig configures per-client API throttling.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr         string            `yaml:"listen_addr"`
	LogLevel           string            `yaml:"log_level"`
	HTTPTimeoutSeconds int               `yaml:"http_timeout_seconds"`
	AlphaVantageKey    string            `yaml:"alphavantage_key"`
	BrapiToken         string            `yaml:"brapi_token"`
	DatabaseURL        string            `yaml:"database_url"`
	RedisURL           string            `yaml:"redis_url"`
	CORSOrigins        []string          `yaml:"cors_origins"`
	QuietHours         QuietHours        `yaml:"quiet_hours"`
	News               NewsConfig        `yaml:"news"`
	Heatmap            HeatmapConfig     `yaml:"heatmap"`
	RateLimit          RateLimitConfig   `yaml:"rate_limit"`
	Schedules          map[string]string `yaml:"schedules"`   // panel id -> cron spec
	TTLSeconds         map[string]int    `yaml:"ttl_seconds"` // panel id -> min refresh age
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		LogLevel:           "info",
		HTTPTimeoutSeconds: 12,
		CORSOrigins:        []string{"*"},
		QuietHours: QuietHours{
			StartHour: 19,
			EndHour:   7,
			Timezone:  "America/Sao_Paulo",
		},
		News: NewsConfig{
			Cap:      12,
			Schedule: "@every 30m",
		},
		Heatmap: HeatmapConfig{
			Limit:    100,
			Schedule: "@every 30m",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Schedules: map[string]string{
			"usdbrl": "@every 15m",
			"ibov":   "@every 25m",
			"spy":    "@every 25m",
			"btc":    "@every 25m",
			"selic":  "@every 6h",
		},
		TTLSeconds: map[string]int{
			"usdbrl": 900,
			"ibov":   1500,
			"spy":    1500,
			"btc":    1500,
			"selic":  21600,
		},
	}
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, cfg.validate()
}

// LoadOrDefault loads config/finterm.yaml when present, otherwise the
// defaults. Environment overrides apply either way.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		path = filepath.Join("config", "finterm.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := Default()
	cfg.applyEnv()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "FINTERM_ADDR")
	setString(&c.LogLevel, "FINTERM_LOG_LEVEL")
	setString(&c.AlphaVantageKey, "ALPHAVANTAGE_KEY")
	setString(&c.BrapiToken, "BRAPI_TOKEN")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.QuietHours.Timezone, "FINTERM_QUIET_TZ")
	setInt(&c.QuietHours.StartHour, "FINTERM_QUIET_START")
	setInt(&c.QuietHours.EndHour, "FINTERM_QUIET_END")
	setInt(&c.HTTPTimeoutSeconds, "FINTERM_HTTP_TIMEOUT")
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("http_timeout_seconds must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}
	return nil
}

// HTTPTimeout returns the provider client timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// PanelSchedule returns the cron spec for a panel, falling back to the
// default set.
func (c Config) PanelSchedule(panel string) string {
	if spec, ok := c.Schedules[panel]; ok && spec != "" {
		return spec
	}
	return Default().Schedules[panel]
}

// PanelTTL returns the minimum age before a panel refresh hits providers.
func (c Config) PanelTTL(panel string) time.Duration {
	seconds, ok := c.TTLSeconds[panel]
	if !ok {
		seconds = Default().TTLSeconds[panel]
	}
	return time.Duration(seconds) * time.Second
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
