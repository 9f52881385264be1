package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/expiry"
)

const defaultOptionsPath = "/data/options.json"

// AppConfig holds all configuration for the add-on. Loaded once at startup,
// never mutated afterwards.
type AppConfig struct {
	ExpiryDate      string `mapstructure:"expiry_date"`
	ExpiryTime      string `mapstructure:"expiry_time"`
	DateFormat      string `mapstructure:"date_format"`
	NotifyService   string `mapstructure:"notify_service"`
	PushCount       int    `mapstructure:"push_count"`
	PushIntervalMin int    `mapstructure:"push_interval_min"`
	Debug           bool   `mapstructure:"debug"`

	// Supervisor API access, supplied via environment rather than options.
	SupervisorURL   string
	SupervisorToken string
}

// Load reads the add-on options file (Home Assistant writes it to
// /data/options.json), applies defaults for missing keys, and lets
// environment variables override file values. A .env file is honored for
// development; godotenv never overrides variables already set.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("json")

	v.SetDefault("expiry_date", "31/12/2030")
	v.SetDefault("expiry_time", "12:00")
	v.SetDefault("date_format", expiry.FormatAuto)
	v.SetDefault("notify_service", "notify.mobile_app_myphone")
	v.SetDefault("push_count", 1)
	v.SetDefault("push_interval_min", 60)
	v.SetDefault("debug", false)

	optionsPath := os.Getenv("OPTIONS_FILE")
	if optionsPath == "" {
		optionsPath = defaultOptionsPath
	}
	v.SetConfigFile(optionsPath)
	if err := v.ReadInConfig(); err != nil {
		// A missing options file is fine (defaults apply); a malformed
		// one is a startup failure.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read options file %s: %w", optionsPath, err)
		}
	}

	v.AutomaticEnv()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	cfg.SupervisorURL = os.Getenv("SUPERVISOR_URL")
	if cfg.SupervisorURL == "" {
		cfg.SupervisorURL = "http://supervisor/core/api"
	}
	cfg.SupervisorToken = os.Getenv("SUPERVISOR_TOKEN")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	c.DateFormat = strings.ToLower(strings.TrimSpace(c.DateFormat))
	switch c.DateFormat {
	case expiry.FormatAuto, expiry.FormatUS, expiry.FormatEU, expiry.FormatISO:
	default:
		return fmt.Errorf("invalid date_format %q: must be one of auto, us, eu, iso", c.DateFormat)
	}

	if c.PushCount < 1 {
		return fmt.Errorf("invalid push_count %d: must be at least 1", c.PushCount)
	}
	if c.PushIntervalMin < 0 {
		return fmt.Errorf("invalid push_interval_min %d: must not be negative", c.PushIntervalMin)
	}
	if strings.TrimSpace(c.NotifyService) == "" {
		return errors.New("notify_service is not set")
	}
	return nil
}
