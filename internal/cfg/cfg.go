// Package cfg loads bot settings from a YAML file (CONFIG_FILE) with
// environment variable overrides, falling back to environment variables
// alone. Settings are resolved once at startup and immutable afterwards.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Product selector modes. Anything else must parse as a numeric product id.
const (
	ProductDefault = "default"
	ProductRandom  = "random"
)

type Settings struct {
	BaseURL      string
	AccountsFile string
	DataPath     string
	ReferralCode string

	// Trading
	ProductSelector string
	Margin          float64
	Leverage        int
	SettleDelay     int // seconds, sent to the order endpoint as-is

	// System
	MetricsPort int
	HTTPTimeout time.Duration

	// Pacing between remote calls. Defaults mirror the mini-app web client;
	// tests run them at zero.
	TaskDelay    time.Duration
	OrderPace    time.Duration
	AccountDelay time.Duration
	CycleBuffer  time.Duration
}

type ConfigFile struct {
	API struct {
		BaseURL string `yaml:"baseURL"`
	} `yaml:"api"`

	Trading struct {
		Product     string  `yaml:"product"`
		Margin      float64 `yaml:"margin"`
		Leverage    int     `yaml:"leverage"`
		SettleDelay int     `yaml:"settleDelay"`
	} `yaml:"trading"`

	Accounts struct {
		File         string `yaml:"file"`
		ReferralCode string `yaml:"referralCode"`
	} `yaml:"accounts"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
		HTTPTimeout string `yaml:"httpTimeout"`
	} `yaml:"system"`

	Pacing struct {
		TaskDelay    string `yaml:"taskDelay"`
		OrderPace    string `yaml:"orderPace"`
		AccountDelay string `yaml:"accountDelay"`
		CycleBuffer  string `yaml:"cycleBuffer"`
	} `yaml:"pacing"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		BaseURL:         getEnvOrDefault("KILOEX_BASE_URL", config.API.BaseURL),
		AccountsFile:    getEnvOrDefault("ACCOUNTS_FILE", stringOrDefault(config.Accounts.File, "data.txt")),
		DataPath:        getEnvOrDefault("DATA_PATH", config.System.DataPath),
		ReferralCode:    getEnvOrDefault("REFERRAL_CODE", stringOrDefault(config.Accounts.ReferralCode, "n3m72b1h")),
		ProductSelector: getEnvOrDefault("PRODUCT", stringOrDefault(config.Trading.Product, ProductDefault)),
		Margin:          getFloatFromEnvOrConfig("MARGIN", config.Trading.Margin, 10),
		Leverage:        getIntFromEnvOrConfig("LEVERAGE", config.Trading.Leverage, 100),
		SettleDelay:     getIntFromEnvOrConfig("SETTLE_DELAY", config.Trading.SettleDelay, 300),
		MetricsPort:     getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 8080),
		HTTPTimeout:     getDurationFromEnvOrConfig("HTTP_TIMEOUT", config.System.HTTPTimeout, 20*time.Second),
		TaskDelay:       getDurationFromEnvOrConfig("TASK_DELAY", config.Pacing.TaskDelay, 2*time.Second),
		OrderPace:       getDurationFromEnvOrConfig("ORDER_PACE", config.Pacing.OrderPace, 5*time.Second),
		AccountDelay:    getDurationFromEnvOrConfig("ACCOUNT_DELAY", config.Pacing.AccountDelay, 3*time.Second),
		CycleBuffer:     getDurationFromEnvOrConfig("CYCLE_BUFFER", config.Pacing.CycleBuffer, 10*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		BaseURL:         os.Getenv("KILOEX_BASE_URL"), // empty means production default
		AccountsFile:    getEnvOrDefault("ACCOUNTS_FILE", "data.txt"),
		DataPath:        os.Getenv("DATA_PATH"), // optional
		ReferralCode:    getEnvOrDefault("REFERRAL_CODE", "n3m72b1h"),
		ProductSelector: getEnvOrDefault("PRODUCT", ProductDefault),
		Margin:          getFloatOrDefault("MARGIN", 10),
		Leverage:        getIntOrDefault("LEVERAGE", 100),
		SettleDelay:     getIntOrDefault("SETTLE_DELAY", 300),
		MetricsPort:     getIntOrDefault("METRICS_PORT", 8080),
		HTTPTimeout:     getDurationOrDefault("HTTP_TIMEOUT", 20*time.Second),
		TaskDelay:       getDurationOrDefault("TASK_DELAY", 2*time.Second),
		OrderPace:       getDurationOrDefault("ORDER_PACE", 5*time.Second),
		AccountDelay:    getDurationOrDefault("ACCOUNT_DELAY", 3*time.Second),
		CycleBuffer:     getDurationOrDefault("CYCLE_BUFFER", 10*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// ProductID parses an explicit numeric product selector. ok is false for
// the default and random modes.
func (s *Settings) ProductID() (int, bool) {
	if s.ProductSelector == ProductDefault || s.ProductSelector == ProductRandom {
		return 0, false
	}
	id, err := strconv.Atoi(s.ProductSelector)
	if err != nil {
		return 0, false
	}
	return id, true
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func stringOrDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if configValue != "" {
		if d, err := time.ParseDuration(configValue); err == nil {
			return d
		}
	}
	return defaultValue
}

// validateSettings performs validation of configuration values.
func validateSettings(settings *Settings) error {
	if settings.AccountsFile == "" {
		return fmt.Errorf("accounts file path cannot be empty")
	}
	if settings.Margin <= 0 {
		return fmt.Errorf("margin must be positive, got %f", settings.Margin)
	}
	if settings.Leverage <= 0 || settings.Leverage > 150 {
		return fmt.Errorf("leverage must be between 1 and 150, got %d", settings.Leverage)
	}
	if settings.SettleDelay <= 0 {
		return fmt.Errorf("settle delay must be positive, got %d", settings.SettleDelay)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.ReferralCode == "" {
		return fmt.Errorf("referral code cannot be empty")
	}
	if settings.ProductSelector != ProductDefault && settings.ProductSelector != ProductRandom {
		if _, err := strconv.Atoi(settings.ProductSelector); err != nil {
			return fmt.Errorf("product selector must be %q, %q or a numeric id, got %q",
				ProductDefault, ProductRandom, settings.ProductSelector)
		}
	}
	return nil
}
