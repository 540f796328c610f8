package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Environment overrides, e.g. STRATUS_API_KEY, STRATUS_LOGGING_LEVEL
	v.SetEnvPrefix("STRATUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".stratus"))
		}

		// Check /etc
		v.AddConfigPath("/etc/stratus/")
	}

	// Read config file; missing files fall back to defaults so the CLI
	// works with nothing but STRATUS_API_KEY set
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		if configPath != "" {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", "https://api.stratus.earth/v1")
	v.SetDefault("api.key", "") // registered so STRATUS_API_KEY overrides apply
	v.SetDefault("api.retry_count", 5)
	v.SetDefault("api.retry_wait", time.Second)

	// OAuth defaults
	v.SetDefault("oauth.callback_addr", "localhost:8080")

	// Download defaults
	v.SetDefault("download.directory", ".")
	v.SetDefault("download.concurrency", 4)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}

	if cfg.API.RetryCount < 0 {
		return fmt.Errorf("api.retry_count must not be negative")
	}

	if cfg.API.RetryWait < 0 {
		return fmt.Errorf("api.retry_wait must not be negative")
	}

	if cfg.Download.Concurrency < 1 {
		return fmt.Errorf("download.concurrency must be at least 1")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
