package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Download DownloadConfig `mapstructure:"download"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds Stratus API connection details and session tuning
type APIConfig struct {
	URL        string        `mapstructure:"url"`
	Key        string        `mapstructure:"key"`
	RetryCount int           `mapstructure:"retry_count"`
	RetryWait  time.Duration `mapstructure:"retry_wait"`
	RateLimit  float64       `mapstructure:"rate_limit"`
}

// OAuthConfig holds the settings for browser-based login
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
	CallbackAddr string `mapstructure:"callback_addr"`
}

// DownloadConfig contains asset download settings
type DownloadConfig struct {
	Directory   string `mapstructure:"directory"`
	Concurrency int    `mapstructure:"concurrency"`
}

// FilterConfig contains item filter presets
type FilterConfig struct {
	DefaultExpression string            `mapstructure:"default_expression"`
	Presets           map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
