package config

import (
	"fmt"
	"regexp"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Callback CallbackConfig `mapstructure:"callback"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host        string  `mapstructure:"host"`
	HTTPPort    int     `mapstructure:"http_port"`
	BodyLimitMB int     `mapstructure:"body_limit_mb"`
	RateLimit   float64 `mapstructure:"rate_limit"` // requests per second per client IP, 0 disables
	RateBurst   int     `mapstructure:"rate_burst"`
}

// AuthConfig represents bearer/API key authentication
type AuthConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	SecretTokens []string `mapstructure:"secret_tokens"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// PipelineConfig controls preprocessing and the forecasting model
type PipelineConfig struct {
	MinDataPoints           int     `mapstructure:"min_data_points"`
	WeeklyRule              string  `mapstructure:"weekly_rule"`  // W-MON ... W-SUN
	MonthlyRule             string  `mapstructure:"monthly_rule"` // MS
	NonNegative             bool    `mapstructure:"non_negative"`
	ReturnConfidenceDefault bool    `mapstructure:"return_confidence_default"`
	IntervalWidth           float64 `mapstructure:"interval_width"`
}

// CallbackConfig controls asynchronous webhook delivery
type CallbackConfig struct {
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Workers        int    `mapstructure:"workers"`
	QueueSize      int    `mapstructure:"queue_size"`
}

// EventsConfig represents the lifecycle event publisher
type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"`    // memory (default), nats, redis, kafka
	URL      string `mapstructure:"url"`     // nats://localhost:4222, redis://localhost:6379
	Subject  string `mapstructure:"subject"` // subject, stream or topic name
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	RedisDB      int      `mapstructure:"redis_db"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// MetricsConfig represents the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

var weeklyRulePattern = regexp.MustCompile(`^W-(MON|TUE|WED|THU|FRI|SAT|SUN)$`)

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if err := c.Callback.Validate(); err != nil {
		return fmt.Errorf("callback config: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	if c.BodyLimitMB < 1 {
		return fmt.Errorf("body_limit_mb must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate_limit is set")
	}
	return nil
}

// Validate validates pipeline configuration
func (c *PipelineConfig) Validate() error {
	if c.MinDataPoints < 1 {
		return fmt.Errorf("min_data_points must be at least 1")
	}
	if !weeklyRulePattern.MatchString(c.WeeklyRule) {
		return fmt.Errorf("weekly_rule must look like W-MON, got %q", c.WeeklyRule)
	}
	if c.MonthlyRule != "MS" {
		return fmt.Errorf("monthly_rule must be 'MS', got %q", c.MonthlyRule)
	}
	if c.IntervalWidth <= 0 || c.IntervalWidth >= 1 {
		return fmt.Errorf("interval_width must be in (0, 1)")
	}
	return nil
}

// Validate validates callback configuration
func (c *CallbackConfig) Validate() error {
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1")
	}
	return nil
}

// Validate validates event publisher configuration
func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Type {
	case "memory", "":
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("unsupported type: %s", c.Type)
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}
