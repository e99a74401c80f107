package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// legacyEnv maps config keys to the flat environment names the service has always accepted.
var legacyEnv = map[string]string{
	"auth.secret_tokens":                 "API_SECRET_TOKENS",
	"auth.api_keys":                      "API_KEYS",
	"pipeline.min_data_points":           "MIN_DATA_POINTS",
	"pipeline.weekly_rule":               "WEEKLY_RULE",
	"pipeline.monthly_rule":              "MONTHLY_RULE",
	"pipeline.non_negative":              "NON_NEGATIVE_PREDICTIONS",
	"pipeline.return_confidence_default": "RETURN_CONFIDENCE_DEFAULT",
	"callback.api_key":                   "CALLBACK_API_KEY",
	"callback.timeout_seconds":           "CALLBACK_TIMEOUT",
}

const envPrefix = "FORECAST"

// Load loads configuration from file, defaults and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/forecaster")
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// bindLegacyEnv binds each key to both its prefixed name and its legacy name.
// The prefixed name wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", legacy, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.body_limit_mb", 16)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 20)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret_tokens", []string{})
	v.SetDefault("auth.api_keys", []string{})

	v.SetDefault("pipeline.min_data_points", 30)
	v.SetDefault("pipeline.weekly_rule", "W-MON")
	v.SetDefault("pipeline.monthly_rule", "MS")
	v.SetDefault("pipeline.non_negative", true)
	v.SetDefault("pipeline.return_confidence_default", false)
	v.SetDefault("pipeline.interval_width", 0.8)

	v.SetDefault("callback.api_key", "")
	v.SetDefault("callback.timeout_seconds", 30)
	v.SetDefault("callback.workers", 4)
	v.SetDefault("callback.queue_size", 100)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.type", "memory")
	v.SetDefault("events.url", "nats://localhost:4222")
	v.SetDefault("events.subject", "forecast.events")
	v.SetDefault("events.kafka_brokers", []string{"localhost:9092"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Auth.SecretTokens = splitList(cfg.Auth.SecretTokens)
	cfg.Auth.APIKeys = splitList(cfg.Auth.APIKeys)
	cfg.Events.KafkaBrokers = splitList(cfg.Events.KafkaBrokers)
	cfg.Pipeline.WeeklyRule = strings.ToUpper(strings.TrimSpace(cfg.Pipeline.WeeklyRule))
	cfg.Pipeline.MonthlyRule = strings.ToUpper(strings.TrimSpace(cfg.Pipeline.MonthlyRule))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    5000,
			BodyLimitMB: 16,
			RateBurst:   20,
		},
		Pipeline: PipelineConfig{
			MinDataPoints: 30,
			WeeklyRule:    "W-MON",
			MonthlyRule:   "MS",
			NonNegative:   true,
			IntervalWidth: 0.8,
		},
		Callback: CallbackConfig{
			TimeoutSeconds: 30,
			Workers:        4,
			QueueSize:      100,
		},
		Events: EventsConfig{
			Type:    "memory",
			Subject: "forecast.events",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
