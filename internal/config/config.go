package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Internal  InternalConfig  `mapstructure:"internal"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PipelineConfig controls the delivery pipeline itself.
type PipelineConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DedupWindow  time.Duration `mapstructure:"dedup_window"`
	DedupCleanup time.Duration `mapstructure:"dedup_cleanup"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
}

// SinkConfig points at the external CRM webhook. An empty URL means the
// pipeline accepts events but never attempts delivery.
type SinkConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// InternalConfig points at the app's internal API (user snapshots,
// trial token issuance).
type InternalConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the Redis-backed dedup guard when a URL is set.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// envOverrides layers RELAY_* environment variables over file values,
// for container deployments that ship no config file.
type envOverrides struct {
	Port            int    `envconfig:"PORT"`
	PipelineEnabled *bool  `envconfig:"PIPELINE_ENABLED"`
	SinkURL         string `envconfig:"SINK_URL"`
	SinkSecret      string `envconfig:"SINK_SECRET"`
	InternalBaseURL string `envconfig:"INTERNAL_API_URL"`
	InternalAPIKey  string `envconfig:"INTERNAL_API_KEY"`
	RedisURL        string `envconfig:"REDIS_URL"`
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("pipeline.enabled", true)
	viper.SetDefault("pipeline.dedup_window", 30*time.Second)
	viper.SetDefault("pipeline.dedup_cleanup", 5*time.Minute)
	viper.SetDefault("pipeline.max_attempts", 3)
	viper.SetDefault("pipeline.backoff_base", 5*time.Second)
	viper.SetDefault("sink.timeout", 10*time.Second)
	viper.SetDefault("internal.timeout", 5*time.Second)
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.rps", 50)
	viper.SetDefault("rate_limit.burst", 100)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	setDefaults()
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional; defaults plus env cover the
		// container case.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("relay", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	applyOverrides(&config, &env)

	return &config, nil
}

func applyOverrides(cfg *Config, env *envOverrides) {
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.PipelineEnabled != nil {
		cfg.Pipeline.Enabled = *env.PipelineEnabled
	}
	if env.SinkURL != "" {
		cfg.Sink.URL = env.SinkURL
	}
	if env.SinkSecret != "" {
		cfg.Sink.Secret = env.SinkSecret
	}
	if env.InternalBaseURL != "" {
		cfg.Internal.BaseURL = env.InternalBaseURL
	}
	if env.InternalAPIKey != "" {
		cfg.Internal.APIKey = env.InternalAPIKey
	}
	if env.RedisURL != "" {
		cfg.Redis.URL = env.RedisURL
	}
}
