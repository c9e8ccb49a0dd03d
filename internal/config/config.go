package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	SinkRedis     = "redis"
	SinkKafka     = "kafka"
	SinkWebsocket = "websocket"
	SinkWebhook   = "webhook"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string `mapstructure:"PORT"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	SigningKey         string        `mapstructure:"WEBHOOK_SIGNING_KEY"`
	PreviousSigningKey string        `mapstructure:"WEBHOOK_SIGNING_KEY_PREVIOUS"`
	EmailEventsEnabled bool          `mapstructure:"EMAIL_EVENTS_ENABLED"`
	FreshnessWindow    time.Duration `mapstructure:"FRESHNESS_WINDOW"`
	DedupTTL           time.Duration `mapstructure:"DEDUP_TTL"`
	RateLimitPerSecond int           `mapstructure:"RATE_LIMIT_PER_SECOND"`

	NumWorkers          int    `mapstructure:"NUM_WORKERS"`
	NotifyQueueSize     int    `mapstructure:"NOTIFY_QUEUE_SIZE"`
	NotifySinks         string `mapstructure:"NOTIFY_SINKS"`
	NotifyRedisQueue    string `mapstructure:"NOTIFY_REDIS_QUEUE"`
	NotifyWebhookURL    string `mapstructure:"NOTIFY_WEBHOOK_URL"`
	NotifyWebhookSecret string `mapstructure:"NOTIFY_WEBHOOK_SECRET"`
	KafkaBrokers        string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic          string `mapstructure:"KAFKA_TOPIC"`

	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"`
}

// Load reads configuration from the environment, optionally layered over a
// YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WEBHOOK_SIGNING_KEY", "")
	v.SetDefault("WEBHOOK_SIGNING_KEY_PREVIOUS", "")
	v.SetDefault("EMAIL_EVENTS_ENABLED", true)
	v.SetDefault("FRESHNESS_WINDOW", "5m")
	v.SetDefault("DEDUP_TTL", "24h")
	v.SetDefault("RATE_LIMIT_PER_SECOND", 0)
	v.SetDefault("NUM_WORKERS", 4)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 1024)
	v.SetDefault("NOTIFY_SINKS", "")
	v.SetDefault("NOTIFY_REDIS_QUEUE", "email_events:status_changes")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_WEBHOOK_SECRET", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "email.status-changes")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("CONFIG_FILE", "")

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}

	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("FRESHNESS_WINDOW must be positive")
	}
	if c.RateLimitPerSecond > 0 && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_PER_SECOND is set")
	}

	for _, sink := range c.Sinks() {
		switch sink {
		case SinkRedis:
			if c.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is required for the redis sink")
			}
		case SinkKafka:
			if len(c.Brokers()) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is required for the kafka sink")
			}
		case SinkWebhook:
			if c.NotifyWebhookURL == "" {
				return fmt.Errorf("NOTIFY_WEBHOOK_URL is required for the webhook sink")
			}
		case SinkWebsocket:
		default:
			return fmt.Errorf("unknown notify sink %q", sink)
		}
	}
	return nil
}

// SigningKeys returns the current key followed by the previous one, if set.
func (c *Config) SigningKeys() []string {
	return splitList(c.SigningKey + "," + c.PreviousSigningKey)
}

func (c *Config) Sinks() []string {
	sinks := splitList(c.NotifySinks)
	for i, s := range sinks {
		sinks[i] = strings.ToLower(s)
	}
	return sinks
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
