// Package config loads server settings from config.yaml and AGROAI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envPrefix = "AGROAI"

	// MinSecretLength is the shortest accepted HS256 session key, in bytes.
	MinSecretLength = 32
)

// placeholderSecrets are the example values shipped with the repo.
var placeholderSecrets = map[string]bool{
	"dev-only-secret-change-me":         true,
	"replace-with-a-long-random-string": true,
}

type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Auth      Auth      `mapstructure:"auth"`
	Assistant Assistant `mapstructure:"assistant"`
	NATS      NATS      `mapstructure:"nats"`
	Redis     Redis     `mapstructure:"redis"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	Log       Log       `mapstructure:"log"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Database struct {
	Path string `mapstructure:"path"`
}

type Auth struct {
	Secret       string        `mapstructure:"secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

type Assistant struct {
	Backend string `mapstructure:"backend"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Token   string `mapstructure:"token"`
	Seed    int64  `mapstructure:"seed"`
}

// NATS is optional; an empty URL keeps rooms in process.
type NATS struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream"`
}

// Redis is optional; an empty Addr disables rate limiting.
type Redis struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	RateLimit  int64         `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// Kafka is optional; no brokers means events are dropped.
type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Telemetry is optional; an empty endpoint disables trace export.
type Telemetry struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", "agroai.db")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_name", "agroai_session")
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("assistant.backend", "keyword")
	v.SetDefault("assistant.base_url", "http://localhost:11434/v1/")
	v.SetDefault("assistant.model", "llama3.1:8b")
	v.SetDefault("assistant.token", "")
	v.SetDefault("assistant.seed", 0)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.stream", "AGROAI_ROOMS")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.rate_limit", 30)
	v.SetDefault("redis.rate_window", time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "agroai.messages")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "agroai")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads path, or config.yaml from ./config or the working directory when path is
// empty. A missing default file is not an error; environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var err error
	switch {
	case c.Auth.Secret == "":
		err = multierr.Append(err, errors.New("auth.secret is required"))
	case placeholderSecrets[c.Auth.Secret]:
		err = multierr.Append(err, errors.New("auth.secret is an example value, generate a random one"))
	case len(c.Auth.Secret) < MinSecretLength:
		err = multierr.Append(err, fmt.Errorf("auth.secret must be at least %d bytes", MinSecretLength))
	}
	if c.Auth.SessionTTL <= 0 {
		err = multierr.Append(err, errors.New("auth.session_ttl must be positive"))
	}
	switch c.Assistant.Backend {
	case "keyword":
	case "openai":
		if c.Assistant.BaseURL == "" || c.Assistant.Model == "" {
			err = multierr.Append(err, errors.New("assistant.base_url and assistant.model are required for the openai backend"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("assistant.backend %q is not one of keyword, openai", c.Assistant.Backend))
	}
	if c.Redis.Addr != "" && (c.Redis.RateLimit <= 0 || c.Redis.RateWindow <= 0) {
		err = multierr.Append(err, errors.New("redis.rate_limit and redis.rate_window must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		err = multierr.Append(err, errors.New("kafka.topic is required when brokers are set"))
	}
	return err
}

// NewLogger builds the process logger: production JSON by default, console output in
// development mode.
func (l Log) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
