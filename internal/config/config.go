package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/mindsage/analyzer/internal/auth"
	"github.com/mindsage/analyzer/internal/inference"
	"github.com/mindsage/analyzer/internal/journal"
	"github.com/mindsage/analyzer/internal/tracing"
)

// DefaultPath is used when neither the argument nor CONFIG_PATH names a file.
const DefaultPath = "./config/mindsage.yaml"

// EnvPrefix prefixes every environment override, e.g. MINDSAGE_SERVER_PORT.
const EnvPrefix = "MINDSAGE"

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
}

type AnalysisConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	ClampBoosts bool          `mapstructure:"clamp_boosts"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Inference inference.Config `mapstructure:"inference"`
	Analysis  AnalysisConfig   `mapstructure:"analysis"`
	Database  journal.Config   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Auth      auth.Config      `mapstructure:"auth"`
	RateLimit RateLimitConfig  `mapstructure:"ratelimit"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Tracing   tracing.Config   `mapstructure:"tracing"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origin", "http://localhost:3000")

	v.SetDefault("inference.api_token", "")
	v.SetDefault("inference.classification_url", inference.DefaultClassificationURL)
	v.SetDefault("inference.generation_url", inference.DefaultGenerationURL)
	v.SetDefault("inference.summarization_url", inference.DefaultSummarizationURL)
	v.SetDefault("inference.max_retries", inference.DefaultMaxRetries)
	v.SetDefault("inference.initial_wait", inference.DefaultInitialWait)
	v.SetDefault("inference.timeout", inference.DefaultTimeout)
	v.SetDefault("inference.rps", 0)
	v.SetDefault("inference.burst", 0)

	v.SetDefault("analysis.timeout", 45*time.Second)
	v.SetDefault("analysis.clamp_boosts", false)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.idle_connections", 5)
	v.SetDefault("database.max_lifetime", 5*time.Minute)

	v.SetDefault("redis.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "mindsage")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.skip_auth", false)

	v.SetDefault("ratelimit.requests_per_minute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "mindsage-analyzer")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
}

// ResolvePath returns path, or CONFIG_PATH, or DefaultPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	return getEnvOrDefault("CONFIG_PATH", DefaultPath)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the optional config file at path (see ResolvePath), applies
// MINDSAGE_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v, err := newViper(ResolvePath(path))
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Inference.APIToken == "" {
		cfg.Inference.APIToken = os.Getenv("HF_API_TOKEN")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Inference.MaxRetries < 1 || c.Inference.MaxRetries > inference.MaxRetriesLimit {
		return fmt.Errorf("inference.max_retries must be between 1 and %d", inference.MaxRetriesLimit)
	}
	if c.Inference.InitialWait < 0 || c.Inference.Timeout < 0 || c.Analysis.Timeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	// The response, crisis flag included, has to be written before the
	// server's write deadline.
	if c.Analysis.Timeout > 0 && c.Server.WriteTimeout > 0 && c.Analysis.Timeout >= c.Server.WriteTimeout {
		return fmt.Errorf("analysis.timeout (%s) must be shorter than server.write_timeout (%s)",
			c.Analysis.Timeout, c.Server.WriteTimeout)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("ratelimit.requests_per_minute must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}
	if !c.Auth.SkipAuth && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required unless auth.skip_auth is set")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
