// Package config loads process configuration: defaults, then an optional
// YAML file, then ASSESSOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/candidus/assessor/internal/content"
	"github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/logging"
	"github.com/candidus/assessor/internal/scoring"
)

// EnvPrefix prefixes every environment override, e.g. ASSESSOR_STORE_DSN.
const EnvPrefix = "ASSESSOR"

// Config is the top-level configuration structure.
type Config struct {
	Store    StoreConfig     `mapstructure:"store"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Content  content.Config  `mapstructure:"content"`
	Scoring  scoring.Config  `mapstructure:"scoring"`
	Delivery delivery.Config `mapstructure:"delivery"`
	Log      logging.Config  `mapstructure:"log"`
	HTTP     HTTPConfig      `mapstructure:"http"`
}

// StoreConfig selects the SQL backend holding attempts, the rubric and the
// attempt journal.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// DSN is a file path for sqlite or a connection URL for postgres.
	// Empty selects the default sqlite database path.
	DSN string `mapstructure:"dsn"`
}

// RedisConfig moves attempt state to Redis when Addr is set. The rubric and
// journal stay in the SQL store.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether attempts live in Redis.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// HTTPConfig holds settings for the HTTP API.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store:    StoreConfig{Driver: "sqlite"},
		Redis:    RedisConfig{TTL: 30 * 24 * time.Hour},
		Content:  content.DefaultConfig(),
		Scoring:  scoring.DefaultConfig(),
		Delivery: delivery.DefaultConfig(),
		Log:      logging.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("content.dir", d.Content.Dir)
	v.SetDefault("content.builtin", d.Content.Builtin)

	v.SetDefault("scoring.mode", d.Scoring.Mode)
	v.SetDefault("scoring.base_url", d.Scoring.BaseURL)
	v.SetDefault("scoring.token", d.Scoring.Token)
	v.SetDefault("scoring.timeout", d.Scoring.Timeout)
	v.SetDefault("scoring.retry.max_attempts", d.Scoring.Retry.MaxAttempts)
	v.SetDefault("scoring.retry.initial_wait", d.Scoring.Retry.InitialWait)
	v.SetDefault("scoring.retry.max_wait", d.Scoring.Retry.MaxWait)
	v.SetDefault("scoring.retry.multiplier", d.Scoring.Retry.Multiplier)

	v.SetDefault("delivery.autosave_interval", d.Delivery.AutosaveInterval)
	v.SetDefault("delivery.submit_timeout", d.Delivery.SubmitTimeout)
	v.SetDefault("delivery.update_buffer", d.Delivery.UpdateBuffer)

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
}

// Load reads configuration. An explicit path must exist; without one,
// assessor.yaml is looked up in the user config directory and the working
// directory, and its absence is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("assessor")
		v.SetConfigType("yaml")
		if dir := defaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver: %q", c.Store.Driver))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis.ttl must not be negative"))
	}
	if !c.Content.Builtin && c.Content.Dir == "" {
		errs = append(errs, content.ErrNoSource)
	}
	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Delivery.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr is required"))
	}
	return errors.Join(errs...)
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "assessor")
}
