package scoring

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config holds scoring boundary configuration.
type Config struct {
	// Mode selects the boundary.
	// Values: "http", "local"
	Mode string `mapstructure:"mode"`

	// BaseURL is the scoring service root for the http mode.
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`

	// Timeout bounds a single HTTP request. Default: 15s.
	Timeout time.Duration `mapstructure:"timeout"`

	Retry RetryConfig `mapstructure:"retry"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:    "local",
		Timeout: 15 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// Validate checks that the selected mode has what it needs.
func (c Config) Validate() error {
	switch c.Mode {
	case "http":
		if c.BaseURL == "" {
			return fmt.Errorf("ASSESSOR_SCORING_BASE_URL is required for the http scoring mode")
		}
	case "local":
		// In-process recorder.
	default:
		return fmt.Errorf("unknown scoring mode: %q", c.Mode)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("scoring retry max_attempts must be at least 1")
	}
	return nil
}

// NewClient creates a Client from configuration, wrapped with retry and
// logging middleware. The local mode also returns its Recorder so results
// can be published in-process.
func NewClient(cfg Config, log *zap.Logger) (Client, *Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		base Client
		rec  *Recorder
	)
	switch cfg.Mode {
	case "http":
		base = NewHTTPClient(cfg.BaseURL, cfg.Token, cfg.Timeout)
	case "local":
		rec = NewRecorder()
		base = rec
	}

	// Wrap with middleware: caller → retry → logging → base
	logged := WithLogging(base, log)
	return WithRetry(logged, cfg.Retry), rec, nil
}
