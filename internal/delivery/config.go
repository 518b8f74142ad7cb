package delivery

import (
	"fmt"
	"time"
)

// Config tunes a Machine.
type Config struct {
	// AutosaveInterval is the period of the autosave task while Active.
	// Default: 10s.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`

	// SubmitTimeout bounds one hand-off to the scoring boundary,
	// retries included. Default: 60s.
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`

	// UpdateBuffer is the capacity of the Updates channel. Updates are
	// dropped when the reader falls behind. Default: 64.
	UpdateBuffer int `mapstructure:"update_buffer"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AutosaveInterval: 10 * time.Second,
		SubmitTimeout:    60 * time.Second,
		UpdateBuffer:     64,
	}
}

// Validate checks that every period is usable.
func (c Config) Validate() error {
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("delivery autosave_interval must be positive, got %s", c.AutosaveInterval)
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("delivery submit_timeout must be positive, got %s", c.SubmitTimeout)
	}
	if c.UpdateBuffer < 0 {
		return fmt.Errorf("delivery update_buffer must not be negative")
	}
	return nil
}
