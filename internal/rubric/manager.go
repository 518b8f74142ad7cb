package rubric

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Repo persists the single committed rubric.
type Repo interface {
	// Load returns the committed config, or nil if none has been saved.
	Load(ctx context.Context) (*Config, error)

	// Save replaces the committed config.
	Save(ctx context.Context, cfg Config) error
}

// Manager holds the committed rubric for the process. Drafts are copies;
// nothing a draft does reaches the committed config until Commit.
type Manager struct {
	repo Repo
	log  *zap.Logger

	mu      sync.RWMutex
	current Config
	loaded  bool
}

// NewManager returns a Manager backed by repo.
func NewManager(repo Repo, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{repo: repo, log: log, current: DefaultConfig()}
}

// Load reads the committed config. When nothing has been persisted the
// defaults are used and saved. A persisted config that fails validation is
// reported rather than coerced.
func (m *Manager) Load(ctx context.Context) error {
	cfg, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rubric: %w", err)
	}
	if cfg == nil {
		def := DefaultConfig()
		if err := m.repo.Save(ctx, def); err != nil {
			return fmt.Errorf("bootstrap rubric: %w", err)
		}
		m.log.Info("no rubric committed, using defaults")
		cfg = &def
	} else if err := Validate(*cfg); err != nil {
		return fmt.Errorf("committed rubric: %w", err)
	}

	m.mu.Lock()
	m.current = cfg.Clone()
	m.loaded = true
	m.mu.Unlock()
	return nil
}

// Current returns a copy of the committed config.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Draft returns an editable copy of the committed config.
func (m *Manager) Draft() Config {
	return m.Current()
}

// Preview evaluates samples under draft. The committed config is untouched.
func (m *Manager) Preview(draft Config, samples []Sample) ([]PreviewRow, error) {
	if samples == nil {
		samples = SampleCandidates()
	}
	return Preview(draft, samples)
}

// Commit validates draft, persists it and makes it current. An invalid
// draft is never persisted.
func (m *Manager) Commit(ctx context.Context, draft Config) error {
	if err := Validate(draft); err != nil {
		return err
	}
	draft = draft.Clone()
	if err := m.repo.Save(ctx, draft); err != nil {
		return fmt.Errorf("save rubric: %w", err)
	}

	m.mu.Lock()
	m.current = draft
	m.loaded = true
	m.mu.Unlock()

	m.log.Info("rubric committed",
		zap.Any("weights", draft.ComponentWeights),
		zap.Float64("admit", draft.Thresholds.Admit),
		zap.Float64("counselling", draft.Thresholds.Counselling),
		zap.Float64("bridge", draft.Thresholds.Bridge))
	return nil
}

// Loaded reports whether Load or Commit has succeeded.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// MemoryRepo keeps the committed rubric in memory.
type MemoryRepo struct {
	mu  sync.Mutex
	cfg *Config
}

func (r *MemoryRepo) Load(ctx context.Context) (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		return nil, nil
	}
	c := r.cfg.Clone()
	return &c, nil
}

func (r *MemoryRepo) Save(ctx context.Context, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := cfg.Clone()
	r.cfg = &c
	return nil
}
