package content

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/question"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns a source serving the bundled FLAT, ASP, VAL and MS
// components.
func Builtin() *DirSource {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return NewFSSource(sub)
}

// Chain tries each source in order and returns the first definition found.
type Chain []Source

func (c Chain) FetchComponent(ctx context.Context, id string) (*question.Component, error) {
	for _, s := range c {
		comp, err := s.FetchComponent(ctx, id)
		if apperr.IsNotFound(err) {
			continue
		}
		return comp, err
	}
	return nil, apperr.NotFound("component", id)
}

// List merges the ids of every listable source, in chain order.
func (c Chain) List() ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range c {
		l, ok := s.(Lister)
		if !ok {
			continue
		}
		got, err := l.List()
		if err != nil {
			return nil, err
		}
		for _, id := range got {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// Catalog fetches every component src can list. Components that fail to
// load are reported together after the rest are returned.
func Catalog(ctx context.Context, src Source) ([]*question.Component, error) {
	l, ok := src.(Lister)
	if !ok {
		return nil, nil
	}
	ids, err := l.List()
	if err != nil {
		return nil, err
	}
	var (
		out  []*question.Component
		errs []error
	)
	for _, id := range ids {
		c, err := src.FetchComponent(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

// ErrNoSource is returned by New when no directory is configured and the
// builtin set is disabled.
var ErrNoSource = errors.New("no content source configured")

// Config selects where component definitions come from.
type Config struct {
	// Dir holds <id>.yaml|.yml|.json files. Empty disables it.
	Dir string `mapstructure:"dir"`

	// Builtin serves the bundled components after Dir. Default: true.
	Builtin bool `mapstructure:"builtin"`
}

// DefaultConfig returns a Config serving only the bundled components.
func DefaultConfig() Config {
	return Config{Builtin: true}
}

// New builds the source described by cfg.
func New(cfg Config) (Source, error) {
	var chain Chain
	if cfg.Dir != "" {
		chain = append(chain, NewDirSource(cfg.Dir))
	}
	if cfg.Builtin {
		chain = append(chain, Builtin())
	}
	switch len(chain) {
	case 0:
		return nil, ErrNoSource
	case 1:
		return chain[0], nil
	}
	return chain, nil
}
