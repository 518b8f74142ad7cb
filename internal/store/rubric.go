package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/timer"
)

const rubricTable = "rubric_config"

// rubricRepo stores the committed rubric as a single row.
type rubricRepo struct {
	s     *Store
	clock timer.Clock
}

func (r *rubricRepo) Load(ctx context.Context) (*rubric.Config, error) {
	query, args := r.s.builder().Select("data").
		From(entsql.Table(rubricTable)).
		Where(entsql.EQ("id", 1)).
		Query()

	var data string
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load rubric: %w", err)
	}

	var cfg rubric.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode rubric: %w", err)
	}
	return &cfg, nil
}

// Save refuses an invalid config so one can never be persisted.
func (r *rubricRepo) Save(ctx context.Context, cfg rubric.Config) error {
	if err := rubric.Validate(cfg); err != nil {
		return err
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode rubric: %w", err)
	}

	query, args := r.s.builder().Insert(rubricTable).
		Columns("id", "updated_at", "data").
		Values(1, r.clock.Now().UnixNano(), string(b)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save rubric: %w", err)
	}
	return nil
}
