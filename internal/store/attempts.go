package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/timer"
)

const attemptsTable = "attempts"

// attemptRepo implements attempt.Store over SQL. Each attempt is one row
// holding the full encoded state plus the columns used for listing.
type attemptRepo struct {
	s     *Store
	clock timer.Clock
}

func (r *attemptRepo) Create(ctx context.Context, candidateID, componentID string) (*attempt.State, error) {
	st := attempt.NewState(candidateID, componentID, r.clock.Now())
	b, err := attempt.Marshal(st)
	if err != nil {
		return nil, err
	}

	query, args := r.s.builder().Insert(attemptsTable).
		Columns("id", "candidate_id", "component_id", "status", "started_at", "updated_at", "data").
		Values(st.ID, candidateID, componentID, string(st.Status),
			st.StartedAt.UnixNano(), st.LastSavedAt.UnixNano(), string(b)).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return st, nil
}

func (r *attemptRepo) Load(ctx context.Context, id string) (*attempt.State, error) {
	return r.load(ctx, r.s.db, id, false)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *attemptRepo) load(ctx context.Context, q queryer, id string, lock bool) (*attempt.State, error) {
	sel := r.s.builder().Select("data").
		From(entsql.Table(attemptsTable)).
		Where(entsql.EQ("id", id))
	if lock && r.s.driver == DriverPostgres {
		sel.ForUpdate()
	}
	query, args := sel.Query()

	var data string
	if err := q.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("attempt", id)
		}
		return nil, fmt.Errorf("load attempt %s: %w", id, err)
	}
	return attempt.Unmarshal([]byte(data))
}

// Save writes s inside a transaction so the frozen check and the write
// see the same row.
func (r *attemptRepo) Save(ctx context.Context, s *attempt.State) (err error) {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	prev, err := r.load(ctx, tx, s.ID, true)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	if err := attempt.CheckTransition(prev, s); err != nil {
		return err
	}

	next := s.Clone()
	next.LastSavedAt = r.clock.Now()
	b, err := attempt.Marshal(next)
	if err != nil {
		return err
	}

	query, args := r.s.builder().Insert(attemptsTable).
		Columns("id", "candidate_id", "component_id", "status", "started_at", "updated_at", "data").
		Values(next.ID, next.CandidateID, next.ComponentID, string(next.Status),
			next.StartedAt.UnixNano(), next.LastSavedAt.UnixNano(), string(b)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt %s: %w", s.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attempt %s: %w", s.ID, err)
	}

	s.LastSavedAt = next.LastSavedAt
	return nil
}

func (r *attemptRepo) List(ctx context.Context, candidateID string) ([]*attempt.State, error) {
	query, args := r.s.builder().Select("data").
		From(entsql.Table(attemptsTable)).
		Where(entsql.EQ("candidate_id", candidateID)).
		OrderBy("started_at", "id").
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []*attempt.State
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		st, err := attempt.Unmarshal([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
