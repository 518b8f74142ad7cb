package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/candidus/assessor/internal/attempt"
)

const eventsTable = "attempt_events"

// journal appends attempt lifecycle events. The autoincrement key gives a
// single ordering across all attempts.
type journal struct {
	s *Store
}

func (j *journal) Append(ctx context.Context, ev attempt.Event) error {
	query, args := j.s.builder().Insert(eventsTable).
		Columns("attempt_id", "kind", "item", "detail", "at").
		Values(ev.AttemptID, string(ev.Kind), ev.Item, ev.Detail, ev.At.UnixNano()).
		Query()
	if _, err := j.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append %s event: %w", ev.Kind, err)
	}
	return nil
}

func (j *journal) Events(ctx context.Context, attemptID string) ([]attempt.Event, error) {
	query, args := j.s.builder().Select("seq", "attempt_id", "kind", "item", "detail", "at").
		From(entsql.Table(eventsTable)).
		Where(entsql.EQ("attempt_id", attemptID)).
		OrderBy("seq").
		Query()

	rows, err := j.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []attempt.Event
	for rows.Next() {
		var (
			ev   attempt.Event
			kind string
			at   int64
		)
		if err := rows.Scan(&ev.Sequence, &ev.AttemptID, &kind, &ev.Item, &ev.Detail, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = attempt.EventKind(kind)
		ev.At = time.Unix(0, at).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}
