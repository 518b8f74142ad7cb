package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/timer"
)

// maxWatchRetries bounds optimistic-lock retries on a contended attempt key.
const maxWatchRetries = 5

// RedisAttemptStore keeps each attempt as a JSON blob under attempt:<id>
// and indexes a candidate's attempts in a sorted set by start time.
type RedisAttemptStore struct {
	rdb   redis.UniversalClient
	ttl   time.Duration
	clock timer.Clock
}

// NewRedisAttemptStore returns a store using rdb. A zero ttl keeps
// attempts forever.
func NewRedisAttemptStore(rdb redis.UniversalClient, ttl time.Duration, clock timer.Clock) *RedisAttemptStore {
	return &RedisAttemptStore{rdb: rdb, ttl: ttl, clock: clock}
}

func attemptKey(id string) string { return "attempt:" + id }

func candidateKey(id string) string { return "candidate:" + id + ":attempts" }

func (r *RedisAttemptStore) Create(ctx context.Context, candidateID, componentID string) (*attempt.State, error) {
	st := attempt.NewState(candidateID, componentID, r.clock.Now())
	b, err := attempt.Marshal(st)
	if err != nil {
		return nil, err
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, attemptKey(st.ID), b, r.ttl)
		pipe.ZAdd(ctx, candidateKey(candidateID), redis.Z{
			Score:  float64(st.StartedAt.UnixMilli()),
			Member: st.ID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return st, nil
}

func (r *RedisAttemptStore) Load(ctx context.Context, id string) (*attempt.State, error) {
	b, err := r.rdb.Get(ctx, attemptKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("attempt", id)
		}
		return nil, fmt.Errorf("load attempt %s: %w", id, err)
	}
	return attempt.Unmarshal(b)
}

// Save uses WATCH so the frozen check and the write see the same value.
func (r *RedisAttemptStore) Save(ctx context.Context, s *attempt.State) error {
	key := attemptKey(s.ID)
	var saved time.Time

	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			prev, err := attempt.Unmarshal(b)
			if err != nil {
				return err
			}
			if err := attempt.CheckTransition(prev, s); err != nil {
				return err
			}
		}

		next := s.Clone()
		next.LastSavedAt = r.clock.Now()
		enc, err := attempt.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, enc, r.ttl)
			pipe.ZAdd(ctx, candidateKey(next.CandidateID), redis.Z{
				Score:  float64(next.StartedAt.UnixMilli()),
				Member: next.ID,
			})
			return nil
		})
		if err == nil {
			saved = next.LastSavedAt
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, attempt.ErrFrozen) {
				return err
			}
			return fmt.Errorf("save attempt %s: %w", s.ID, err)
		}
		s.LastSavedAt = saved
		return nil
	}
	return fmt.Errorf("save attempt %s: too much contention", s.ID)
}

// List skips index entries whose attempt has expired.
func (r *RedisAttemptStore) List(ctx context.Context, candidateID string) ([]*attempt.State, error) {
	ids, err := r.rdb.ZRange(ctx, candidateKey(candidateID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = attemptKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	var out []*attempt.State
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		st, err := attempt.Unmarshal([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	attempt.SortByStart(out)
	return out, nil
}
