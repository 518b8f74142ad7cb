package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/attempt/attempttest"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/timer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(context.Background(), DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	require.Error(t, err)
}

func TestSQLAttemptStore(t *testing.T) {
	attempttest.Run(t, func(t *testing.T, clock timer.Clock) attempt.Store {
		return openTestStore(t).AttemptRepo(clock)
	})
}

func TestRedisAttemptStore(t *testing.T) {
	attempttest.Run(t, func(t *testing.T, clock timer.Clock) attempt.Store {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		return NewRedisAttemptStore(rdb, 0, clock)
	})
}

func TestRedisAttemptStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	s := NewRedisAttemptStore(rdb, time.Hour, timer.RealClock{})
	st, err := s.Create(ctx, "cand", "FLAT")
	require.NoError(t, err)
	assert.True(t, mr.Exists(attemptKey(st.ID)))

	mr.FastForward(2 * time.Hour)

	_, err = s.Load(ctx, st.ID)
	assert.True(t, apperr.IsNotFound(err))

	list, err := s.List(ctx, "cand")
	require.NoError(t, err)
	assert.Empty(t, list, "expired attempts are dropped from listings")
}

func TestRubricRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.RubricRepo(timer.RealClock{})
	ctx := context.Background()

	cfg, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg, "no rubric before the first save")

	bad := rubric.DefaultConfig()
	bad.ComponentWeights["FLAT"] = 10
	var cie *apperr.ConfigInvalidError
	require.ErrorAs(t, repo.Save(ctx, bad), &cie)
	cfg, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg, "invalid config must not be persisted")

	good := rubric.DefaultConfig()
	good.Thresholds.Admit = 75
	require.NoError(t, repo.Save(ctx, good))
	good.Thresholds.Admit = 80
	require.NoError(t, repo.Save(ctx, good))

	cfg, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, good, *cfg)

	var rows int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM rubric_config").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestRubricManagerOverSQL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := rubric.NewManager(s.RubricRepo(timer.RealClock{}), nil)
	require.NoError(t, m.Load(ctx))
	draft := m.Draft()
	draft.Thresholds = rubric.Thresholds{Admit: 80, Counselling: 60, Bridge: 45}
	require.NoError(t, m.Commit(ctx, draft))

	again := rubric.NewManager(s.RubricRepo(timer.RealClock{}), nil)
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, 80.0, again.Current().Thresholds.Admit)
}

func TestJournal(t *testing.T) {
	s := openTestStore(t)
	j := s.Journal()
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.Append(ctx, attempt.Event{AttemptID: "a1", Kind: attempt.EventStarted, At: at}))
	require.NoError(t, j.Append(ctx, attempt.Event{AttemptID: "a2", Kind: attempt.EventStarted, At: at}))
	require.NoError(t, j.Append(ctx, attempt.Event{AttemptID: "a1", Kind: attempt.EventSkipped, Item: 3, At: at.Add(time.Minute)}))
	require.NoError(t, j.Append(ctx, attempt.Event{AttemptID: "a1", Kind: attempt.EventRejected, Item: 9, Detail: "gateway timeout", At: at.Add(2 * time.Minute)}))

	events, err := j.Events(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, attempt.EventStarted, events[0].Kind)
	assert.Equal(t, attempt.EventSkipped, events[1].Kind)
	assert.Equal(t, 3, events[1].Item)
	assert.Equal(t, "gateway timeout", events[2].Detail)
	assert.True(t, events[2].At.Equal(at.Add(2*time.Minute)))
	assert.Less(t, events[0].Sequence, events[1].Sequence)
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("ASSESSOR_DB", dir+"/custom/a.db")
	p, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, dir+"/custom/a.db", p)
	assert.DirExists(t, dir+"/custom")

	t.Setenv("ASSESSOR_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, dir+"/assessor/assessor.db", p)
}
