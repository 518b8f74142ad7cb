package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/config"
	"github.com/candidus/assessor/internal/content"
	"github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/results"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/scoring"
	"github.com/candidus/assessor/internal/timer"
)

func testComponent() *question.Component {
	return &question.Component{
		ID:   "FLAT",
		Name: "Foundational",
		Items: []question.Question{
			{ID: "q1", Type: question.TypeSingle, Stem: "One", Options: []string{"a", "b"}},
			{ID: "q2", Type: question.TypeSingle, Stem: "Two", Options: []string{"a", "b"}},
		},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	clock := timer.NewFakeClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	rec := scoring.NewRecorder()
	s, err := New(context.Background(), Options{
		Attempts:   attempt.NewMemoryStore(clock),
		Journal:    &attempt.MemoryJournal{},
		Content:    content.NewMemorySource(testComponent()),
		Scoring:    rec,
		Recorder:   rec,
		RubricRepo: &rubric.MemoryRepo{},
		Clock:      clock,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestBeginStartsDelivery(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	m, err := s.Begin(ctx, "cand-1", "FLAT")
	require.NoError(t, err)
	v := m.View()
	assert.Equal(t, delivery.PhaseActive, v.Phase)
	assert.Equal(t, "cand-1", v.CandidateID)
	assert.Equal(t, 2, v.Total)

	again, err := s.Resume(ctx, v.AttemptID)
	require.NoError(t, err)
	assert.Same(t, m, again, "a running attempt has one machine")

	list, err := s.List(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, v.AttemptID, list[0].ID)
}

func TestBeginUnknownComponentCreatesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	_, err := s.Begin(ctx, "cand-1", "NOPE")
	assert.True(t, apperr.IsNotFound(err))

	list, err := s.List(ctx, "cand-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResultLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	m, err := s.Begin(ctx, "cand-1", "FLAT")
	require.NoError(t, err)
	id := m.View().AttemptID

	_, err = s.Result(ctx, id)
	assert.ErrorIs(t, err, ErrNotCompleted)

	_, err = s.Result(ctx, "missing")
	assert.True(t, IsNotFound(err))

	require.NoError(t, m.Submit(ctx))
	require.Eventually(t, func() bool { return m.View().Phase == delivery.PhaseCompleted }, time.Second, time.Millisecond)

	r, err := s.Result(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, results.StatusProcessing, r.Status)

	s.Recorder.Publish(scoring.ScoreSet{
		AttemptID: id,
		Scores:    map[string]float64{"FLAT": 75, "ASP": 80, "VAL": 65, "MS": 85},
	})
	r, err = s.Result(ctx, id)
	require.NoError(t, err)
	assert.True(t, r.Ready())
	assert.Equal(t, "cand-1", r.CandidateID)
	assert.Equal(t, 76, r.Rounded)
	assert.Equal(t, rubric.BucketAdmit, r.Bucket)
}

func TestCloseSavesRunningAttemptsAndClearsSession(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	store := s.Attempts

	m, err := s.Begin(ctx, "cand-1", "FLAT")
	require.NoError(t, err)
	require.NoError(t, m.Answer(ctx, question.Single{Index: 1}))
	id := m.View().AttemptID

	closed := false
	s.closers = append(s.closers, func() error { closed = true; return nil })

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx), "close is idempotent")
	assert.True(t, closed)
	assert.Nil(t, s.Attempts)
	assert.Nil(t, s.Rubric)

	select {
	case <-m.Done():
	default:
		t.Fatal("machine still running after session close")
	}

	st, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, st.Answers[0])
	assert.Equal(t, question.Single{Index: 1}, st.Answers[0].Value)

	_, err = s.Begin(ctx, "cand-1", "FLAT")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestNewSessionFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Store.DSN = "file:" + t.Name() + "?mode=memory&cache=shared"

	s, err := NewSession(ctx, &cfg, nil)
	require.NoError(t, err)
	defer s.Close(ctx)

	assert.NotNil(t, s.Recorder, "local scoring is in-process")
	assert.Equal(t, rubric.DefaultConfig().Thresholds, s.Rubric.Current().Thresholds)

	m, err := s.Begin(ctx, "cand-1", "MS")
	require.NoError(t, err)
	assert.Equal(t, "Mindset", m.View().ComponentName)
}
