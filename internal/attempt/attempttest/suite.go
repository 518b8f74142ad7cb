// Package attempttest holds the behavioural checks every attempt.Store
// backend must pass.
package attempttest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/timer"
)

// Factory returns a fresh, empty store driven by clock.
type Factory func(t *testing.T, clock timer.Clock) attempt.Store

// Run exercises the attempt.Store contract against the backend built by f.
func Run(t *testing.T, f Factory) {
	t.Run("CreateStartsEmpty", func(t *testing.T) {
		clock := timer.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
		s := f(t, clock)
		ctx := context.Background()

		st, err := s.Create(ctx, "cand-1", "FLAT")
		require.NoError(t, err)
		assert.NotEmpty(t, st.ID)
		assert.Equal(t, attempt.StatusInProgress, st.Status)
		assert.Equal(t, 0, st.CurrentIndex)
		assert.Empty(t, st.Answers)
		assert.Empty(t, st.Marked)
		assert.True(t, st.StartedAt.Equal(clock.Now()))

		loaded, err := s.Load(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, "FLAT", loaded.ComponentID)
		assert.Equal(t, "cand-1", loaded.CandidateID)
	})

	t.Run("LoadUnknownIsNotFound", func(t *testing.T) {
		s := f(t, timer.NewFakeClock(time.Now()))
		_, err := s.Load(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err), "got %v", err)
	})

	t.Run("SaveLoadRoundTrip", func(t *testing.T) {
		clock := timer.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
		s := f(t, clock)
		ctx := context.Background()

		st, err := s.Create(ctx, "cand-2", "VAL")
		require.NoError(t, err)
		st.Resize(4)
		st.Answers[0] = &attempt.Answer{
			Value:       question.Match{Pairs: []question.Pair{{PromptID: "p1", TargetID: "t2"}}},
			Provenance:  attempt.ProvenanceAnswered,
			TimeSpentMs: 12000,
			Timestamp:   clock.Now(),
		}
		st.Answers[1] = &attempt.Answer{Provenance: attempt.ProvenanceTimeout, TimeSpentMs: 30000, Timestamp: clock.Now()}
		st.Answers[2] = &attempt.Answer{Provenance: attempt.ProvenanceSkipped, Timestamp: clock.Now()}
		st.CurrentIndex = 3
		st.ToggleMark(1)
		st.Visit(0)
		st.Visit(1)

		clock.Advance(5 * time.Second)
		require.NoError(t, s.Save(ctx, st))
		assert.True(t, st.LastSavedAt.Equal(clock.Now()), "save stamps lastSavedAt")

		got, err := s.Load(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.CurrentIndex)
		assert.Equal(t, []int{1}, got.Marked)
		assert.Equal(t, []int{0, 1}, got.Visited)
		require.Len(t, got.Answers, 4)
		assert.Equal(t, st.Answers[0].Value, got.Answers[0].Value)
		assert.Nil(t, got.Answers[1].Value)
		assert.Equal(t, attempt.ProvenanceTimeout, got.Answers[1].Provenance)
		assert.Equal(t, attempt.ProvenanceSkipped, got.Answers[2].Provenance)
		assert.Nil(t, got.Answers[3])
		assert.True(t, got.LastSavedAt.Equal(clock.Now()))
	})

	t.Run("SaveIsIdempotent", func(t *testing.T) {
		clock := timer.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
		s := f(t, clock)
		ctx := context.Background()

		st, err := s.Create(ctx, "cand-3", "ASP")
		require.NoError(t, err)
		st.Resize(2)
		st.Answers[0] = &attempt.Answer{Value: question.Single{Index: 1}, Provenance: attempt.ProvenanceAnswered}
		require.NoError(t, s.Save(ctx, st))
		first, err := s.Load(ctx, st.ID)
		require.NoError(t, err)

		require.NoError(t, s.Save(ctx, st))
		second, err := s.Load(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("CompletedAttemptIsFrozen", func(t *testing.T) {
		clock := timer.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
		s := f(t, clock)
		ctx := context.Background()

		st, err := s.Create(ctx, "cand-4", "MS")
		require.NoError(t, err)
		st.Resize(1)
		st.Answers[0] = &attempt.Answer{Value: question.Likert{Point: 3}, Provenance: attempt.ProvenanceAnswered}
		st.Status = attempt.StatusCompleted
		now := clock.Now()
		st.CompletedAt = &now
		require.NoError(t, s.Save(ctx, st))

		changed := st.Clone()
		changed.Answers[0] = &attempt.Answer{Value: question.Likert{Point: 5}, Provenance: attempt.ProvenanceAnswered}
		assert.ErrorIs(t, s.Save(ctx, changed), attempt.ErrFrozen)

		reopened := st.Clone()
		reopened.Status = attempt.StatusInProgress
		assert.ErrorIs(t, s.Save(ctx, reopened), attempt.ErrFrozen)

		accepted := st.Clone()
		accepted.SubmittedAt = &now
		require.NoError(t, s.Save(ctx, accepted), "submission bookkeeping may change")

		got, err := s.Load(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, question.Likert{Point: 3}, got.Answers[0].Value)
		require.NotNil(t, got.SubmittedAt)
	})

	t.Run("ListByCandidate", func(t *testing.T) {
		clock := timer.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
		s := f(t, clock)
		ctx := context.Background()

		a, err := s.Create(ctx, "cand-5", "FLAT")
		require.NoError(t, err)
		clock.Advance(time.Minute)
		b, err := s.Create(ctx, "cand-5", "ASP")
		require.NoError(t, err)
		_, err = s.Create(ctx, "someone-else", "FLAT")
		require.NoError(t, err)

		list, err := s.List(ctx, "cand-5")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, b.ID, list[1].ID)

		none, err := s.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
