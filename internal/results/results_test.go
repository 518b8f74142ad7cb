package results

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/scoring"
)

func workedExample() *scoring.ScoreSet {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return &scoring.ScoreSet{
		AttemptID:   "att-1",
		CandidateID: "cand-1",
		Scores:      map[string]float64{"FLAT": 75, "ASP": 80, "VAL": 65, "MS": 85},
		Subskills:   map[string]float64{"grammar": 70, "vocab": 90},
		StartedAt:   start,
		CompletedAt: start.Add(42 * time.Minute),
		Confidence:  0.87,
	}
}

func TestAssemble(t *testing.T) {
	r, err := Assemble(workedExample(), rubric.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, r.Ready())
	assert.Equal(t, 76.0, r.Composite)
	assert.Equal(t, 76, r.Rounded)
	assert.Equal(t, rubric.BucketAdmit, r.Bucket)
	assert.Equal(t, 42*time.Minute, r.Duration)
	assert.Equal(t, 0.87, r.Confidence)
	assert.ElementsMatch(t, []string{"FLAT", "ASP", "MS"}, r.Strengths)
	assert.Empty(t, r.DevelopmentAreas)
	require.Len(t, r.Drivers, 3)
	assert.Contains(t, r.Drivers[0], "FLAT contributed 30.0")
	assert.Equal(t, "Review and accept your offer", r.NextSteps[0])
	assert.Len(t, r.Subskills, 2)
}

func TestAssembleDevelopmentAreas(t *testing.T) {
	set := workedExample()
	set.Scores = map[string]float64{"FLAT": 45, "ASP": 55, "VAL": 50, "MS": 40}

	r, err := Assemble(set, rubric.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, rubric.BucketBridge, r.Bucket)
	assert.ElementsMatch(t, []string{"FLAT", "VAL", "MS"}, r.DevelopmentAreas)
	assert.Contains(t, r.NextSteps, "Prepare further for MS")
}

func TestAssembleRejectsIncompleteScores(t *testing.T) {
	set := workedExample()
	delete(set.Scores, "MS")
	_, err := Assemble(set, rubric.DefaultConfig())
	assert.Error(t, err)
}

func TestServiceFetch(t *testing.T) {
	ctx := context.Background()
	rec := scoring.NewRecorder()
	m := rubric.NewManager(&rubric.MemoryRepo{}, nil)
	require.NoError(t, m.Load(ctx))
	svc := NewService(rec, m, nil)

	r, err := svc.Fetch(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, r.Status)
	assert.False(t, r.Ready())

	rec.Publish(*workedExample())
	r, err = svc.Fetch(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, rubric.BucketAdmit, r.Bucket)

	// A committed rubric change is reflected on the next fetch.
	draft := m.Draft()
	draft.Thresholds = rubric.Thresholds{Admit: 80, Counselling: 60, Bridge: 40}
	require.NoError(t, m.Commit(ctx, draft))
	r, err = svc.Fetch(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, rubric.BucketCounselling, r.Bucket)
}
