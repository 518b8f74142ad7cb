// Package results assembles the presentable result of a completed attempt
// from the scoring boundary's score set and the committed rubric.
package results

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/scoring"
)

// Status tells whether a result is ready.
type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
)

// Result is the record shown to a candidate or reviewer.
type Result struct {
	AttemptID   string `json:"attemptId"`
	CandidateID string `json:"candidateId,omitempty"`
	Status      Status `json:"status"`

	Scores        map[string]float64     `json:"scores,omitempty"`
	Composite     float64                `json:"composite"`
	Rounded       int                    `json:"rounded"`
	Bucket        rubric.Bucket          `json:"bucket,omitempty"`
	Contributions []rubric.Contribution  `json:"contributions,omitempty"`
	Subskills     []rubric.SubskillScore `json:"subskills,omitempty"`

	Strengths        []string `json:"strengths,omitempty"`
	DevelopmentAreas []string `json:"developmentAreas,omitempty"`
	Drivers          []string `json:"drivers,omitempty"`
	NextSteps        []string `json:"nextSteps,omitempty"`

	CompletedAt time.Time     `json:"completedAt,omitzero"`
	Duration    time.Duration `json:"duration,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
}

// Ready reports whether the result carries scores.
func (r *Result) Ready() bool { return r.Status == StatusReady }

// Pending is the result of an attempt still being scored.
func Pending(attemptID string) *Result {
	return &Result{AttemptID: attemptID, Status: StatusProcessing}
}

// Assemble evaluates set under cfg.
func Assemble(set *scoring.ScoreSet, cfg rubric.Config) (*Result, error) {
	out, err := rubric.Evaluate(set.Scores, set.Subskills, cfg)
	if err != nil {
		return nil, fmt.Errorf("evaluate attempt %s: %w", set.AttemptID, err)
	}

	r := &Result{
		AttemptID:     set.AttemptID,
		CandidateID:   set.CandidateID,
		Status:        StatusReady,
		Scores:        maps.Clone(set.Scores),
		Composite:     out.Composite,
		Rounded:       out.Rounded,
		Bucket:        out.Bucket,
		Contributions: out.Contributions,
		Subskills:     out.Subskills,
		CompletedAt:   set.CompletedAt,
		Confidence:    set.Confidence,
	}
	if !set.StartedAt.IsZero() && set.CompletedAt.After(set.StartedAt) {
		r.Duration = set.CompletedAt.Sub(set.StartedAt)
	}

	for _, c := range out.Contributions {
		switch {
		case c.Score >= cfg.Thresholds.Admit:
			r.Strengths = append(r.Strengths, c.ComponentID)
		case c.Score < cfg.Thresholds.Counselling:
			r.DevelopmentAreas = append(r.DevelopmentAreas, c.ComponentID)
		}
	}
	r.Drivers = drivers(out)
	r.NextSteps = nextSteps(out.Bucket, r.DevelopmentAreas)
	return r, nil
}

// drivers describes the components that moved the composite most, largest
// share first.
func drivers(out *rubric.Outcome) []string {
	contribs := slices.Clone(out.Contributions)
	slices.SortStableFunc(contribs, func(a, b rubric.Contribution) int {
		switch {
		case a.Points > b.Points:
			return -1
		case a.Points < b.Points:
			return 1
		}
		return 0
	})
	if len(contribs) > 3 {
		contribs = contribs[:3]
	}
	lines := make([]string, 0, len(contribs))
	for _, c := range contribs {
		lines = append(lines, fmt.Sprintf("%s contributed %.1f of %d points (score %g, weight %g%%)",
			c.ComponentID, c.Points, out.Rounded, c.Score, c.Weight))
	}
	return lines
}

func nextSteps(b rubric.Bucket, development []string) []string {
	var steps []string
	switch b {
	case rubric.BucketAdmit:
		steps = []string{"Review and accept your offer", "Complete the enrolment documents"}
	case rubric.BucketCounselling:
		steps = []string{"Book a counselling session with an advisor", "Bring questions about your programme choice"}
	case rubric.BucketBridge:
		steps = []string{"Enrol in the bridge programme", "Plan a retest once the bridge modules are complete"}
	default:
		steps = []string{"Review the feedback on your development areas", "Retake the assessment after the waiting period"}
	}
	for _, d := range development {
		steps = append(steps, "Prepare further for "+d)
	}
	return steps
}

// Service fetches and assembles results.
type Service struct {
	client scoring.Client
	rubric *rubric.Manager
	log    *zap.Logger
}

// NewService returns a Service reading scores from client and evaluating
// them under the rubric committed in m.
func NewService(client scoring.Client, m *rubric.Manager, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, rubric: m, log: log.Named("results")}
}

// Fetch returns the result for attemptID, or a processing placeholder when
// the results boundary has nothing yet.
func (s *Service) Fetch(ctx context.Context, attemptID string) (*Result, error) {
	set, err := s.client.FetchResult(ctx, attemptID)
	if errors.Is(err, scoring.ErrNotAvailable) {
		s.log.Debug("result still processing", zap.String("attempt", attemptID))
		return Pending(attemptID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch result %s: %w", attemptID, err)
	}
	return Assemble(set, s.rubric.Current())
}
