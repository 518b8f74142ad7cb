// Package scoring is the client side of the external scoring and results
// boundaries.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/question"
)

// ErrNotAvailable means the result has not been produced yet.
var ErrNotAvailable = errors.New("result not available yet")

// Client submits completed attempts and fetches their results.
// Submit must be idempotent per attempt ID.
type Client interface {
	Submit(ctx context.Context, sub Submission) (*Receipt, error)
	FetchResult(ctx context.Context, attemptID string) (*ScoreSet, error)
}

// Response is the wire form of one answered item.
type Response struct {
	ItemID      string             `json:"itemId"`
	Type        question.Type      `json:"type"`
	Value       question.Value     `json:"value"`
	Provenance  attempt.Provenance `json:"provenance"`
	TimeSpentMs int64              `json:"timeSpentMs"`
}

// Submission is the full ordered response list of a frozen attempt.
type Submission struct {
	AttemptID   string     `json:"attemptId"`
	CandidateID string     `json:"candidateId"`
	ComponentID string     `json:"componentId"`
	Responses   []Response `json:"responses"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt time.Time  `json:"completedAt"`
}

// Receipt acknowledges a submission.
type Receipt struct {
	AttemptID string `json:"attemptId"`
	Accepted  bool   `json:"accepted"`
	// Duplicate is set when the boundary had already accepted this attempt.
	Duplicate bool `json:"duplicate,omitempty"`
}

// ScoreSet is what the results boundary returns for a completed attempt.
type ScoreSet struct {
	AttemptID   string             `json:"attemptId"`
	CandidateID string             `json:"candidateId,omitempty"`
	Scores      map[string]float64 `json:"scores"`
	Subskills   map[string]float64 `json:"subskills,omitempty"`
	StartedAt   time.Time          `json:"startedAt,omitempty"`
	CompletedAt time.Time          `json:"completedAt"`
	Confidence  float64            `json:"confidence,omitempty"`
}

// BuildSubmission assembles the ordered responses of a frozen attempt.
// Unanswered slots are sent as skipped.
func BuildSubmission(c *question.Component, st *attempt.State) (*Submission, error) {
	if !st.Frozen() {
		return nil, fmt.Errorf("attempt %s is not completed", st.ID)
	}
	sub := &Submission{
		AttemptID:   st.ID,
		CandidateID: st.CandidateID,
		ComponentID: st.ComponentID,
		Responses:   make([]Response, len(c.Items)),
		StartedAt:   st.StartedAt,
	}
	if st.CompletedAt != nil {
		sub.CompletedAt = *st.CompletedAt
	}
	for i := range c.Items {
		q := &c.Items[i]
		r := Response{ItemID: q.ID, Type: q.Type, Provenance: attempt.ProvenanceSkipped}
		if i < len(st.Answers) && st.Answers[i] != nil {
			a := st.Answers[i]
			r.Value = a.Value
			r.Provenance = a.Provenance
			r.TimeSpentMs = a.TimeSpentMs
		}
		sub.Responses[i] = r
	}
	return sub, nil
}
