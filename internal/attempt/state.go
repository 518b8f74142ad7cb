// Package attempt models one candidate's progress through a component and
// defines the store contract that persists it.
package attempt

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/candidus/assessor/internal/question"
)

// Status is the lifecycle status of an attempt.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Provenance records how an answer slot came to be filled.
type Provenance string

const (
	ProvenanceAnswered Provenance = "answered"
	ProvenanceSkipped  Provenance = "skipped"
	ProvenanceTimeout  Provenance = "timeout"
)

// Answer is the recorded response to one item. Value is nil for skipped
// and timed-out items.
type Answer struct {
	Value       question.Value
	Provenance  Provenance
	TimeSpentMs int64
	Timestamp   time.Time
}

type answerJSON struct {
	Type        question.Type   `json:"type,omitempty"`
	Value       json.RawMessage `json:"value"`
	Provenance  Provenance      `json:"provenance"`
	TimeSpentMs int64           `json:"timeSpentMs"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (a Answer) MarshalJSON() ([]byte, error) {
	raw, err := question.EncodeValue(a.Value)
	if err != nil {
		return nil, err
	}
	w := answerJSON{
		Value:       raw,
		Provenance:  a.Provenance,
		TimeSpentMs: a.TimeSpentMs,
		Timestamp:   a.Timestamp,
	}
	if a.Value != nil {
		w.Type = a.Value.Type()
	}
	return json.Marshal(w)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	var w answerJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var v question.Value
	if w.Type != "" {
		var err error
		if v, err = question.DecodeValue(w.Type, w.Value); err != nil {
			return err
		}
	}
	*a = Answer{
		Value:       v,
		Provenance:  w.Provenance,
		TimeSpentMs: w.TimeSpentMs,
		Timestamp:   w.Timestamp,
	}
	return nil
}

// State is the persisted progress of one attempt. Answers is aligned with
// the component's item list; a nil slot has never been answered.
type State struct {
	ID           string     `json:"attemptId"`
	CandidateID  string     `json:"candidateId"`
	ComponentID  string     `json:"componentId"`
	Answers      []*Answer  `json:"answers"`
	CurrentIndex int        `json:"currentIndex"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	LastSavedAt  time.Time  `json:"lastSavedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
	Marked       []int      `json:"markedForReview"`
	Visited      []int      `json:"visited,omitempty"`
}

// Frozen reports whether the attempt has been completed and its answers
// may no longer change.
func (s *State) Frozen() bool { return s.Status == StatusCompleted }

// Clone returns a deep copy. Values are treated as immutable and shared.
func (s *State) Clone() *State {
	c := *s
	c.Answers = make([]*Answer, len(s.Answers))
	for i, a := range s.Answers {
		if a != nil {
			cp := *a
			c.Answers[i] = &cp
		}
	}
	c.Marked = slices.Clone(s.Marked)
	c.Visited = slices.Clone(s.Visited)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

// Resize aligns the answer slots with a component of n items.
func (s *State) Resize(n int) {
	switch {
	case len(s.Answers) < n:
		s.Answers = append(s.Answers, make([]*Answer, n-len(s.Answers))...)
	case len(s.Answers) > n:
		s.Answers = s.Answers[:n]
	}
}

// IsMarked reports whether item i is marked for review.
func (s *State) IsMarked(i int) bool {
	_, ok := slices.BinarySearch(s.Marked, i)
	return ok
}

// ToggleMark flips the review mark of item i and reports the new state.
func (s *State) ToggleMark(i int) bool {
	pos, ok := slices.BinarySearch(s.Marked, i)
	if ok {
		s.Marked = slices.Delete(s.Marked, pos, pos+1)
		return false
	}
	s.Marked = slices.Insert(s.Marked, pos, i)
	return true
}

// Visit records that item i has been shown.
func (s *State) Visit(i int) {
	pos, ok := slices.BinarySearch(s.Visited, i)
	if !ok {
		s.Visited = slices.Insert(s.Visited, pos, i)
	}
}

// IsVisited reports whether item i has been shown.
func (s *State) IsVisited(i int) bool {
	_, ok := slices.BinarySearch(s.Visited, i)
	return ok
}

// Check validates the state against a component of n items.
func (s *State) Check(n int) error {
	if n <= 0 {
		return fmt.Errorf("attempt %s: component has no items", s.ID)
	}
	if s.Status != StatusInProgress && s.Status != StatusCompleted {
		return fmt.Errorf("attempt %s: unknown status %q", s.ID, s.Status)
	}
	if s.CurrentIndex < 0 || s.CurrentIndex >= n {
		return fmt.Errorf("attempt %s: current index %d outside 0..%d", s.ID, s.CurrentIndex, n-1)
	}
	if len(s.Answers) > n {
		return fmt.Errorf("attempt %s: %d answers for %d items", s.ID, len(s.Answers), n)
	}
	for _, m := range s.Marked {
		if m < 0 || m >= n {
			return fmt.Errorf("attempt %s: marked item %d outside 0..%d", s.ID, m, n-1)
		}
	}
	return nil
}

// Marshal encodes s for a key-value backend.
func Marshal(s *State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode attempt %s: %w", s.ID, err)
	}
	return b, nil
}

// Unmarshal decodes a State written by Marshal.
func Unmarshal(b []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode attempt: %w", err)
	}
	return &s, nil
}
