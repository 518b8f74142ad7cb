package delivery

import (
	"time"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/timer"
)

// NavEntry is one cell of the item navigator.
type NavEntry struct {
	Index  int
	Code   string
	Status question.Status
}

// View is an immutable snapshot of a Machine for renderers.
type View struct {
	Phase Phase

	AttemptID     string
	CandidateID   string
	ComponentID   string
	ComponentName string

	Index    int
	Total    int
	Question *question.Question
	Answer   question.Value
	// Provenance of the current slot; empty when the slot is unfilled.
	Provenance attempt.Provenance
	Marked     bool

	Timed     bool
	Remaining int
	Level     timer.Level

	// CanNext reports whether Next would be accepted.
	CanNext bool
	// ConfigError is set when the current item is malformed and may be
	// skipped without an answer.
	ConfigError error

	Navigator   []NavEntry
	Answered    int
	LastSavedAt time.Time
	Submitted   bool

	Err    error
	Action apperr.Action
}

// IsLast reports whether the current item is the final one.
func (v View) IsLast() bool {
	return v.Total > 0 && v.Index == v.Total-1
}

func (m *Machine) publishSnapshot() {
	v := View{Phase: m.phase, Err: m.err}
	if m.err != nil {
		v.Action = apperr.ActionFor(m.err)
	}
	if m.comp != nil {
		v.ComponentID = m.comp.ID
		v.ComponentName = m.comp.Name
		v.Total = len(m.comp.Items)
	}
	if m.st == nil || m.comp == nil {
		m.snap.Store(&v)
		return
	}

	st := m.st
	v.AttemptID = st.ID
	v.CandidateID = st.CandidateID
	v.Index = st.CurrentIndex
	v.LastSavedAt = st.LastSavedAt
	v.Submitted = st.SubmittedAt != nil

	q := m.comp.Items[st.CurrentIndex]
	v.Question = &q
	if a := st.Answers[st.CurrentIndex]; a != nil {
		v.Answer = a.Value
		v.Provenance = a.Provenance
	}
	v.Marked = st.IsMarked(st.CurrentIndex)
	v.ConfigError = question.CheckConfig(&q)
	v.CanNext = v.ConfigError != nil || question.IsComplete(&q, v.Answer)

	if m.phase == PhaseActive && q.Timed() {
		v.Timed = true
		v.Remaining = m.remaining
		v.Level = timer.LevelFor(m.remaining)
	}

	v.Navigator = make([]NavEntry, len(m.comp.Items))
	for i, item := range m.comp.Items {
		answered := false
		if a := st.Answers[i]; a != nil && a.Value != nil {
			answered = true
			v.Answered++
		}
		v.Navigator[i] = NavEntry{
			Index:  i,
			Code:   item.Type.Code(),
			Status: question.StatusOf(st.IsVisited(i), answered, st.IsMarked(i)),
		}
	}
	m.snap.Store(&v)
}
