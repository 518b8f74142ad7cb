package delivery

import (
	"context"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/content"
	dlv "github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/scoring"
	"github.com/candidus/assessor/internal/timer"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func ctrlKey(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}
}

type stubScreen struct{ title string }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

type fixture struct {
	clock   *timer.FakeClock
	store   attempt.Store
	attempt string
	machine *dlv.Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, &question.Component{
		ID:   "FLAT",
		Name: "Foundational",
		Items: []question.Question{
			{ID: "q1", Type: question.TypeSingle, Stem: "Pick one", Options: []string{"a", "b", "c"}},
			{ID: "q2", Type: question.TypeMulti, Stem: "Pick some", Options: []string{"x", "y", "z"}},
		},
	})
}

func newFixtureWith(t *testing.T, comp *question.Component) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := timer.NewFakeClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	store := attempt.NewMemoryStore(clock)
	st, err := store.Create(ctx, "cand-1", comp.ID)
	require.NoError(t, err)

	m, err := dlv.New(dlv.Deps{
		Content:  content.NewMemorySource(comp),
		Attempts: store,
		Scoring:  scoring.NewMockClient(),
		Clock:    clock,
	}, dlv.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(ctx) })
	require.NoError(t, m.Start(ctx, st.ID))

	return &fixture{clock: clock, store: store, attempt: st.ID, machine: m}
}

func (f *fixture) load(t *testing.T) *attempt.State {
	t.Helper()
	st, err := f.store.Load(context.Background(), f.attempt)
	require.NoError(t, err)
	return st
}

// send delivers msg and runs the operation it starts, if any, feeding the
// result back to the screen.
func send(s *DeliveryScreen, msg tea.Msg) tea.Cmd {
	_, cmd := s.Update(msg)
	if !s.busy || cmd == nil {
		return cmd
	}
	_, cmd = s.Update(cmd())
	return cmd
}

// typeText types text one key at a time, delivering each answer capture
// back to the screen.
func typeText(s *DeliveryScreen, text string) {
	for _, r := range text {
		_, cmd := s.Update(keyPress(r))
		deliverCaptures(s, cmd)
	}
}

// deliverCaptures runs cmd and feeds any answer capture it produces back
// to the screen. Commands that do not return promptly, such as cursor
// blinks, are abandoned.
func deliverCaptures(s *DeliveryScreen, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()

	select {
	case msg := <-out:
		switch msg := msg.(type) {
		case tea.BatchMsg:
			for _, c := range msg {
				deliverCaptures(s, c)
			}
		case answerCapturedMsg:
			_, next := s.Update(msg)
			deliverCaptures(s, next)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEnterStoresAnswerAndAdvances(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	typeText(s, "2")
	send(s, specialKey(tea.KeyEnter))

	assert.Equal(t, 1, s.view.Index)
	assert.Empty(t, s.input.Value(), "input reloads for the new item")

	st := f.load(t)
	assert.Equal(t, 1, st.CurrentIndex)
	require.NotNil(t, st.Answers[0])
	assert.Equal(t, question.Single{Index: 1}, st.Answers[0].Value)
}

func TestUnparseableAnswerStays(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	typeText(s, "x")
	cmd := send(s, specialKey(tea.KeyEnter))

	assert.Nil(t, cmd)
	assert.True(t, s.input.HasProblem())
	assert.Equal(t, 0, f.machine.View().Index)
}

func TestIncompleteAnswerShowsValidationProblem(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	send(s, specialKey(tea.KeyEnter))

	assert.True(t, s.input.HasProblem())
	assert.Equal(t, 0, s.view.Index)
}

func TestPreviousRestoresTypedAnswer(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	typeText(s, "3")
	send(s, specialKey(tea.KeyEnter))
	typeText(s, "1,2")
	send(s, tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift})

	assert.Equal(t, 0, s.view.Index)
	assert.Equal(t, "3", s.input.Value())

	st := f.load(t)
	require.NotNil(t, st.Answers[1], "previous keeps the in-progress answer")
	assert.Equal(t, question.Multi{Indices: []int{0, 1}}, st.Answers[1].Value)
}

func TestSkipAndMark(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	send(s, ctrlKey('r'))
	assert.True(t, s.view.Marked)

	send(s, ctrlKey('k'))
	assert.Equal(t, 1, s.view.Index)

	st := f.load(t)
	require.NotNil(t, st.Answers[0])
	assert.Equal(t, attempt.ProvenanceSkipped, st.Answers[0].Provenance)
}

func TestJump(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	send(s, ctrlKey('g'))
	require.Equal(t, modeJump, s.mode)
	typeText(s, "9")
	send(s, specialKey(tea.KeyEnter))
	assert.True(t, s.jump.HasProblem(), "out of range")

	send(s, specialKey(tea.KeyBackspace))
	typeText(s, "2")
	send(s, specialKey(tea.KeyEnter))
	assert.Equal(t, modeAnswer, s.mode)
	assert.Equal(t, 1, s.view.Index)
}

func TestSubmitReplacesScreenWithResult(t *testing.T) {
	f := newFixture(t)
	var completed dlv.View
	s := New(f.machine, func(v dlv.View) screen.Screen {
		completed = v
		return &stubScreen{title: "result"}
	})

	send(s, ctrlKey('e'))
	require.Equal(t, modeConfirmSubmit, s.mode)
	send(s, keyPress('y'))

	require.Eventually(t, func() bool {
		return f.machine.View().Phase == dlv.PhaseCompleted
	}, time.Second, time.Millisecond)

	s.refresh()
	cmd := s.completeIfDone()
	require.NotNil(t, cmd)
	msg, replaced := cmd().(router.ReplaceScreenMsg)
	require.True(t, replaced)
	assert.Equal(t, "result", msg.Screen.Title())
	assert.Nil(t, s.completeIfDone(), "replaced once")
	assert.Equal(t, f.attempt, completed.AttemptID)
	assert.Equal(t, attempt.StatusCompleted, f.load(t).Status)
}

func TestEscapeSavesAndExits(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	typeText(s, "1")
	send(s, specialKey(tea.KeyEscape))

	select {
	case <-f.machine.Done():
	case <-time.After(time.Second):
		t.Fatal("machine still running after save and exit")
	}
	st := f.load(t)
	assert.Equal(t, attempt.StatusInProgress, st.Status)
	require.NotNil(t, st.Answers[0])
	assert.Equal(t, question.Single{Index: 0}, st.Answers[0].Value)

	_, cmd := s.Update(machineDoneMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, router.PopScreenMsg{}, cmd())
}

func TestTypedAnswerSurvivesTimerExpiry(t *testing.T) {
	f := newFixtureWith(t, &question.Component{
		ID:   "FLAT",
		Name: "Foundational",
		Items: []question.Question{
			{ID: "q1", Type: question.TypeSingle, Stem: "Pick one", Options: []string{"a", "b", "c"}, TimerSec: 5},
			{ID: "q2", Type: question.TypeSingle, Stem: "Pick again", Options: []string{"a", "b"}},
		},
	})
	s := New(f.machine, nil)

	typeText(s, "2")
	assert.Equal(t, question.Single{Index: 1}, f.machine.View().Answer, "captured without Enter")

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
	}
	require.Eventually(t, func() bool { return f.machine.View().Index == 1 }, time.Second, time.Millisecond)

	st := f.load(t)
	require.NotNil(t, st.Answers[0])
	assert.Equal(t, question.Single{Index: 1}, st.Answers[0].Value)
	assert.Equal(t, attempt.ProvenanceAnswered, st.Answers[0].Provenance)
}

func TestTypedAnswerReachesAutosave(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	typeText(s, "3")
	f.clock.Advance(dlv.DefaultConfig().AutosaveInterval)

	require.Eventually(t, func() bool {
		st := f.load(t)
		return st.Answers[0] != nil && st.Answers[0].Value == question.Single{Index: 2}
	}, time.Second, time.Millisecond)
}

func TestUnparseableTypingIsNotCaptured(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	typeText(s, "x")
	assert.Nil(t, f.machine.View().Answer)
	assert.False(t, s.capturing)
}

func TestOperationWaitsForCaptureInFlight(t *testing.T) {
	f := newFixture(t)
	s := New(f.machine, nil)

	_, cmd := s.Update(keyPress('1'))
	require.True(t, s.capturing)

	assert.Nil(t, send(s, specialKey(tea.KeyEnter)), "next waits for the capture")
	assert.Equal(t, 0, f.machine.View().Index)

	deliverCaptures(s, cmd)
	require.Eventually(t, func() bool { return f.machine.View().Index == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, question.Single{Index: 0}, f.load(t).Answers[0].Value)
}
