package app

import (
	"context"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/screen"
	deliveryscreen "github.com/candidus/assessor/internal/screens/delivery"
	"github.com/candidus/assessor/internal/screens/intro"
	resultscreen "github.com/candidus/assessor/internal/screens/result"
)

type stubScreen struct {
	title  string
	keeps  bool
	closed int
	keys   []string
}

func (s *stubScreen) Init() tea.Cmd { return nil }
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyPressMsg); ok {
		s.keys = append(s.keys, k.String())
	}
	return s, nil
}
func (s *stubScreen) View(int, int) string { return "body of " + s.title }
func (s *stubScreen) Title() string        { return s.title }
func (s *stubScreen) Status() string       { return "status of " + s.title }
func (s *stubScreen) HandlesEscape() bool  { return s.keeps }
func (s *stubScreen) Close()               { s.closed++ }

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	require.True(t, ok)
	return am, cmd
}

func TestEscapePopsAboveBottom(t *testing.T) {
	bottom := &stubScreen{title: "home"}
	m := NewAppModel(bottom, nil)

	_, cmd := update(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Nil(t, cmd, "nothing to pop at the bottom")

	m.router.Push(&stubScreen{title: "list"})
	_, cmd = update(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	assert.Equal(t, router.PopScreenMsg{}, cmd())
}

func TestEscapeHandlerKeepsEscape(t *testing.T) {
	m := NewAppModel(&stubScreen{title: "home"}, nil)
	top := &stubScreen{title: "delivery", keeps: true}
	m.router.Push(top)

	update(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Equal(t, []string{"esc"}, top.keys)
	assert.Equal(t, 2, m.router.Depth())
}

func TestCtrlCClosesEveryScreen(t *testing.T) {
	bottom := &stubScreen{title: "home"}
	top := &stubScreen{title: "delivery"}
	m := NewAppModel(bottom, nil)
	m.router.Push(top)

	_, cmd := update(t, m, tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, 1, bottom.closed)
	assert.Equal(t, 1, top.closed)
}

func TestViewShowsStatusAndNotice(t *testing.T) {
	m := NewAppModel(&stubScreen{title: "home"}, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, noticeMsg{text: "attempt not found"})

	content := m.render()
	assert.Contains(t, content, "status of home")
	assert.Contains(t, content, "body of home")
	assert.Contains(t, content, "attempt not found")

	m, _ = update(t, m, tea.KeyPressMsg{Code: 'x', Text: "x"})
	assert.NotContains(t, m.render(), "attempt not found", "a key press clears the notice")
}

func TestViewTooSmall(t *testing.T) {
	m := NewAppModel(&stubScreen{title: "home"}, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.NotContains(t, m.render(), "body of home")
}

func TestNavigatorBeginReplacesIntroWithDelivery(t *testing.T) {
	s := newTestSession(t)
	nav := &Navigator{Session: s, Candidate: "cand-1"}

	msg := nav.OpenComponent("FLAT")()
	pushed, ok := msg.(router.PushScreenMsg)
	require.True(t, ok, "got %T", msg)
	assert.IsType(t, &intro.IntroScreen{}, pushed.Screen)

	msg = nav.begin("FLAT")()
	replaced, ok := msg.(router.ReplaceScreenMsg)
	require.True(t, ok, "got %T", msg)
	ds, ok := replaced.Screen.(*deliveryscreen.DeliveryScreen)
	require.True(t, ok)
	t.Cleanup(ds.Close)

	list, err := s.List(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNavigatorBeginFailure(t *testing.T) {
	s := newTestSession(t)
	nav := &Navigator{Session: s, Candidate: "cand-1"}

	msg := nav.begin("NOPE")()
	failed, ok := msg.(intro.BeginFailedMsg)
	require.True(t, ok, "got %T", msg)
	assert.True(t, IsNotFound(failed.Err))
}

func TestNavigatorOpenAttempt(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	nav := &Navigator{Session: s, Candidate: "cand-1"}

	m, err := s.Begin(ctx, "cand-1", "FLAT")
	require.NoError(t, err)
	id := m.View().AttemptID

	msg := nav.OpenAttempt(id)()
	pushed, ok := msg.(router.PushScreenMsg)
	require.True(t, ok, "got %T", msg)
	assert.IsType(t, &deliveryscreen.DeliveryScreen{}, pushed.Screen)

	require.NoError(t, m.Submit(ctx))
	require.Eventually(t, func() bool {
		st, err := s.Attempts.Load(ctx, id)
		return err == nil && st.SubmittedAt != nil
	}, time.Second, time.Millisecond)

	msg = nav.OpenAttempt(id)()
	pushed, ok = msg.(router.PushScreenMsg)
	require.True(t, ok, "got %T", msg)
	assert.IsType(t, &resultscreen.ResultScreen{}, pushed.Screen)
}

func TestNavigatorOpenUnknownAttemptShowsNotice(t *testing.T) {
	nav := &Navigator{Session: newTestSession(t), Candidate: "cand-1"}

	msg := nav.OpenAttempt("missing")()
	n, ok := msg.(noticeMsg)
	require.True(t, ok, "got %T", msg)
	assert.Contains(t, n.text, "missing")
}

func TestNavigatorOpenUnknownComponentShowsNotice(t *testing.T) {
	nav := &Navigator{Session: newTestSession(t), Candidate: "cand-1"}
	_, ok := nav.OpenComponent("NOPE")().(noticeMsg)
	assert.True(t, ok)
}

func TestNavigatorOpenRubric(t *testing.T) {
	nav := &Navigator{Session: newTestSession(t), Candidate: "cand-1"}
	pushed, ok := nav.OpenRubric()().(router.PushScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "Rubric", pushed.Screen.Title())
}
