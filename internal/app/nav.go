package app

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/content"
	"github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/results"
	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/screens/attempts"
	deliveryscreen "github.com/candidus/assessor/internal/screens/delivery"
	"github.com/candidus/assessor/internal/screens/home"
	"github.com/candidus/assessor/internal/screens/intro"
	resultscreen "github.com/candidus/assessor/internal/screens/result"
	rubricscreen "github.com/candidus/assessor/internal/screens/rubric"
)

// Navigator builds the screens of one candidate's UI over a Session.
type Navigator struct {
	Session   *Session
	Candidate string
}

func push(s screen.Screen) tea.Cmd {
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}

func notice(err error) tea.Msg {
	return noticeMsg{text: err.Error()}
}

// Home returns the main menu.
func (n *Navigator) Home() screen.Screen {
	return home.New(n.Candidate, n.catalog, home.Actions{
		Start:    n.intro,
		Attempts: func() tea.Cmd { return push(n.Attempts()) },
		Rubric:   func() tea.Cmd { return push(rubricscreen.New(n.Session.Rubric)) },
	})
}

func (n *Navigator) catalog(ctx context.Context) ([]*question.Component, error) {
	return content.Catalog(ctx, n.Session.Content)
}

func (n *Navigator) intro(c *question.Component) tea.Cmd {
	return push(intro.New(c, func() tea.Cmd { return n.begin(c.ID) }))
}

func (n *Navigator) begin(componentID string) tea.Cmd {
	return func() tea.Msg {
		m, err := n.Session.Begin(context.Background(), n.Candidate, componentID)
		if err != nil {
			return intro.BeginFailedMsg{Err: err}
		}
		return router.ReplaceScreenMsg{Screen: n.Delivery(m)}
	}
}

// Delivery returns the screen for a running attempt. Once the attempt is
// accepted it is replaced by the result screen.
func (n *Navigator) Delivery(m *delivery.Machine) screen.Screen {
	return deliveryscreen.New(m, func(v delivery.View) screen.Screen {
		return n.Result(v.AttemptID)
	})
}

// Result returns the result screen of attemptID.
func (n *Navigator) Result(attemptID string) screen.Screen {
	return resultscreen.New(attemptID, func(ctx context.Context) (*results.Result, error) {
		return n.Session.Result(ctx, attemptID)
	})
}

// Attempts returns the candidate's attempt list.
func (n *Navigator) Attempts() screen.Screen {
	return attempts.New(n.Candidate, n.Session, n.open)
}

// open shows the result of a submitted attempt and resumes any other.
// A completed attempt whose submission was never acknowledged resumes
// into a new submission.
func (n *Navigator) open(st *attempt.State) tea.Cmd {
	if st.SubmittedAt != nil {
		return push(n.Result(st.ID))
	}
	id := st.ID
	return func() tea.Msg {
		m, err := n.Session.Resume(context.Background(), id)
		if err != nil {
			return notice(err)
		}
		return router.PushScreenMsg{Screen: n.Delivery(m)}
	}
}

// OpenAttempt loads attemptID and opens it.
func (n *Navigator) OpenAttempt(attemptID string) tea.Cmd {
	return func() tea.Msg {
		st, err := n.Session.Attempts.Load(context.Background(), attemptID)
		if err != nil {
			return notice(err)
		}
		return n.open(st)()
	}
}

// OpenComponent shows the intro of componentID.
func (n *Navigator) OpenComponent(componentID string) tea.Cmd {
	return func() tea.Msg {
		c, err := n.Session.Content.FetchComponent(context.Background(), componentID)
		if err != nil {
			return notice(err)
		}
		return n.intro(c)()
	}
}

// OpenRubric shows the rubric editor.
func (n *Navigator) OpenRubric() tea.Cmd {
	return push(rubricscreen.New(n.Session.Rubric))
}
