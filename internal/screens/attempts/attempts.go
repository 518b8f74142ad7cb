package attempts

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/ui/layout"
	"github.com/candidus/assessor/internal/ui/theme"
)

// Lister returns a candidate's attempts.
type Lister interface {
	List(ctx context.Context, candidateID string) ([]*attempt.State, error)
}

type attemptsLoadedMsg struct {
	Attempts []*attempt.State
	Err      error
}

// AttemptsScreen lists a candidate's attempts. Enter opens the selected
// one: in-progress attempts resume, completed ones show their result.
type AttemptsScreen struct {
	candidateID string
	lister      Lister
	open        func(st *attempt.State) tea.Cmd

	attempts []*attempt.State
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*AttemptsScreen)(nil)
var _ screen.KeyHintProvider = (*AttemptsScreen)(nil)
var _ screen.Refresher = (*AttemptsScreen)(nil)

// New creates an AttemptsScreen.
func New(candidateID string, lister Lister, open func(st *attempt.State) tea.Cmd) *AttemptsScreen {
	return &AttemptsScreen{
		candidateID: candidateID,
		lister:      lister,
		open:        open,
		expanded:    make(map[int]bool),
	}
}

func (s *AttemptsScreen) Init() tea.Cmd {
	return s.load()
}

// Refresh reloads the list when a resumed attempt is left.
func (s *AttemptsScreen) Refresh() tea.Cmd {
	return s.load()
}

func (s *AttemptsScreen) load() tea.Cmd {
	lister, id := s.lister, s.candidateID
	return func() tea.Msg {
		list, err := lister.List(context.Background(), id)
		return attemptsLoadedMsg{Attempts: list, Err: err}
	}
}

func (s *AttemptsScreen) Title() string {
	return "Attempts of " + s.candidateID
}

func (s *AttemptsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Open"},
		{Key: "Space", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *AttemptsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case attemptsLoadedMsg:
		s.errMsg = ""
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.attempts = msg.Attempts
		}
		s.selected = min(s.selected, max(len(s.attempts)-1, 0))
		s.loaded = true
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.attempts)-1 {
				s.selected++
			}
		case "space":
			s.expanded[s.selected] = !s.expanded[s.selected]
		case "enter":
			if s.open != nil && s.selected < len(s.attempts) {
				return s, s.open(s.attempts[s.selected])
			}
		}
	}
	return s, nil
}

// Selected returns the highlighted attempt, if any.
func (s *AttemptsScreen) Selected() *attempt.State {
	if s.selected < len(s.attempts) {
		return s.attempts[s.selected]
	}
	return nil
}

func (s *AttemptsScreen) View(width, height int) string {
	if s.errMsg != "" {
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Error), "Error: "+s.errMsg)
	}
	if !s.loaded {
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim), "Loading attempts...")
	}
	if len(s.attempts) == 0 {
		return layout.Centered(width, theme.Hint, "No attempts yet.")
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, st := range s.attempts {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%-6s %s  %-12s %d/%d answered",
			prefix,
			st.ComponentID,
			st.StartedAt.Local().Format("Jan 02 15:04"),
			statusLabel(st),
			answered(st), len(st.Answers))

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = theme.Selected
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, renderDetails(st)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderDetails(st *attempt.State) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	lines := []string{
		"id           " + st.ID,
		fmt.Sprintf("item         %d", st.CurrentIndex+1),
		fmt.Sprintf("marked       %d", len(st.Marked)),
	}
	if !st.LastSavedAt.IsZero() {
		lines = append(lines, "last saved   "+st.LastSavedAt.Local().Format("Jan 02 15:04:05"))
	}
	if st.SubmittedAt != nil {
		lines = append(lines, "submitted    "+st.SubmittedAt.Local().Format("Jan 02 15:04:05"))
	}
	return dim.Render(strings.Join(lines, "\n"))
}

func statusLabel(st *attempt.State) string {
	switch {
	case st.SubmittedAt != nil:
		return "submitted"
	case st.Status == attempt.StatusCompleted:
		return "submitting"
	default:
		return "in progress"
	}
}

func answered(st *attempt.State) int {
	n := 0
	for _, a := range st.Answers {
		if a != nil && a.Value != nil {
			n++
		}
	}
	return n
}
