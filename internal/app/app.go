package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/ui/layout"
	"github.com/candidus/assessor/internal/ui/theme"
)

// noticeMsg shows a one-line problem under the active screen until the
// next key press.
type noticeMsg struct{ text string }

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	startup tea.Cmd
	notice  string
	width   int
	height  int
}

// NewAppModel creates an AppModel with initial at the bottom of the stack.
// startup runs once after the initial screen's Init.
func NewAppModel(initial screen.Screen, startup tea.Cmd) AppModel {
	return AppModel{
		router:  router.New(initial),
		startup: startup,
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Sequence(m.router.Active().Init(), m.startup)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		return m, nil

	case tea.KeyPressMsg:
		m.notice = ""
		switch msg.String() {
		case "ctrl+c":
			m.router.CloseAll()
			return m, tea.Quit
		case "esc":
			if h, ok := m.router.Active().(screen.EscapeHandler); ok && h.HandlesEscape() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.SetContent(m.render())
	return v
}

func (m AppModel) render() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	var title, status string
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
	}
	header := layout.RenderHeader(title, status+"  ", m.width)

	var footerHints []layout.KeyHint
	if kp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = kp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	footer := layout.RenderFooter(footerHints, m.width)

	var notice string
	if m.notice != "" {
		notice = lipgloss.NewStyle().Width(m.width).Foreground(theme.Error).Render("  " + m.notice)
	}

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	if notice != "" {
		contentHeight = max(contentHeight-lipgloss.Height(notice), 0)
	}

	content := m.router.View(m.width, contentHeight)
	if notice != "" {
		content = lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(content) + "\n" + notice
	}
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// RunOptions selects where the UI opens.
type RunOptions struct {
	CandidateID string
	// ComponentID opens the component's intro above the home screen.
	ComponentID string
	// AttemptID opens the attempt above the home screen.
	AttemptID string
	// Rubric opens the rubric editor above the home screen.
	Rubric bool
}

// Run starts the Bubble Tea program over s. Running attempts are saved
// before Run returns.
func Run(ctx context.Context, s *Session, opts RunOptions) error {
	nav := &Navigator{Session: s, Candidate: opts.CandidateID}

	var startup tea.Cmd
	switch {
	case opts.AttemptID != "":
		startup = nav.OpenAttempt(opts.AttemptID)
	case opts.ComponentID != "":
		startup = nav.OpenComponent(opts.ComponentID)
	case opts.Rubric:
		startup = nav.OpenRubric()
	}

	p := tea.NewProgram(NewAppModel(nav.Home(), startup), tea.WithContext(ctx))
	final, err := p.Run()
	if am, ok := final.(AppModel); ok {
		am.router.CloseAll()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
