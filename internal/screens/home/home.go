package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/screens/intro"
	"github.com/candidus/assessor/internal/ui/components"
	"github.com/candidus/assessor/internal/ui/layout"
	"github.com/candidus/assessor/internal/ui/theme"
)

// Catalog lists the components a candidate can take.
type Catalog func(ctx context.Context) ([]*question.Component, error)

// Actions are the navigation targets offered by the home menu. A nil
// action disables its entry.
type Actions struct {
	Start    func(c *question.Component) tea.Cmd
	Attempts func() tea.Cmd
	Rubric   func() tea.Cmd
}

type catalogLoadedMsg struct {
	Components []*question.Component
	Err        error
}

// HomeScreen is the main menu: one entry per component plus the attempt
// list and rubric editor.
type HomeScreen struct {
	candidateID string
	catalog     Catalog
	actions     Actions

	components []*question.Component
	errMsg     string
	loaded     bool
	menu       components.Menu
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Refresher = (*HomeScreen)(nil)

// New creates a HomeScreen for candidateID.
func New(candidateID string, catalog Catalog, actions Actions) *HomeScreen {
	h := &HomeScreen{candidateID: candidateID, catalog: catalog, actions: actions}
	h.menu = components.NewMenu(h.items())
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) Refresh() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) load() tea.Cmd {
	catalog := h.catalog
	return func() tea.Msg {
		comps, err := catalog(context.Background())
		return catalogLoadedMsg{Components: comps, Err: err}
	}
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) Status() string {
	return h.candidateID
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// HandlesEscape keeps Esc from leaving the bottom screen.
func (h *HomeScreen) HandlesEscape() bool { return true }

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(catalogLoadedMsg); ok {
		h.loaded = true
		h.errMsg = ""
		// Components that loaded are still offered when others failed.
		h.components = msg.Components
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
		}
		selected := h.menu.Selected
		h.menu = components.NewMenu(h.items())
		if selected < len(h.menu.Items) && !h.menu.Items[selected].Disabled {
			h.menu.Selected = selected
		}
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) items() []components.MenuItem {
	var items []components.MenuItem
	for _, c := range h.components {
		item := components.MenuItem{
			Label:    fmt.Sprintf("%-5s %s", c.ID, c.Name),
			Detail:   componentDetail(c),
			Disabled: h.actions.Start == nil,
		}
		if h.actions.Start != nil {
			item.Action = func() tea.Cmd { return h.actions.Start(c) }
		}
		items = append(items, item)
	}
	items = append(items,
		components.MenuItem{Label: "Your attempts", Action: h.actions.Attempts, Disabled: h.actions.Attempts == nil},
		components.MenuItem{Label: "Rubric", Action: h.actions.Rubric, Disabled: h.actions.Rubric == nil},
		components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	)
	return items
}

func componentDetail(c *question.Component) string {
	detail := fmt.Sprintf("%d items", len(c.Items))
	if c.EstimatedMinutes > 0 {
		detail += fmt.Sprintf(" · ~%d min", c.EstimatedMinutes)
	}
	return detail
}

func (h *HomeScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, intro.RenderBanner(width)))
	b.WriteString("\n\n")

	switch {
	case !h.loaded:
		b.WriteString(layout.Centered(width, theme.Hint, "Loading assessments..."))
		b.WriteString("\n\n")
	case len(h.components) == 0:
		b.WriteString(layout.Centered(width, theme.Hint, "No assessments available."))
		b.WriteString("\n\n")
	default:
		b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim),
			"Choose a component to begin"))
		b.WriteString("\n\n")
	}

	menu := theme.Card.Render(strings.TrimRight(h.menu.View(), "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, menu))

	if h.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Align(lipgloss.Center).
			Foreground(theme.Warning).Render("Some content failed to load: " + h.errMsg))
	}
	return b.String()
}
