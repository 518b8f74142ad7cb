package intro

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/ui/layout"
	"github.com/candidus/assessor/internal/ui/theme"
)

const blinkInterval = 600 * time.Millisecond

type blinkMsg time.Time

// BeginFailedMsg reports that an attempt could not be started.
type BeginFailedMsg struct{ Err error }

// IntroScreen describes a component before the candidate starts it.
type IntroScreen struct {
	component *question.Component
	begin     func() tea.Cmd

	starting bool
	errMsg   string
	blink    bool
}

var _ screen.Screen = (*IntroScreen)(nil)
var _ screen.KeyHintProvider = (*IntroScreen)(nil)

// New creates an IntroScreen. begin starts the attempt; its command either
// replaces this screen or yields a BeginFailedMsg.
func New(c *question.Component, begin func() tea.Cmd) *IntroScreen {
	return &IntroScreen{component: c, begin: begin}
}

func (s *IntroScreen) Title() string {
	return s.component.Name
}

func (s *IntroScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Begin"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *IntroScreen) Init() tea.Cmd {
	return blinkTick()
}

func blinkTick() tea.Cmd {
	return tea.Tick(blinkInterval, func(t time.Time) tea.Msg { return blinkMsg(t) })
}

func (s *IntroScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case blinkMsg:
		s.blink = !s.blink
		return s, blinkTick()

	case BeginFailedMsg:
		s.starting = false
		s.errMsg = msg.Err.Error()
		return s, nil

	case tea.KeyPressMsg:
		if msg.String() == "enter" && !s.starting && s.begin != nil {
			s.starting = true
			s.errMsg = ""
			return s, s.begin()
		}
	}
	return s, nil
}

// Summary returns the counts shown on the screen.
func Summary(c *question.Component) (items, timed int) {
	for i := range c.Items {
		if c.Items[i].Timed() {
			timed++
		}
	}
	return len(c.Items), timed
}

func (s *IntroScreen) View(width, height int) string {
	c := s.component
	var sections []string

	sections = append(sections, RenderBanner(width), "")
	sections = append(sections, theme.Title.Render(c.Name))
	if c.Description != "" {
		sections = append(sections, lipgloss.NewStyle().
			Width(min(width-8, 70)).
			Align(lipgloss.Center).
			Foreground(theme.Text).
			Render(c.Description))
	}
	sections = append(sections, "")

	items, timed := Summary(c)
	facts := []string{fmt.Sprintf("%d items", items)}
	if timed > 0 {
		facts = append(facts, fmt.Sprintf("%d timed", timed))
	}
	if c.EstimatedMinutes > 0 {
		facts = append(facts, fmt.Sprintf("about %d minutes", c.EstimatedMinutes))
	}
	sections = append(sections, lipgloss.NewStyle().Foreground(theme.Secondary).Render(strings.Join(facts, "  ·  ")))
	sections = append(sections, "")

	rules := []string{
		"Your answers are saved as you go. Press Esc to leave and resume later.",
		"Timed items move on by themselves when the countdown ends.",
		"You can skip an item or mark it for review and return to it.",
	}
	if timed == 0 {
		rules = slices.Delete(rules, 1, 2)
	}
	sections = append(sections, lipgloss.NewStyle().Foreground(theme.TextDim).Render(strings.Join(rules, "\n")))
	sections = append(sections, "")

	switch {
	case s.errMsg != "":
		sections = append(sections, theme.ErrorText.Render("Could not start: "+s.errMsg))
	case s.starting:
		sections = append(sections, theme.Hint.Render("Starting..."))
	default:
		hint := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		if s.blink {
			hint = hint.Foreground(theme.TextDim).Bold(false)
		}
		sections = append(sections, hint.Render("Press Enter to begin"))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, sections...))
}
