package result

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/results"
	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/ui/components"
	"github.com/candidus/assessor/internal/ui/layout"
	"github.com/candidus/assessor/internal/ui/theme"
)

// pollInterval is how often a processing result is fetched again.
const pollInterval = 5 * time.Second

// Fetcher returns the current result of one attempt.
type Fetcher func(ctx context.Context) (*results.Result, error)

type resultLoadedMsg struct {
	Result *results.Result
	Err    error
}

type pollMsg struct{ seq int }

// ResultScreen displays a completed attempt's result, or that it is still
// being scored.
type ResultScreen struct {
	attemptID string
	fetch     Fetcher

	result  *results.Result
	err     error
	loading bool
	seq     int
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)
var _ screen.Refresher = (*ResultScreen)(nil)

// New creates a ResultScreen for attemptID.
func New(attemptID string, fetch Fetcher) *ResultScreen {
	return &ResultScreen{attemptID: attemptID, fetch: fetch}
}

func (s *ResultScreen) Init() tea.Cmd {
	return s.load()
}

func (s *ResultScreen) Refresh() tea.Cmd {
	return s.load()
}

func (s *ResultScreen) load() tea.Cmd {
	s.loading = true
	s.seq++
	fetch := s.fetch
	return func() tea.Msg {
		r, err := fetch(context.Background())
		return resultLoadedMsg{Result: r, Err: err}
	}
}

func (s *ResultScreen) Title() string {
	return "Result"
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Done"}}
	if s.result == nil || !s.result.Ready() {
		hints = append(hints, layout.KeyHint{Key: "R", Description: "Check again"})
	}
	return hints
}

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resultLoadedMsg:
		s.loading = false
		s.err = msg.Err
		if msg.Err == nil {
			s.result = msg.Result
		}
		if s.result == nil || !s.result.Ready() {
			seq := s.seq
			return s, tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollMsg{seq: seq} })
		}
		return s, nil

	case pollMsg:
		if msg.seq != s.seq || s.loading {
			return s, nil
		}
		return s, s.load()

	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "r", "R":
			if !s.loading && (s.result == nil || !s.result.Ready()) {
				return s, s.load()
			}
		}
	}
	return s, nil
}

func (s *ResultScreen) View(width, height int) string {
	switch {
	case s.err != nil:
		return layout.Centered(width, theme.ErrorText, "Could not load the result: "+s.err.Error())
	case s.result == nil:
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim), "Loading result...")
	case !s.result.Ready():
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Text),
			"Your responses were submitted.\n\nScoring is in progress. This page checks again automatically.")
	}
	return s.renderReady(width)
}

func (s *ResultScreen) renderReady(width int) string {
	r := s.result
	center := func(str string) string {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, str)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center(theme.Title.Render(fmt.Sprintf("Composite %d / 100", r.Rounded))))
	b.WriteString("\n\n")
	b.WriteString(center(theme.Bucket(r.Bucket).Render(r.Bucket.Label())))
	b.WriteString("\n\n")

	barWidth := min(width-8, 60)
	for _, c := range r.Contributions {
		bar := components.NewProgressBar(fmt.Sprintf("%-5s", c.ComponentID), c.Score, 100, barWidth)
		bar.Suffix = fmt.Sprintf("%3.0f  x%g%%", c.Score, c.Weight)
		b.WriteString(center(bar.View()))
		b.WriteString("\n")
	}

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		b.WriteString("\n")
		b.WriteString(center(lipgloss.NewStyle().Foreground(theme.TextDim).Render(title)))
		b.WriteString("\n")
		b.WriteString(center(layout.Rule(barWidth)))
		b.WriteString("\n")
		for _, l := range lines {
			b.WriteString(center(lipgloss.NewStyle().Width(barWidth).Foreground(theme.Text).Render("· " + l)))
			b.WriteString("\n")
		}
	}
	section("Strengths", r.Strengths)
	section("Development areas", r.DevelopmentAreas)
	section("What drove the score", r.Drivers)
	section("Next steps", r.NextSteps)

	if r.Duration > 0 {
		b.WriteString("\n")
		b.WriteString(center(theme.Hint.Render("Completed in " + r.Duration.Round(time.Minute).String())))
		b.WriteString("\n")
	}
	return b.String()
}
