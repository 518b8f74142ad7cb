package delivery

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/ui/components"
	"github.com/candidus/assessor/internal/ui/layout"
	"github.com/candidus/assessor/internal/ui/theme"
)

// renderItem renders the current question, the answer field and the
// navigator.
func (s *DeliveryScreen) renderItem(width, height int) string {
	v := s.view
	q := v.Question
	if q == nil {
		return renderLoading(width)
	}

	var b strings.Builder

	// Info line.
	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  %s  Item %d/%d", q.Type.Code(), v.Index+1, v.Total))
	right := fmt.Sprintf("Answered %d/%d", v.Answered, v.Total)
	if v.Marked {
		right = lipgloss.NewStyle().Foreground(theme.Accent).Render("marked for review") + "   " + right
	}
	if v.Timed {
		right = theme.Timer(v.Level).Render("T "+formatClock(v.Remaining)) + "   " + right
	}
	infoRight := lipgloss.NewStyle().Foreground(theme.TextDim).Render(right)

	infoLine := infoLeft
	if pad := width - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight) - 4; pad > 0 {
		infoLine += strings.Repeat(" ", pad) + infoRight
	}
	b.WriteString(infoLine)
	b.WriteString("\n")
	b.WriteString("  " + layout.Rule(width-4))
	b.WriteString("\n\n")

	// Stem.
	b.WriteString(lipgloss.NewStyle().
		Width(width-4).
		PaddingLeft(2).
		Foreground(theme.Text).
		Bold(true).
		Render(q.Stem))
	b.WriteString("\n\n")

	if v.ConfigError != nil {
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.Warning).
			Render("This item is misconfigured and may be skipped: " + v.ConfigError.Error()))
		b.WriteString("\n\n")
	} else {
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(components.NewOptionList(q, v.Answer).View()))
		b.WriteString("\n")
	}

	// Answer field.
	if s.mode == modeJump {
		b.WriteString("  Go to item: " + s.jump.View())
	} else {
		b.WriteString("  Answer: " + s.input.View())
	}
	b.WriteString("\n")

	if s.notice != "" {
		b.WriteString("\n  " + theme.Hint.Render(s.notice) + "\n")
	}

	nav := components.Navigator{Entries: v.Navigator, Current: v.Index}.View(width - 4)
	body := b.String()
	gap := height - lipgloss.Height(body) - lipgloss.Height(nav) - 1
	if gap > 0 {
		body += strings.Repeat("\n", gap)
	} else {
		body += "\n"
	}
	return body + lipgloss.NewStyle().PaddingLeft(2).Render(nav)
}

func (s *DeliveryScreen) renderConfirmSubmit(width int) string {
	v := s.view
	msg := fmt.Sprintf("Submit %s now?\n\n%d of %d items answered.", v.ComponentName, v.Answered, v.Total)
	if open := v.Total - v.Answered; open > 0 {
		msg += fmt.Sprintf("\n%d unanswered items will be sent as skipped.", open)
	}
	msg += "\n\nAnswers cannot be changed after submitting."
	return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Text), msg)
}

func (s *DeliveryScreen) renderSubmitting(width int) string {
	return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim),
		"Submitting your responses...\n\nYour answers are saved. You can leave and resume later.")
}

func (s *DeliveryScreen) renderError(width int) string {
	v := s.view
	var next string
	switch v.Action {
	case apperr.ActionRetry:
		next = "Your answers are saved. Press R to retry the submission."
	case apperr.ActionReturnToList:
		next = "Press Esc to return to your attempts."
	case apperr.ActionReload:
		next = "Press Esc and open the attempt again."
	case apperr.ActionFixConfig:
		next = "The assessment content needs fixing before it can be taken."
	}
	msg := "Something went wrong"
	if v.Err != nil {
		msg = v.Err.Error()
	}
	if s.notice != "" {
		next += "\n\n" + s.notice
	}
	return layout.Centered(width, theme.ErrorText, msg) + "\n\n" +
		lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Render(next)
}

func renderCompleted(width int) string {
	return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Success).Bold(true),
		"Submitted. Thank you!")
}

func renderLoading(width int) string {
	return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim), "Loading...")
}
