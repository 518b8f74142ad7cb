package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/ui/theme"
)

// ProgressBar displays a horizontal bar for Done out of Total.
type ProgressBar struct {
	Label string
	Done  float64
	Total float64
	// Suffix replaces the default "done/total" text when set.
	Suffix string
	Width  int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, done, total float64, width int) ProgressBar {
	return ProgressBar{Label: label, Done: done, Total: total, Width: width}
}

// Fraction returns Done/Total clamped to [0, 1].
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(max(p.Done/p.Total, 0), 1)
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string
	if p.Label != "" {
		result = lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	suffix := p.Suffix
	if suffix == "" {
		suffix = fmt.Sprintf("%g/%g", p.Done, p.Total)
	}
	suffix = "  " + suffix

	barWidth := max(p.Width-lipgloss.Width(result)-lipgloss.Width(suffix), 4)
	filled := int(float64(barWidth) * p.Fraction())

	result += lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled))
	result += lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))
	result += lipgloss.NewStyle().Foreground(theme.TextDim).Render(suffix)
	return result
}
