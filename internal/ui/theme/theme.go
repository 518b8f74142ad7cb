package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/timer"
)

// Color palette, kept low-contrast for long sittings.
var (
	Primary   = lipgloss.Color("#3B82F6") // Blue
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#A855F7") // Violet
	Success   = lipgloss.Color("#22C55E") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#E2E8F0")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)
)

// Timer returns the countdown style for a warning level.
func Timer(l timer.Level) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch l {
	case timer.LevelCritical:
		return s.Foreground(Error)
	case timer.LevelWarning:
		return s.Foreground(Warning)
	default:
		return s.Foreground(Secondary)
	}
}

// Status returns the navigator cell style for an item status.
func Status(st question.Status) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	switch st {
	case question.StatusAnswered:
		return s.Foreground(Success)
	case question.StatusMarked:
		return s.Foreground(Accent).Bold(true)
	case question.StatusSeenUnanswered:
		return s.Foreground(Warning)
	default:
		return s.Foreground(TextDim)
	}
}

// Bucket returns the badge style for an admission bucket.
func Bucket(b rubric.Bucket) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch b {
	case rubric.BucketAdmit:
		return s.Background(Success).Foreground(BgCard)
	case rubric.BucketCounselling:
		return s.Background(Secondary).Foreground(BgCard)
	case rubric.BucketBridge:
		return s.Background(Warning).Foreground(BgCard)
	default:
		return s.Background(Error).Foreground(Text)
	}
}
