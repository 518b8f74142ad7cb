package rubric

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/router"
	rb "github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/ui/components"
	"github.com/candidus/assessor/internal/ui/layout"
	"github.com/candidus/assessor/internal/ui/theme"
)

// Editor is the rubric manager surface the screen needs.
type Editor interface {
	Draft() rb.Config
	Preview(draft rb.Config, samples []rb.Sample) ([]rb.PreviewRow, error)
	Commit(ctx context.Context, draft rb.Config) error
}

type fieldKind int

const (
	fieldComponent fieldKind = iota
	fieldThreshold
	fieldSubskill
)

// field is one editable number of the draft.
type field struct {
	kind fieldKind
	key  string
}

func (f field) label() string {
	switch f.kind {
	case fieldThreshold:
		return f.key + " threshold"
	case fieldSubskill:
		return f.key + " (subskill)"
	}
	return f.key + " weight"
}

type committedMsg struct{ Err error }

// RubricScreen edits a draft rubric with a live preview over the sample
// candidates. Nothing is persisted until the draft is committed.
type RubricScreen struct {
	editor Editor

	draft    rb.Config
	fields   []field
	selected int
	editing  bool
	input    components.TextInput

	rows     []rb.PreviewRow
	problems []string
	dirty    bool
	saving   bool
	notice   string
}

var _ screen.Screen = (*RubricScreen)(nil)
var _ screen.KeyHintProvider = (*RubricScreen)(nil)
var _ screen.StatusProvider = (*RubricScreen)(nil)
var _ screen.EscapeHandler = (*RubricScreen)(nil)

// New creates a RubricScreen over a fresh draft of the committed rubric.
func New(editor Editor) *RubricScreen {
	s := &RubricScreen{
		editor: editor,
		input:  components.NewTextInput("0-100", 8),
	}
	s.reset()
	return s
}

func (s *RubricScreen) reset() {
	s.draft = s.editor.Draft()
	s.fields = fieldsOf(s.draft)
	s.selected = min(s.selected, len(s.fields)-1)
	s.dirty = false
	s.preview()
}

func fieldsOf(c rb.Config) []field {
	var out []field
	for _, id := range slices.Sorted(maps.Keys(c.ComponentWeights)) {
		out = append(out, field{kind: fieldComponent, key: id})
	}
	for _, name := range []string{"admit", "counselling", "bridge"} {
		out = append(out, field{kind: fieldThreshold, key: name})
	}
	for _, id := range slices.Sorted(maps.Keys(c.SubskillWeights)) {
		out = append(out, field{kind: fieldSubskill, key: id})
	}
	return out
}

func (s *RubricScreen) value(f field) float64 {
	switch f.kind {
	case fieldComponent:
		return s.draft.ComponentWeights[f.key]
	case fieldSubskill:
		return s.draft.SubskillWeights[f.key]
	}
	t := s.draft.Thresholds
	switch f.key {
	case "admit":
		return t.Admit
	case "counselling":
		return t.Counselling
	}
	return t.Bridge
}

func (s *RubricScreen) set(f field, v float64) {
	switch f.kind {
	case fieldComponent:
		s.draft.ComponentWeights[f.key] = v
	case fieldSubskill:
		s.draft.SubskillWeights[f.key] = v
	default:
		switch f.key {
		case "admit":
			s.draft.Thresholds.Admit = v
		case "counselling":
			s.draft.Thresholds.Counselling = v
		default:
			s.draft.Thresholds.Bridge = v
		}
	}
	s.dirty = true
	s.preview()
}

// preview re-evaluates the samples under the draft.
func (s *RubricScreen) preview() {
	rows, err := s.editor.Preview(s.draft, nil)
	s.rows = rows
	s.problems = problemsOf(err)
}

func problemsOf(err error) []string {
	if err == nil {
		return nil
	}
	var cerr *apperr.ConfigInvalidError
	if errors.As(err, &cerr) {
		return cerr.Problems
	}
	return []string{err.Error()}
}

func (s *RubricScreen) Init() tea.Cmd {
	return nil
}

func (s *RubricScreen) Title() string {
	return "Rubric"
}

func (s *RubricScreen) Status() string {
	switch {
	case s.saving:
		return "saving"
	case s.dirty:
		return "draft"
	}
	return "committed"
}

// HandlesEscape keeps Esc inside the screen while a value is being edited.
func (s *RubricScreen) HandlesEscape() bool { return s.editing }

func (s *RubricScreen) KeyHints() []layout.KeyHint {
	if s.editing {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Apply"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Select"},
		{Key: "Enter", Description: "Edit"},
		{Key: "Ctrl+S", Description: "Commit"},
		{Key: "Ctrl+Z", Description: "Discard draft"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *RubricScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case committedMsg:
		s.saving = false
		if msg.Err != nil {
			s.problems = problemsOf(msg.Err)
			s.notice = ""
			return s, nil
		}
		s.reset()
		s.notice = "Rubric committed."
		return s, nil

	case tea.KeyPressMsg:
		if s.editing {
			return s.handleEditKey(msg)
		}
		return s.handleKey(msg)
	}

	if s.editing {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *RubricScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if s.saving {
		return s, nil
	}
	switch msg.String() {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(s.fields)-1 {
			s.selected++
		}
	case "enter":
		if len(s.fields) == 0 {
			return s, nil
		}
		s.editing = true
		s.notice = ""
		s.input.SetValue(strconv.FormatFloat(s.value(s.fields[s.selected]), 'f', -1, 64))
		return s, s.input.Init()
	case "ctrl+z":
		s.reset()
		s.notice = "Draft discarded."
	case "ctrl+s":
		if len(s.problems) > 0 {
			s.notice = "Fix the problems before committing."
			return s, nil
		}
		s.saving = true
		editor, draft := s.editor, s.draft.Clone()
		return s, func() tea.Msg {
			return committedMsg{Err: editor.Commit(context.Background(), draft)}
		}
	case "esc":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return s, nil
}

func (s *RubricScreen) handleEditKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.editing = false
		return s, nil
	case "enter":
		v, err := strconv.ParseFloat(strings.TrimSpace(s.input.Value()), 64)
		if err != nil {
			s.input.Problem("enter a number")
			return s, nil
		}
		s.editing = false
		s.set(s.fields[s.selected], v)
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *RubricScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")

	left := s.renderFields()
	right := s.renderPreview()
	if width >= 100 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			theme.Card.Render(left), "  ", theme.Card.Render(right)))
	} else {
		b.WriteString(theme.Card.Render(left))
		b.WriteString("\n")
		b.WriteString(theme.Card.Render(right))
	}
	b.WriteString("\n")

	if len(s.problems) > 0 {
		b.WriteString("\n")
		for _, p := range s.problems {
			b.WriteString("  " + lipgloss.NewStyle().Foreground(theme.Error).Render("✗ "+p) + "\n")
		}
	}
	if s.notice != "" {
		b.WriteString("\n  " + theme.Hint.Render(s.notice) + "\n")
	}
	return b.String()
}

func (s *RubricScreen) renderFields() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Draft"))
	b.WriteString("\n\n")

	var componentSum, subskillSum float64
	for i, f := range s.fields {
		if i > 0 && f.kind != s.fields[i-1].kind {
			b.WriteString("\n")
		}
		v := s.value(f)
		switch f.kind {
		case fieldComponent:
			componentSum += v
		case fieldSubskill:
			subskillSum += v
		}

		label := fmt.Sprintf("%-22s", f.label())
		value := strconv.FormatFloat(v, 'f', -1, 64)
		if s.editing && i == s.selected {
			value = s.input.View()
		}
		line := "  " + label + value
		if i == s.selected {
			line = theme.Selected.Render("▸ " + label + value)
		} else {
			line = theme.Unselected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(sumLine("component weights", componentSum))
	if len(s.draft.SubskillWeights) > 0 {
		b.WriteString("\n")
		b.WriteString(sumLine("subskill weights", subskillSum))
	}
	return b.String()
}

func sumLine(what string, sum float64) string {
	style := lipgloss.NewStyle().Foreground(theme.Success)
	if sum != 100 {
		style = style.Foreground(theme.Warning)
	}
	return style.Render(fmt.Sprintf("%s total %g%%", what, sum))
}

func (s *RubricScreen) renderPreview() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Preview"))
	b.WriteString("\n\n")

	if len(s.rows) == 0 {
		b.WriteString(theme.Hint.Render("No preview while the draft is invalid."))
		return b.String()
	}
	for _, row := range s.rows {
		name := fmt.Sprintf("%-10s", row.Sample.Name)
		if row.Outcome == nil {
			b.WriteString(name + lipgloss.NewStyle().Foreground(theme.Error).Render(row.Err))
			b.WriteString("\n")
			continue
		}
		b.WriteString(fmt.Sprintf("%s%6.2f  %3d  ", name, row.Outcome.Composite, row.Outcome.Rounded))
		b.WriteString(theme.Bucket(row.Outcome.Bucket).Render(row.Outcome.Bucket.Label()))
		b.WriteString("\n")
	}
	return b.String()
}
