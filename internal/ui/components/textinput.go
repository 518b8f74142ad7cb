package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with an inline problem message.
type TextInput struct {
	Model   textinput.Model
	problem string
}

// NewTextInput creates a focused text input.
func NewTextInput(placeholder string, charLimit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	ti.Focus()
	return TextInput{Model: ti}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages. Editing clears the problem message.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if _, ok := msg.(tea.KeyPressMsg); ok {
		t.problem = ""
	}
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the text input followed by the problem message, if any.
func (t TextInput) View() string {
	view := t.Model.View()
	if t.problem != "" {
		view += "\n" + lipgloss.NewStyle().Foreground(theme.Error).Render(t.problem)
	}
	return view
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// SetValue replaces the text and moves the cursor to the end.
func (t *TextInput) SetValue(s string) {
	t.Model.SetValue(s)
	t.Model.CursorEnd()
	t.problem = ""
}

// Problem shows msg under the field until the next edit.
func (t *TextInput) Problem(msg string) {
	t.problem = msg
}

// HasProblem reports whether a problem message is showing.
func (t TextInput) HasProblem() bool {
	return t.problem != ""
}
