package components

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/ui/theme"
)

// OptionList renders the choices of a question with the current answer
// highlighted. It never edits the answer.
type OptionList struct {
	Question *question.Question
	Value    question.Value
}

// NewOptionList creates an option list for q showing v.
func NewOptionList(q *question.Question, v question.Value) OptionList {
	return OptionList{Question: q, Value: v}
}

// View renders the option list.
func (o OptionList) View() string {
	q := o.Question
	if q == nil {
		return ""
	}

	switch q.Type {
	case question.TypeSingle, question.TypeMulti, question.TypeDilemma:
		return numbered(q.Options, o.chosen())
	case question.TypeAudio:
		if q.Audio == nil {
			return ""
		}
		head := theme.Hint.Render("Clip: "+q.Audio.TargetURL) + "\n"
		return head + numbered(q.Audio.Choices, o.chosen())
	case question.TypeRanking:
		return pool("Tokens", q.Tokens, o.ranked())
	case question.TypeForcedRanking:
		return pool("Options", q.Options, o.ranked())
	case question.TypeSequence:
		return theme.Hint.Render(fmt.Sprintf("Recall %d items in order, separated by spaces", len(q.Sequence)))
	case question.TypeLikert:
		return o.scale()
	case question.TypeMatch:
		return o.match()
	}
	return ""
}

func (o OptionList) chosen() []int {
	switch v := o.Value.(type) {
	case question.Single:
		return []int{v.Index}
	case question.Audio:
		return []int{v.Choice}
	case question.Multi:
		return v.Indices
	case question.Dilemma:
		return []int{v.Choice}
	}
	return nil
}

func (o OptionList) ranked() []string {
	switch v := o.Value.(type) {
	case question.Ranking:
		return v.Order
	case question.ForcedRanking:
		return v.Ranked
	}
	return nil
}

func numbered(options []string, chosen []int) string {
	var b strings.Builder
	for i, opt := range options {
		mark := "  "
		style := theme.Unselected
		if slices.Contains(chosen, i) {
			mark = "● "
			style = theme.Selected
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%d) %s", mark, i+1, opt)))
		b.WriteString("\n")
	}
	return b.String()
}

func pool(label string, items, ranked []string) string {
	var b strings.Builder
	b.WriteString(theme.Hint.Render(label + ":"))
	b.WriteString("\n")
	for i, it := range items {
		line := fmt.Sprintf("  %d) %s", i+1, it)
		if pos := slices.Index(ranked, it); pos >= 0 {
			line += fmt.Sprintf("  #%d", pos+1)
			b.WriteString(theme.Selected.Render(line))
		} else {
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (o OptionList) scale() string {
	s := o.Question.Scale
	if s == nil {
		return ""
	}
	point := 0
	if v, ok := o.Value.(question.Likert); ok {
		point = v.Point
	}
	cells := make([]string, 0, s.Max-s.Min+1)
	for p := s.Min; p <= s.Max; p++ {
		cell := fmt.Sprintf("[%d]", p)
		if p == point {
			cells = append(cells, theme.Selected.Render(cell))
		} else {
			cells = append(cells, theme.Unselected.Render(cell))
		}
	}
	return theme.Hint.Render(s.Labels[0]) + "  " + strings.Join(cells, " ") + "  " + theme.Hint.Render(s.Labels[1])
}

func (o OptionList) match() string {
	q := o.Question
	paired := map[string]string{}
	if v, ok := o.Value.(question.Match); ok {
		for _, p := range v.Pairs {
			paired[p.PromptID] = p.TargetID
		}
	}

	var left, right strings.Builder
	left.WriteString(theme.Hint.Render("Prompts") + "\n")
	for _, p := range q.Prompts {
		line := fmt.Sprintf("%s  %s", p.ID, p.Label)
		if t, ok := paired[p.ID]; ok {
			line += " → " + t
			left.WriteString(theme.Selected.Render(line))
		} else {
			left.WriteString(theme.Unselected.Render(line))
		}
		left.WriteString("\n")
	}
	right.WriteString(theme.Hint.Render("Targets") + "\n")
	for _, t := range q.Targets {
		right.WriteString(theme.Unselected.Render(fmt.Sprintf("%s  %s", t.ID, t.Label)))
		right.WriteString("\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left.String(), "      ", right.String())
}
