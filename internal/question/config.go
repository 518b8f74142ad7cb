package question

import (
	"fmt"
	"strings"

	"github.com/candidus/assessor/internal/apperr"
)

// CheckConfig verifies that the question's own configuration is usable.
// A question that fails this check is rendered as a configuration error
// and may be skipped without an answer.
func CheckConfig(q *Question) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(q.ID) == "" {
		add("id is missing")
	}

	switch q.Type {
	case TypeSingle, TypeMulti:
		if len(q.Options) == 0 {
			add("options are missing")
		}
		if q.Type == TypeMulti {
			if q.MinSelect < 0 || q.MaxSelect < 0 {
				add("minSelect and maxSelect must not be negative")
			}
			if q.MaxSelect > 0 && q.MinSelect > q.MaxSelect {
				add("minSelect %d exceeds maxSelect %d", q.MinSelect, q.MaxSelect)
			}
			if q.MinSelect > len(q.Options) {
				add("minSelect %d exceeds the %d options", q.MinSelect, len(q.Options))
			}
		}
	case TypeRanking:
		if len(q.Tokens) == 0 {
			add("tokens are missing")
		}
		if q.RequiredCount > len(q.Tokens) {
			add("requiredCount %d exceeds the %d tokens", q.RequiredCount, len(q.Tokens))
		}
	case TypeSequence:
		if len(q.Sequence) == 0 {
			add("sequence is missing")
		}
	case TypeAudio:
		if q.Audio == nil || q.Audio.TargetURL == "" || len(q.Audio.Choices) == 0 {
			add("audio target or choices are missing")
		}
	case TypeLikert:
		if q.Scale == nil {
			add("scale is missing")
		} else if q.Scale.Min >= q.Scale.Max {
			add("scale min %d must be below max %d", q.Scale.Min, q.Scale.Max)
		}
	case TypeForcedRanking:
		if len(q.Options) == 0 {
			add("options are missing")
		}
		if q.RequiredCount > len(q.Options) {
			add("requiredCount %d exceeds the %d options", q.RequiredCount, len(q.Options))
		}
	case TypeDilemma:
		if len(q.Options) == 0 {
			add("options are missing")
		}
	case TypeMatch:
		if len(q.Prompts) == 0 || len(q.Targets) == 0 {
			add("prompts or targets are missing")
		}
		if n := q.requiredPairs(); n > len(q.Prompts) {
			add("requiredPairs %d exceeds the %d prompts", n, len(q.Prompts))
		}
	default:
		add("unknown question type %q", q.Type)
	}

	if q.TimerSec < 0 {
		add("timerSec must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return &apperr.ValidationError{
		QuestionID: q.ID,
		Rule:       "config",
		Message:    strings.Join(problems, "; "),
	}
}

// Skippable reports whether the question is malformed and may therefore be
// passed over without an answer.
func Skippable(q *Question) bool {
	return CheckConfig(q) != nil
}
