package question

import (
	"fmt"
	"strings"

	"github.com/candidus/assessor/internal/apperr"
)

// Check reports why v does not complete q, or nil when it does.
// A nil value, a value of the wrong variant, or a malformed question never
// completes.
func Check(q *Question, v Value) error {
	if err := CheckConfig(q); err != nil {
		return err
	}
	if v == nil {
		return invalid(q, "required", "no answer given")
	}
	if v.Type() != q.Type {
		return invalid(q, "type", fmt.Sprintf("%s answer given for a %s question", v.Type(), q.Type))
	}

	switch x := v.(type) {
	case Single:
		return checkIndex(q, "option", x.Index, len(q.Options))
	case Multi:
		return checkMulti(q, x)
	case Ranking:
		return checkRanked(q, x.Order, q.Tokens, "token")
	case Sequence:
		return checkSequence(q, x)
	case Audio:
		return checkIndex(q, "choice", x.Choice, len(q.Audio.Choices))
	case Likert:
		if x.Point < q.Scale.Min || x.Point > q.Scale.Max {
			return invalid(q, "scale", fmt.Sprintf("choose a point between %d and %d", q.Scale.Min, q.Scale.Max))
		}
		return nil
	case ForcedRanking:
		return checkRanked(q, x.Ranked, q.Options, "option")
	case Dilemma:
		if err := checkIndex(q, "option", x.Choice, len(q.Options)); err != nil {
			return err
		}
		if q.RequireRationale && strings.TrimSpace(x.Rationale) == "" {
			return invalid(q, "rationale", "a rationale is required for this question")
		}
		return nil
	case Match:
		return checkMatch(q, x)
	}
	return invalid(q, "type", fmt.Sprintf("unsupported answer variant %T", v))
}

// IsComplete reports whether v satisfies q's completeness rule. It gates
// forward navigation.
func IsComplete(q *Question, v Value) bool {
	return Check(q, v) == nil
}

func invalid(q *Question, rule, msg string) error {
	return &apperr.ValidationError{QuestionID: q.ID, Rule: rule, Message: msg}
}

func checkIndex(q *Question, what string, idx, n int) error {
	if idx < 0 || idx >= n {
		return invalid(q, "select", fmt.Sprintf("select one %s", what))
	}
	return nil
}

func checkMulti(q *Question, x Multi) error {
	seen := make(map[int]bool, len(x.Indices))
	for _, idx := range x.Indices {
		if idx < 0 || idx >= len(q.Options) {
			return invalid(q, "select", fmt.Sprintf("option %d does not exist", idx))
		}
		if seen[idx] {
			return invalid(q, "select", fmt.Sprintf("option %d selected twice", idx))
		}
		seen[idx] = true
	}

	minSel := q.MinSelect
	if minSel < 1 {
		minSel = 1
	}
	if len(x.Indices) < minSel {
		return invalid(q, "min-select", fmt.Sprintf("select at least %d option%s", minSel, plural(minSel)))
	}
	if q.MaxSelect > 0 && len(x.Indices) > q.MaxSelect {
		return invalid(q, "max-select", fmt.Sprintf("select at most %d option%s", q.MaxSelect, plural(q.MaxSelect)))
	}
	return nil
}

// checkRanked verifies that ranked holds exactly the required number of
// distinct members of pool.
func checkRanked(q *Question, ranked, pool []string, what string) error {
	allowed := make(map[string]bool, len(pool))
	for _, p := range pool {
		allowed[p] = true
	}
	seen := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		if !allowed[r] {
			return invalid(q, "rank", fmt.Sprintf("unknown %s %q", what, r))
		}
		if seen[r] {
			return invalid(q, "rank", fmt.Sprintf("%s %q ranked twice", what, r))
		}
		seen[r] = true
	}

	want := q.requiredRanked(len(pool))
	if len(ranked) != want {
		return invalid(q, "rank-count", fmt.Sprintf("rank exactly %d items, got %d", want, len(ranked)))
	}
	return nil
}

func checkSequence(q *Question, x Sequence) error {
	if len(x.Recalled) == 0 {
		return invalid(q, "recall", "recall at least one token")
	}
	vocab := make(map[string]bool, len(q.Sequence))
	for _, tok := range q.Sequence {
		vocab[tok] = true
	}
	for _, tok := range x.Recalled {
		if !vocab[tok] {
			return invalid(q, "recall", fmt.Sprintf("token %q is not part of the sequence", tok))
		}
	}
	if len(x.Recalled) > len(q.Sequence) {
		return invalid(q, "recall", fmt.Sprintf("recalled %d tokens from a sequence of %d", len(x.Recalled), len(q.Sequence)))
	}
	if !q.AllowPartialRecall && len(x.Recalled) < len(q.Sequence) {
		return invalid(q, "recall", fmt.Sprintf("recall all %d tokens", len(q.Sequence)))
	}
	return nil
}

func checkMatch(q *Question, x Match) error {
	prompts := make(map[string]bool, len(q.Prompts))
	for _, p := range q.Prompts {
		prompts[p.ID] = true
	}
	targets := make(map[string]bool, len(q.Targets))
	for _, t := range q.Targets {
		targets[t.ID] = true
	}

	usedPrompt := make(map[string]bool, len(x.Pairs))
	usedTarget := make(map[string]bool, len(x.Pairs))
	for _, p := range x.Pairs {
		if !prompts[p.PromptID] {
			return invalid(q, "pair", fmt.Sprintf("unknown prompt %q", p.PromptID))
		}
		if !targets[p.TargetID] {
			return invalid(q, "pair", fmt.Sprintf("unknown target %q", p.TargetID))
		}
		if usedPrompt[p.PromptID] {
			return invalid(q, "pair", fmt.Sprintf("prompt %q paired twice", p.PromptID))
		}
		if usedTarget[p.TargetID] && !q.allowManyToOne() {
			return invalid(q, "many-to-one", fmt.Sprintf("target %q is already used", p.TargetID))
		}
		usedPrompt[p.PromptID] = true
		usedTarget[p.TargetID] = true
	}

	want := q.requiredPairs()
	if want < 1 {
		want = 1
	}
	if len(x.Pairs) < want {
		return invalid(q, "pairs", fmt.Sprintf("make at least %d pair%s", want, plural(want)))
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
