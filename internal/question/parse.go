package question

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseValue decodes a typed-in answer for q. Option numbers are 1-based.
//
//	single, audio, likert   "2"
//	multi                   "1,3"
//	ranking, forced_ranking "b>a>c" (items by name or number)
//	sequence                "red blue green"
//	dilemma                 "1: because it is fair"
//	match                   "p1=t2, p2=t1"
//
// Blank text yields the type's empty value. ParseValue only checks syntax;
// completeness is decided by Check.
func ParseValue(q *Question, text string) (Value, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Empty(q.Type), nil
	}

	switch q.Type {
	case TypeSingle:
		idx, err := parseOrdinal(text)
		if err != nil {
			return nil, err
		}
		return Single{Index: idx}, nil
	case TypeAudio:
		idx, err := parseOrdinal(text)
		if err != nil {
			return nil, err
		}
		return Audio{Choice: idx}, nil
	case TypeMulti:
		var out []int
		for _, f := range splitList(text) {
			idx, err := parseOrdinal(f)
			if err != nil {
				return nil, err
			}
			out = append(out, idx)
		}
		return Multi{Indices: out}, nil
	case TypeRanking:
		return Ranking{Order: parseRanked(text, q.Tokens)}, nil
	case TypeForcedRanking:
		return ForcedRanking{Ranked: parseRanked(text, q.Options)}, nil
	case TypeSequence:
		return Sequence{Recalled: strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})}, nil
	case TypeLikert:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("scale point %q is not a number", text)
		}
		return Likert{Point: n}, nil
	case TypeDilemma:
		choice, rationale, _ := strings.Cut(text, ":")
		idx, err := parseOrdinal(strings.TrimSpace(choice))
		if err != nil {
			return nil, err
		}
		return Dilemma{Choice: idx, Rationale: strings.TrimSpace(rationale)}, nil
	case TypeMatch:
		var pairs []Pair
		for _, f := range splitList(text) {
			p, t, ok := strings.Cut(f, "=")
			if !ok {
				return nil, fmt.Errorf("pair %q must look like prompt=target", f)
			}
			pairs = append(pairs, Pair{PromptID: strings.TrimSpace(p), TargetID: strings.TrimSpace(t)})
		}
		return Match{Pairs: pairs}, nil
	}
	return nil, fmt.Errorf("unknown question type %q", q.Type)
}

// FormatValue renders v in the syntax accepted by ParseValue.
func FormatValue(q *Question, v Value) string {
	switch x := v.(type) {
	case Single:
		return formatOrdinal(x.Index)
	case Audio:
		return formatOrdinal(x.Choice)
	case Multi:
		parts := make([]string, 0, len(x.Indices))
		for _, idx := range x.Indices {
			parts = append(parts, formatOrdinal(idx))
		}
		return strings.Join(parts, ",")
	case Ranking:
		return strings.Join(x.Order, ">")
	case ForcedRanking:
		return strings.Join(x.Ranked, ">")
	case Sequence:
		return strings.Join(x.Recalled, " ")
	case Likert:
		if x.Point == noPoint {
			return ""
		}
		return strconv.Itoa(x.Point)
	case Dilemma:
		s := formatOrdinal(x.Choice)
		if s != "" && x.Rationale != "" {
			s += ": " + x.Rationale
		}
		return s
	case Match:
		parts := make([]string, 0, len(x.Pairs))
		for _, p := range x.Pairs {
			parts = append(parts, p.PromptID+"="+p.TargetID)
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func parseOrdinal(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not an option number", s)
	}
	return n - 1, nil
}

func formatOrdinal(idx int) string {
	if idx < 0 {
		return ""
	}
	return strconv.Itoa(idx + 1)
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseRanked splits "a>b>c". A number that is not itself a pool item
// refers to the pool by position.
func parseRanked(s string, pool []string) []string {
	named := make(map[string]bool, len(pool))
	for _, p := range pool {
		named[p] = true
	}
	var out []string
	for _, f := range strings.Split(s, ">") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !named[f] {
			if n, err := strconv.Atoi(f); err == nil && n >= 1 && n <= len(pool) {
				f = pool[n-1]
			}
		}
		out = append(out, f)
	}
	return out
}
