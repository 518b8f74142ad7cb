package question

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Type identifies one of the supported question variants.
type Type string

const (
	TypeSingle        Type = "single"
	TypeMulti         Type = "multi"
	TypeRanking       Type = "ranking"
	TypeSequence      Type = "sequence"
	TypeAudio         Type = "audio"
	TypeLikert        Type = "likert"
	TypeForcedRanking Type = "forced_ranking"
	TypeDilemma       Type = "dilemma"
	TypeMatch         Type = "match"
)

// AllTypes returns every supported question type in display order.
func AllTypes() []Type {
	return []Type{
		TypeSingle, TypeMulti, TypeRanking, TypeSequence, TypeAudio,
		TypeLikert, TypeForcedRanking, TypeDilemma, TypeMatch,
	}
}

// Code returns the short navigator code for the type.
func (t Type) Code() string {
	switch t {
	case TypeSingle:
		return "SC"
	case TypeMulti:
		return "MC"
	case TypeRanking:
		return "RNK"
	case TypeSequence:
		return "SEQ"
	case TypeAudio:
		return "AUD"
	case TypeLikert:
		return "LKR"
	case TypeForcedRanking:
		return "FR"
	case TypeDilemma:
		return "DIL"
	case TypeMatch:
		return "MAT"
	}
	if len(t) > 3 {
		return string(t[:3])
	}
	return string(t)
}

// Question is an immutable item definition produced by content authoring.
type Question struct {
	ID       string `json:"id" yaml:"id"`
	Type     Type   `json:"type" yaml:"type"`
	Stem     string `json:"stem" yaml:"stem"`
	Subskill string `json:"subskill,omitempty" yaml:"subskill,omitempty"`

	// TimerSec is the per-item countdown in seconds. Zero means untimed.
	TimerSec int `json:"timerSec,omitempty" yaml:"timerSec,omitempty"`

	// single, multi, forced_ranking, dilemma
	Options   []string `json:"options,omitempty" yaml:"options,omitempty"`
	MinSelect int      `json:"minSelect,omitempty" yaml:"minSelect,omitempty"`
	MaxSelect int      `json:"maxSelect,omitempty" yaml:"maxSelect,omitempty"`

	// ranking
	Tokens []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`

	// sequence
	Sequence           []string `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	AllowPartialRecall bool     `json:"allowPartialRecall,omitempty" yaml:"allowPartialRecall,omitempty"`

	// audio
	Audio *AudioConfig `json:"audio,omitempty" yaml:"audio,omitempty"`

	// likert
	Scale *Scale `json:"scale,omitempty" yaml:"scale,omitempty"`

	// ranking, forced_ranking. Zero means all items.
	RequiredCount int `json:"requiredCount,omitempty" yaml:"requiredCount,omitempty"`

	// dilemma
	RequireRationale bool `json:"requireRationale,omitempty" yaml:"requireRationale,omitempty"`

	// match
	Prompts     []MatchItem       `json:"prompts,omitempty" yaml:"prompts,omitempty"`
	Targets     []MatchItem       `json:"targets,omitempty" yaml:"targets,omitempty"`
	Constraints *MatchConstraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// AudioConfig holds the clip and answer choices of an audio question.
type AudioConfig struct {
	TargetURL  string   `json:"targetUrl" yaml:"targetUrl"`
	Choices    []string `json:"choices" yaml:"choices"`
	Transcript string   `json:"transcript,omitempty" yaml:"transcript,omitempty"`
}

// MatchItem is one prompt or target of a match question.
type MatchItem struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// MatchConstraints tunes the completeness rule of a match question.
type MatchConstraints struct {
	RequiredPairs  int  `json:"requiredPairs,omitempty" yaml:"requiredPairs,omitempty"`
	AllowManyToOne bool `json:"allowManyToOne,omitempty" yaml:"allowManyToOne,omitempty"`
}

// Scale is the inclusive point range of a likert question.
//
// Content may write a bare number n as shorthand for {min: 1, max: n}.
type Scale struct {
	Min    int       `json:"min" yaml:"min"`
	Max    int       `json:"max" yaml:"max"`
	Labels [2]string `json:"labels" yaml:"labels"`
}

var defaultScaleLabels = [2]string{"Strongly Disagree", "Strongly Agree"}

func (s *Scale) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*s = Scale{Min: 1, Max: n, Labels: defaultScaleLabels}
		return nil
	}
	type plain Scale
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("scale: %w", err)
	}
	*s = Scale(p)
	return nil
}

func (s *Scale) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("scale: %w", err)
		}
		*s = Scale{Min: 1, Max: n, Labels: defaultScaleLabels}
		return nil
	}
	type plain Scale
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("scale: %w", err)
	}
	*s = Scale(p)
	return nil
}

// Component is a named, ordered group of questions delivered as one attempt.
type Component struct {
	ID               string     `json:"id" yaml:"id"`
	Name             string     `json:"name" yaml:"name"`
	Description      string     `json:"description,omitempty" yaml:"description,omitempty"`
	EstimatedMinutes int        `json:"estimatedMinutes,omitempty" yaml:"estimatedMinutes,omitempty"`
	Items            []Question `json:"items" yaml:"items"`
}

// Timed reports whether the question runs a countdown.
func (q *Question) Timed() bool {
	return q.TimerSec > 0
}

// requiredRanked returns the number of items a ranking must order.
func (q *Question) requiredRanked(pool int) int {
	if q.RequiredCount > 0 {
		return q.RequiredCount
	}
	return pool
}

// requiredPairs returns the number of pairs a match must contain.
func (q *Question) requiredPairs() int {
	if q.Constraints != nil && q.Constraints.RequiredPairs > 0 {
		return q.Constraints.RequiredPairs
	}
	return len(q.Prompts)
}

func (q *Question) allowManyToOne() bool {
	return q.Constraints != nil && q.Constraints.AllowManyToOne
}
