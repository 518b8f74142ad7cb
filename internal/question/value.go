package question

import (
	"encoding/json"
	"fmt"
)

// Value is a candidate's answer to one question. The set of
// implementations is closed: one variant per question type.
type Value interface {
	// Type returns the question type this value answers.
	Type() Type
	isValue()
}

// Single selects one option by index.
type Single struct {
	Index int `json:"index"`
}

// Multi selects a set of options by index.
type Multi struct {
	Indices []int `json:"indices"`
}

// Ranking orders the question's tokens.
type Ranking struct {
	Order []string `json:"order"`
}

// Sequence is the list of tokens the candidate recalled, in order.
type Sequence struct {
	Recalled []string `json:"recalled"`
}

// Audio selects one of the clip's choices by index.
type Audio struct {
	Choice int `json:"choice"`
}

// Likert is a point on the question's scale.
type Likert struct {
	Point int `json:"point"`
}

// ForcedRanking lists options from most to least preferred.
type ForcedRanking struct {
	Ranked []string `json:"ranked"`
}

// Dilemma selects an option and optionally explains why.
type Dilemma struct {
	Choice    int    `json:"choice"`
	Rationale string `json:"rationale,omitempty"`
}

// Pair links a match prompt to a target.
type Pair struct {
	PromptID string `json:"promptId"`
	TargetID string `json:"targetId"`
}

// Match is the set of prompt-to-target pairs made by the candidate.
type Match struct {
	Pairs []Pair `json:"pairs"`
}

func (Single) Type() Type        { return TypeSingle }
func (Multi) Type() Type         { return TypeMulti }
func (Ranking) Type() Type       { return TypeRanking }
func (Sequence) Type() Type      { return TypeSequence }
func (Audio) Type() Type         { return TypeAudio }
func (Likert) Type() Type        { return TypeLikert }
func (ForcedRanking) Type() Type { return TypeForcedRanking }
func (Dilemma) Type() Type       { return TypeDilemma }
func (Match) Type() Type         { return TypeMatch }

func (Single) isValue()        {}
func (Multi) isValue()         {}
func (Ranking) isValue()       {}
func (Sequence) isValue()      {}
func (Audio) isValue()         {}
func (Likert) isValue()        {}
func (ForcedRanking) isValue() {}
func (Dilemma) isValue()       {}
func (Match) isValue()         {}

// Empty returns the initial value a renderer starts from for type t.
// It is never complete.
func Empty(t Type) Value {
	switch t {
	case TypeSingle:
		return Single{Index: -1}
	case TypeMulti:
		return Multi{}
	case TypeRanking:
		return Ranking{}
	case TypeSequence:
		return Sequence{}
	case TypeAudio:
		return Audio{Choice: -1}
	case TypeLikert:
		return Likert{Point: noPoint}
	case TypeForcedRanking:
		return ForcedRanking{}
	case TypeDilemma:
		return Dilemma{Choice: -1}
	case TypeMatch:
		return Match{}
	}
	return nil
}

// noPoint is below any sensible scale so an empty likert never validates.
const noPoint = -1 << 31

// EncodeValue marshals v for persistence. A nil value encodes as JSON null.
func EncodeValue(v Value) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s value: %w", v.Type(), err)
	}
	return b, nil
}

// DecodeValue unmarshals raw as the value variant for type t.
// JSON null (or empty input) decodes to a nil Value.
func DecodeValue(t Type, raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var (
		v   Value
		err error
	)
	switch t {
	case TypeSingle:
		var x Single
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeMulti:
		var x Multi
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeRanking:
		var x Ranking
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeSequence:
		var x Sequence
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeAudio:
		var x Audio
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeLikert:
		var x Likert
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeForcedRanking:
		var x ForcedRanking
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeDilemma:
		var x Dilemma
		err = json.Unmarshal(raw, &x)
		v = x
	case TypeMatch:
		var x Match
		err = json.Unmarshal(raw, &x)
		v = x
	default:
		return nil, fmt.Errorf("decode value: unknown question type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s value: %w", t, err)
	}
	return v, nil
}
