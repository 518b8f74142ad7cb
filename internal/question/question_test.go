package question

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/candidus/assessor/internal/apperr"
)

func sampleQuestions() map[Type]*Question {
	return map[Type]*Question{
		TypeSingle: {ID: "q-single", Type: TypeSingle, Stem: "Pick one", Options: []string{"a", "b", "c"}},
		TypeMulti:  {ID: "q-multi", Type: TypeMulti, Stem: "Pick some", Options: []string{"a", "b", "c", "d"}},
		TypeRanking: {ID: "q-rank", Type: TypeRanking, Stem: "Order",
			Tokens: []string{"x", "y", "z"}},
		TypeSequence: {ID: "q-seq", Type: TypeSequence, Stem: "Recall",
			Sequence: []string{"red", "blue", "green"}},
		TypeAudio: {ID: "q-audio", Type: TypeAudio, Stem: "Listen",
			Audio: &AudioConfig{TargetURL: "https://cdn.example/clip.mp3", Choices: []string{"cat", "cut"}}},
		TypeLikert: {ID: "q-likert", Type: TypeLikert, Stem: "Agree?",
			Scale: &Scale{Min: 1, Max: 5}},
		TypeForcedRanking: {ID: "q-fr", Type: TypeForcedRanking, Stem: "Prefer",
			Options: []string{"lead", "support", "plan"}},
		TypeDilemma: {ID: "q-dil", Type: TypeDilemma, Stem: "Choose",
			Options: []string{"report", "ignore"}, RequireRationale: true},
		TypeMatch: {ID: "q-match", Type: TypeMatch, Stem: "Match",
			Prompts: []MatchItem{{ID: "p1", Label: "dog"}, {ID: "p2", Label: "cat"}},
			Targets: []MatchItem{{ID: "t1", Label: "perro"}, {ID: "t2", Label: "gato"}}},
	}
}

func TestEmptyValueIsIncompleteForEveryType(t *testing.T) {
	qs := sampleQuestions()
	for _, typ := range AllTypes() {
		q := qs[typ]
		if q == nil {
			t.Fatalf("no sample question for %s", typ)
		}
		if err := CheckConfig(q); err != nil {
			t.Fatalf("sample %s is malformed: %v", typ, err)
		}
		if IsComplete(q, Empty(typ)) {
			t.Errorf("%s: empty value reported complete", typ)
		}
		if IsComplete(q, nil) {
			t.Errorf("%s: nil value reported complete", typ)
		}
	}
}

func TestIsComplete(t *testing.T) {
	qs := sampleQuestions()

	multiMin2 := *qs[TypeMulti]
	multiMin2.MinSelect = 2
	multiMax2 := *qs[TypeMulti]
	multiMax2.MaxSelect = 2
	rank2 := *qs[TypeRanking]
	rank2.RequiredCount = 2
	partial := *qs[TypeSequence]
	partial.AllowPartialRecall = true
	manyToOne := *qs[TypeMatch]
	manyToOne.Constraints = &MatchConstraints{AllowManyToOne: true}
	onePair := *qs[TypeMatch]
	onePair.Constraints = &MatchConstraints{RequiredPairs: 1}
	noRationale := *qs[TypeDilemma]
	noRationale.RequireRationale = false

	tests := []struct {
		name string
		q    *Question
		v    Value
		want bool
		rule string
	}{
		{"single valid", qs[TypeSingle], Single{Index: 2}, true, ""},
		{"single out of range", qs[TypeSingle], Single{Index: 3}, false, "select"},
		{"wrong variant", qs[TypeSingle], Audio{Choice: 0}, false, "type"},

		{"multi one", qs[TypeMulti], Multi{Indices: []int{1}}, true, ""},
		{"multi duplicate", qs[TypeMulti], Multi{Indices: []int{1, 1}}, false, "select"},
		{"multi min 2 with one", &multiMin2, Multi{Indices: []int{0}}, false, "min-select"},
		{"multi min 2 with two", &multiMin2, Multi{Indices: []int{0, 3}}, true, ""},
		{"multi max 2 with three", &multiMax2, Multi{Indices: []int{0, 1, 2}}, false, "max-select"},

		{"ranking all", qs[TypeRanking], Ranking{Order: []string{"z", "x", "y"}}, true, ""},
		{"ranking short", qs[TypeRanking], Ranking{Order: []string{"z", "x"}}, false, "rank-count"},
		{"ranking required 2", &rank2, Ranking{Order: []string{"z", "x"}}, true, ""},
		{"ranking unknown token", qs[TypeRanking], Ranking{Order: []string{"z", "x", "w"}}, false, "rank"},
		{"ranking repeated", qs[TypeRanking], Ranking{Order: []string{"z", "z", "y"}}, false, "rank"},

		{"sequence full", qs[TypeSequence], Sequence{Recalled: []string{"red", "blue", "green"}}, true, ""},
		{"sequence partial disallowed", qs[TypeSequence], Sequence{Recalled: []string{"red"}}, false, "recall"},
		{"sequence partial allowed", &partial, Sequence{Recalled: []string{"red"}}, true, ""},
		{"sequence foreign token", &partial, Sequence{Recalled: []string{"pink"}}, false, "recall"},

		{"audio valid", qs[TypeAudio], Audio{Choice: 1}, true, ""},
		{"likert in range", qs[TypeLikert], Likert{Point: 5}, true, ""},
		{"likert below", qs[TypeLikert], Likert{Point: 0}, false, "scale"},

		{"forced ranking", qs[TypeForcedRanking], ForcedRanking{Ranked: []string{"plan", "lead", "support"}}, true, ""},

		{"dilemma without rationale", qs[TypeDilemma], Dilemma{Choice: 0}, false, "rationale"},
		{"dilemma blank rationale", qs[TypeDilemma], Dilemma{Choice: 0, Rationale: "   "}, false, "rationale"},
		{"dilemma with rationale", qs[TypeDilemma], Dilemma{Choice: 0, Rationale: "honesty"}, true, ""},
		{"dilemma rationale optional", &noRationale, Dilemma{Choice: 1}, true, ""},

		{"match all", qs[TypeMatch], Match{Pairs: []Pair{{"p1", "t1"}, {"p2", "t2"}}}, true, ""},
		{"match too few", qs[TypeMatch], Match{Pairs: []Pair{{"p1", "t1"}}}, false, "pairs"},
		{"match one required", &onePair, Match{Pairs: []Pair{{"p1", "t1"}}}, true, ""},
		{"match target reuse", qs[TypeMatch], Match{Pairs: []Pair{{"p1", "t1"}, {"p2", "t1"}}}, false, "many-to-one"},
		{"match reuse allowed", &manyToOne, Match{Pairs: []Pair{{"p1", "t1"}, {"p2", "t1"}}}, true, ""},
		{"match prompt twice", &manyToOne, Match{Pairs: []Pair{{"p1", "t1"}, {"p1", "t2"}}}, false, "pair"},
		{"match unknown target", qs[TypeMatch], Match{Pairs: []Pair{{"p1", "t9"}, {"p2", "t1"}}}, false, "pair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.q, tt.v)
			if got := err == nil; got != tt.want {
				t.Fatalf("complete = %v, want %v (err: %v)", got, tt.want, err)
			}
			if tt.rule == "" {
				return
			}
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error %T is not a ValidationError", err)
			}
			if ve.Rule != tt.rule {
				t.Errorf("rule = %q, want %q", ve.Rule, tt.rule)
			}
			if ve.QuestionID != tt.q.ID {
				t.Errorf("question id = %q, want %q", ve.QuestionID, tt.q.ID)
			}
		})
	}
}

func TestCheckConfig(t *testing.T) {
	tests := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"single without options", Question{ID: "a", Type: TypeSingle}, false},
		{"likert without scale", Question{ID: "b", Type: TypeLikert}, false},
		{"likert inverted scale", Question{ID: "c", Type: TypeLikert, Scale: &Scale{Min: 5, Max: 1}}, false},
		{"audio without url", Question{ID: "d", Type: TypeAudio, Audio: &AudioConfig{Choices: []string{"x"}}}, false},
		{"ranking count too large", Question{ID: "e", Type: TypeRanking, Tokens: []string{"a"}, RequiredCount: 2}, false},
		{"match pairs too many", Question{ID: "f", Type: TypeMatch,
			Prompts:     []MatchItem{{ID: "p"}},
			Targets:     []MatchItem{{ID: "t"}},
			Constraints: &MatchConstraints{RequiredPairs: 3}}, false},
		{"unknown type", Question{ID: "g", Type: "essay"}, false},
		{"missing id", Question{Type: TypeSingle, Options: []string{"x"}}, false},
		{"negative timer", Question{ID: "h", Type: TypeSingle, Options: []string{"x"}, TimerSec: -1}, false},
		{"valid", Question{ID: "i", Type: TypeSingle, Options: []string{"x"}, TimerSec: 30}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfig(&tt.q)
			if (err == nil) != tt.ok {
				t.Fatalf("CheckConfig err = %v, want ok=%v", err, tt.ok)
			}
			if got := Skippable(&tt.q); got == tt.ok {
				t.Errorf("Skippable = %v, want %v", got, !tt.ok)
			}
		})
	}
}

func TestMalformedQuestionNeverComplete(t *testing.T) {
	q := &Question{ID: "broken", Type: TypeSingle}
	if IsComplete(q, Single{Index: 0}) {
		t.Fatal("answer to a malformed question reported complete")
	}
	if !Skippable(q) {
		t.Fatal("malformed question should be skippable")
	}
}

func TestScaleShorthand(t *testing.T) {
	var fromJSON Question
	if err := json.Unmarshal([]byte(`{"id":"l","type":"likert","scale":7}`), &fromJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	if fromJSON.Scale.Min != 1 || fromJSON.Scale.Max != 7 {
		t.Errorf("json scale = %+v, want 1..7", fromJSON.Scale)
	}
	if fromJSON.Scale.Labels != defaultScaleLabels {
		t.Errorf("json labels = %v", fromJSON.Scale.Labels)
	}

	var fromYAML Question
	src := "id: l\ntype: likert\nscale:\n  min: 0\n  max: 10\n  labels: [Never, Always]\n"
	if err := yaml.Unmarshal([]byte(src), &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if fromYAML.Scale.Min != 0 || fromYAML.Scale.Max != 10 || fromYAML.Scale.Labels[1] != "Always" {
		t.Errorf("yaml scale = %+v", fromYAML.Scale)
	}

	var short Question
	if err := yaml.Unmarshal([]byte("id: l\ntype: likert\nscale: 5\n"), &short); err != nil {
		t.Fatalf("yaml shorthand: %v", err)
	}
	if short.Scale.Max != 5 {
		t.Errorf("yaml shorthand max = %d, want 5", short.Scale.Max)
	}
}

func TestDecodeValue(t *testing.T) {
	v, err := DecodeValue(TypeMatch, json.RawMessage(`{"pairs":[{"promptId":"p1","targetId":"t2"}]}`))
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	m, ok := v.(Match)
	if !ok || len(m.Pairs) != 1 || m.Pairs[0].TargetID != "t2" {
		t.Fatalf("decoded %#v", v)
	}

	v, err = DecodeValue(TypeSingle, json.RawMessage("null"))
	if err != nil || v != nil {
		t.Fatalf("null decoded to %#v, %v", v, err)
	}

	if _, err := DecodeValue("essay", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unknown type")
	}

	raw, err := EncodeValue(nil)
	if err != nil || string(raw) != "null" {
		t.Fatalf("EncodeValue(nil) = %s, %v", raw, err)
	}
}

func TestParseValue(t *testing.T) {
	qs := sampleQuestions()
	tests := []struct {
		name string
		q    *Question
		in   string
		want string
	}{
		{"single", qs[TypeSingle], "2", "2"},
		{"multi", qs[TypeMulti], "1, 3", "1,3"},
		{"ranking by name", qs[TypeRanking], "z>x>y", "z>x>y"},
		{"forced ranking by number", qs[TypeForcedRanking], "3>1>2", "plan>lead>support"},
		{"sequence", qs[TypeSequence], "red, blue green", "red blue green"},
		{"likert", qs[TypeLikert], "4", "4"},
		{"dilemma", qs[TypeDilemma], "2:  it is fair ", "2: it is fair"},
		{"match", qs[TypeMatch], "p1=t2,p2 = t1", "p1=t2, p2=t1"},
		{"blank", qs[TypeSingle], "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseValue(tt.q, tt.in)
			if err != nil {
				t.Fatalf("ParseValue: %v", err)
			}
			if got := FormatValue(tt.q, v); got != tt.want {
				t.Errorf("FormatValue = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ParseValue(qs[TypeSingle], "zero"); err == nil {
		t.Error("expected error for non-numeric option")
	}
	if _, err := ParseValue(qs[TypeMatch], "p1"); err == nil {
		t.Error("expected error for pair without target")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		visited, answered, marked bool
		want                      Status
	}{
		{false, false, false, StatusNotSeen},
		{true, false, false, StatusSeenUnanswered},
		{true, true, false, StatusAnswered},
		{true, true, true, StatusMarked},
		{false, false, true, StatusMarked},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.visited, tt.answered, tt.marked); got != tt.want {
			t.Errorf("StatusOf(%v,%v,%v) = %q, want %q", tt.visited, tt.answered, tt.marked, got, tt.want)
		}
	}
}

func TestCode(t *testing.T) {
	seen := map[string]bool{}
	for _, typ := range AllTypes() {
		c := typ.Code()
		if seen[c] {
			t.Errorf("duplicate code %q", c)
		}
		seen[c] = true
	}
	if TypeForcedRanking.Code() != "FR" {
		t.Errorf("forced_ranking code = %q", TypeForcedRanking.Code())
	}
}
