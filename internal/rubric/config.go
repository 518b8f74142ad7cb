// Package rubric turns per-component scores into a weighted composite and
// an admission bucket, and manages the committed rubric configuration.
package rubric

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/candidus/assessor/internal/apperr"
)

// Bucket is the categorical admission outcome.
type Bucket string

const (
	BucketAdmit       Bucket = "admit"
	BucketCounselling Bucket = "counselling"
	BucketBridge      Bucket = "bridge"
	BucketReject      Bucket = "reject"
)

// Label returns the display name of the bucket.
func (b Bucket) Label() string {
	switch b {
	case BucketAdmit:
		return "Admit"
	case BucketCounselling:
		return "Counselling"
	case BucketBridge:
		return "Bridge"
	case BucketReject:
		return "Reject"
	}
	return string(b)
}

// Thresholds are the composite cut-offs, highest first.
type Thresholds struct {
	Admit       float64 `json:"admit" yaml:"admit" mapstructure:"admit"`
	Counselling float64 `json:"counselling" yaml:"counselling" mapstructure:"counselling"`
	Bridge      float64 `json:"bridge" yaml:"bridge" mapstructure:"bridge"`
}

// Config is the rubric applied to completed attempts. Weights are
// percentages keyed by component or subskill ID.
type Config struct {
	ComponentWeights map[string]float64 `json:"componentWeights" yaml:"componentWeights" mapstructure:"component_weights"`
	Thresholds       Thresholds         `json:"thresholds" yaml:"thresholds" mapstructure:"thresholds"`
	SubskillWeights  map[string]float64 `json:"subskillWeights,omitempty" yaml:"subskillWeights,omitempty" mapstructure:"subskill_weights"`
}

// DefaultConfig returns the rubric used when none has been committed.
func DefaultConfig() Config {
	return Config{
		ComponentWeights: map[string]float64{
			"FLAT": 40,
			"ASP":  20,
			"VAL":  20,
			"MS":   20,
		},
		Thresholds: Thresholds{
			Admit:       70,
			Counselling: 55,
			Bridge:      40,
		},
		SubskillWeights: map[string]float64{
			"phonetic": 20,
			"grammar":  25,
			"vocab":    25,
			"audio":    20,
			"memory":   10,
		},
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	c.ComponentWeights = maps.Clone(c.ComponentWeights)
	c.SubskillWeights = maps.Clone(c.SubskillWeights)
	return c
}

// Components returns the weighted component IDs in sorted order.
func (c Config) Components() []string {
	return slices.Sorted(maps.Keys(c.ComponentWeights))
}

const weightTolerance = 1e-9

// Validate checks every rule and returns a *apperr.ConfigInvalidError
// listing all problems, or nil.
func Validate(c Config) error {
	var problems []string

	if len(c.ComponentWeights) == 0 {
		problems = append(problems, "no component weights")
	}
	problems = append(problems, checkWeights("component", c.ComponentWeights)...)

	t := c.Thresholds
	for _, th := range []struct {
		name string
		v    float64
	}{{"admit", t.Admit}, {"counselling", t.Counselling}, {"bridge", t.Bridge}} {
		if th.v < 0 || th.v > 100 {
			problems = append(problems, fmt.Sprintf("%s threshold %g outside 0..100", th.name, th.v))
		}
	}
	if !(t.Admit > t.Counselling && t.Counselling > t.Bridge) {
		problems = append(problems, fmt.Sprintf(
			"thresholds must descend admit > counselling > bridge, got %g > %g > %g",
			t.Admit, t.Counselling, t.Bridge))
	}

	if len(c.SubskillWeights) > 0 {
		problems = append(problems, checkWeights("subskill", c.SubskillWeights)...)
	}

	if len(problems) == 0 {
		return nil
	}
	return &apperr.ConfigInvalidError{Problems: problems}
}

func checkWeights(kind string, weights map[string]float64) []string {
	if len(weights) == 0 {
		return nil
	}
	var problems []string
	sum := 0.0
	for _, id := range slices.Sorted(maps.Keys(weights)) {
		w := weights[id]
		if w < 0 || math.IsNaN(w) {
			problems = append(problems, fmt.Sprintf("%s %q has invalid weight %g", kind, id, w))
		}
		sum += w
	}
	if math.Abs(sum-100) > weightTolerance {
		problems = append(problems, fmt.Sprintf("%s weights sum to %g, want 100", kind, sum))
	}
	return problems
}
