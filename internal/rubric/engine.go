package rubric

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Contribution is one component's share of the composite.
type Contribution struct {
	ComponentID string  `json:"componentId"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Points      float64 `json:"points"`
}

// SubskillScore is one entry of the subskill breakdown.
type SubskillScore struct {
	Subskill string  `json:"subskill"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Points   float64 `json:"points"`
}

// Outcome is the full evaluation of one score set.
type Outcome struct {
	Composite     float64         `json:"composite"`
	Rounded       int             `json:"rounded"`
	Bucket        Bucket          `json:"bucket"`
	Contributions []Contribution  `json:"contributions"`
	Subskills     []SubskillScore `json:"subskills,omitempty"`
	// SubskillIndex is the weighted subskill aggregate; it never affects Bucket.
	SubskillIndex float64 `json:"subskillIndex,omitempty"`
}

// Composite returns Σ scores[c]·weight[c] / 100 over the weighted
// components. It rejects an invalid config and any weighted component
// whose score is missing or outside 0..100.
func Composite(scores map[string]float64, cfg Config) (float64, error) {
	contribs, err := contributions(scores, cfg)
	if err != nil {
		return 0, err
	}
	return composite(contribs), nil
}

// composite divides once after summing score·weight so that a composite
// landing on a threshold compares equal to it. Points are for display.
func composite(contribs []Contribution) float64 {
	sum := 0.0
	for _, c := range contribs {
		sum += c.Score * c.Weight
	}
	return sum / 100
}

func contributions(scores map[string]float64, cfg Config) ([]Contribution, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	out := make([]Contribution, 0, len(cfg.ComponentWeights))
	for _, id := range cfg.Components() {
		w := cfg.ComponentWeights[id]
		s, ok := scores[id]
		if !ok {
			return nil, fmt.Errorf("no score for component %q", id)
		}
		if s < 0 || s > 100 || math.IsNaN(s) {
			return nil, fmt.Errorf("score %g for component %q outside 0..100", s, id)
		}
		out = append(out, Contribution{ComponentID: id, Score: s, Weight: w, Points: s * w / 100})
	}
	return out, nil
}

// BucketFor maps a composite onto the threshold ladder. Each bound is
// inclusive from below.
func BucketFor(composite float64, t Thresholds) Bucket {
	switch {
	case composite >= t.Admit:
		return BucketAdmit
	case composite >= t.Counselling:
		return BucketCounselling
	case composite >= t.Bridge:
		return BucketBridge
	default:
		return BucketReject
	}
}

// Round returns the composite as shown to users.
func Round(composite float64) int {
	return int(math.Round(composite))
}

// Evaluate computes the composite, bucket and breakdowns for scores.
// Subskill scores are optional; missing subskills are left out of the
// breakdown.
func Evaluate(scores, subskills map[string]float64, cfg Config) (*Outcome, error) {
	contribs, err := contributions(scores, cfg)
	if err != nil {
		return nil, err
	}
	total := composite(contribs)

	o := &Outcome{
		Composite:     total,
		Rounded:       Round(total),
		Bucket:        BucketFor(total, cfg.Thresholds),
		Contributions: contribs,
	}

	var index float64
	for _, id := range slices.Sorted(maps.Keys(cfg.SubskillWeights)) {
		s, ok := subskills[id]
		if !ok {
			continue
		}
		w := cfg.SubskillWeights[id]
		o.Subskills = append(o.Subskills, SubskillScore{Subskill: id, Score: s, Weight: w, Points: s * w / 100})
		index += s * w
	}
	o.SubskillIndex = index / 100
	return o, nil
}

// Sample is a fixed score set used to preview a rubric.
type Sample struct {
	Name   string             `json:"name"`
	Scores map[string]float64 `json:"scores"`
}

// SampleCandidates returns the built-in preview inputs.
func SampleCandidates() []Sample {
	return []Sample{
		{Name: "Sample A", Scores: map[string]float64{"FLAT": 75, "ASP": 80, "VAL": 65, "MS": 85}},
		{Name: "Sample B", Scores: map[string]float64{"FLAT": 62, "ASP": 70, "VAL": 75, "MS": 60}},
		{Name: "Sample C", Scores: map[string]float64{"FLAT": 45, "ASP": 55, "VAL": 50, "MS": 40}},
	}
}

// PreviewRow is the evaluation of one sample under a draft config.
type PreviewRow struct {
	Sample  Sample   `json:"sample"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Err     string   `json:"error,omitempty"`
}

// Preview evaluates each sample under cfg without touching any persisted
// state. An invalid cfg yields the validation error and no rows.
func Preview(cfg Config, samples []Sample) ([]PreviewRow, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	rows := make([]PreviewRow, 0, len(samples))
	for _, s := range samples {
		row := PreviewRow{Sample: s}
		o, err := Evaluate(s.Scores, nil, cfg)
		if err != nil {
			row.Err = err.Error()
		} else {
			row.Outcome = o
		}
		rows = append(rows, row)
	}
	return rows, nil
}
