package gate

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
)

// weightSumTolerance absorbs float accumulation error when validating that
// weights form a convex combination.
const weightSumTolerance = 1e-9

// Weights is the versioned table mapping check names to their share of the
// aggregate score. Kept separate from check logic so re-tuning never
// touches check implementations.
type Weights struct {
	Version string             `json:"version"`
	ByCheck map[string]float64 `json:"by_check"`
}

// DefaultWeights returns weight table v1. Incident similarity and the
// confidence guard carry the most weight: they guard against previously
// observed and novel catastrophic failures respectively.
func DefaultWeights() Weights {
	return Weights{
		Version: "v1",
		ByCheck: map[string]float64{
			checks.NameIncident:   0.25,
			checks.NameConfidence: 0.25,
			checks.NameRegime:     0.20,
			checks.NameBaseline:   0.15,
			checks.NameStructural: 0.15,
		},
	}
}

// Validate enforces the construction-time invariants: one non-negative
// weight per expected check, summing to exactly 1.0.
func (w Weights) Validate(expected []string) error {
	if len(w.ByCheck) != len(expected) {
		return fmt.Errorf("weight table %s has %d entries, want %d", w.Version, len(w.ByCheck), len(expected))
	}

	sum := 0.0
	for _, name := range expected {
		weight, ok := w.ByCheck[name]
		if !ok {
			return fmt.Errorf("weight table %s missing weight for check %q", w.Version, name)
		}
		if weight < 0 {
			return fmt.Errorf("weight table %s has negative weight %.4f for check %q", w.Version, weight, name)
		}
		sum += weight
	}

	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weight table %s sums to %.6f, want 1.0", w.Version, sum)
	}
	return nil
}

// Combine computes the convex combination of check scores. Given validated
// weights and scores in [0,100], the result is guaranteed to stay in
// [0,100].
func (w Weights) Combine(results []checks.Result) float64 {
	score := 0.0
	for _, r := range results {
		score += w.ByCheck[r.Name] * r.Score
	}
	return checks.ClampScore(score)
}
