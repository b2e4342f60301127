// Package checks defines the contract shared by the five risk checks. Each
// check is an independent, read-mostly evaluator: it receives the candidate
// trade plus caller-supplied context and returns one scored CheckResult.
// Checks never mutate collaborator state and never fail an evaluation — a
// check that cannot reach its collaborator degrades itself to a neutral
// score with a warning.
package checks

import (
	"context"
	"fmt"
	"math"

	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Canonical check names, also the keys of the aggregator's weight table.
const (
	NameIncident   = "incident_similarity"
	NameConfidence = "confidence_guard"
	NameRegime     = "regime_sizing"
	NameBaseline   = "statistical_baseline"
	NameStructural = "structural"
)

// NeutralScore is the score a check reports when its collaborator is
// unreachable or slow. Low enough not to block a legitimate trade on its
// own, high enough to register in the aggregate.
const NeutralScore = 25.0

// Input carries everything a check may consult for one evaluation.
type Input struct {
	Request        types.TradeRequest
	PortfolioValue float64
	History        []types.TradeOutcome
}

// Result is the immutable outcome of one check run. Score is in [0,100],
// higher meaning riskier.
type Result struct {
	Name           string                 `json:"name"`
	Score          float64                `json:"score"`
	Passed         bool                   `json:"passed"`
	Details        map[string]interface{} `json:"details,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
	Recommendation string                 `json:"recommendation"`
}

// Check is the interface all five risk checks implement. Evaluate must
// honor ctx cancellation on any blocking collaborator call.
type Check interface {
	Name() string
	Evaluate(ctx context.Context, in Input) Result
}

// ClampScore bounds a raw score into the [0,100] contract range.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}

// Degraded builds the neutral result used when a collaborator is
// unreachable or a check times out. Availability wins over strictness: the
// check warns instead of blocking.
func Degraded(name string, reason error) Result {
	return Result{
		Name:    name,
		Score:   NeutralScore,
		Passed:  true,
		Details: map[string]interface{}{"degraded": true},
		Warnings: []string{
			fmt.Sprintf("%s degraded to neutral score: %v", name, reason),
		},
		Recommendation: fmt.Sprintf("Check %s could not complete; result is neutral. Investigate the collaborator before relying on this signal.", name),
	}
}
