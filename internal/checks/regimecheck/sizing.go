package regimecheck

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
)

// Config holds tunables for the regime sizing check.
type Config struct {
	// MaxReduction is the size-reduction fraction above which the check
	// fails (0.5 means a trade cut by more than half fails).
	MaxReduction float64 `json:"max_reduction"`
	// MinConfidenceWeight floors how much a low-confidence classification
	// can discount the score.
	MinConfidenceWeight float64 `json:"min_confidence_weight"`
}

// DefaultConfig returns the default regime sizing configuration.
func DefaultConfig() Config {
	return Config{
		MaxReduction:        0.5,
		MinConfidenceWeight: 0.5,
	}
}

// Check scales the requested notional by the current regime multiplier and
// scores the implied size reduction.
type Check struct {
	source Source
	config Config
}

// New creates a regime sizing check fed by the given regime source.
func New(source Source, config Config) *Check {
	return &Check{source: source, config: config}
}

// Name returns the canonical check name.
func (c *Check) Name() string {
	return checks.NameRegime
}

// Evaluate looks up the current regime, computes the adjusted size and
// scores the reduction weighted by regime confidence. An unreachable
// classifier degrades to a neutral score.
func (c *Check) Evaluate(ctx context.Context, in checks.Input) checks.Result {
	state, err := c.source.Current(ctx)
	if err != nil {
		return checks.Degraded(c.Name(), err)
	}

	multiplier := state.Multiplier()
	adjusted := in.Request.Notional * multiplier
	reduction := 1.0 - multiplier
	if reduction < 0 {
		reduction = 0
	}

	// Low classification confidence discounts the score: a shaky "spike"
	// call should not weigh as much as a confident one.
	weight := c.config.MinConfidenceWeight + (1-c.config.MinConfidenceWeight)*state.Confidence
	score := checks.ClampScore(100 * reduction * weight)

	result := checks.Result{
		Name:   c.Name(),
		Score:  score,
		Passed: reduction <= c.config.MaxReduction,
		Details: map[string]interface{}{
			"regime":            state.Regime.String(),
			"regime_confidence": state.Confidence,
			"multiplier":        multiplier,
			"requested_size":    in.Request.Notional,
			"adjusted_size":     adjusted,
			"reduction_pct":     reduction * 100,
		},
	}

	switch {
	case state.Regime == RegimeSpike:
		result.Warnings = append(result.Warnings,
			"volatility spike regime active: new exposure strongly discouraged")
		result.Recommendation = fmt.Sprintf(
			"SPIKE regime: pause new exposure. If trading anyway, reduce size by %.0f%% to $%.2f.",
			reduction*100, adjusted)
	case reduction > c.config.MaxReduction:
		result.Recommendation = fmt.Sprintf(
			"%s regime calls for a %.0f%% size reduction: trade $%.2f instead of $%.2f.",
			state.Regime, reduction*100, adjusted, in.Request.Notional)
	case reduction > 0:
		result.Recommendation = fmt.Sprintf(
			"%s regime: reduce size by %.0f%% to $%.2f.",
			state.Regime, reduction*100, adjusted)
	default:
		result.Recommendation = fmt.Sprintf("%s regime: full size acceptable.", state.Regime)
	}
	return result
}
