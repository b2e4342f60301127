// Package structural implements the deterministic, data-free validator. It
// runs first and is the only check allowed to fast-fail an evaluation: a
// request that is malformed beyond scoring goes straight to BLOCK without
// waiting for the other checks.
package structural

import (
	"context"
	"fmt"
	"math"
	"regexp"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
	gateerrors "github.com/ducminhle1904/trade-risk-gate/internal/errors"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// symbolPattern accepts the usual equity/crypto ticker shapes: uppercase
// alphanumerics with optional separators, 1 to 15 characters.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,14}$`)

// Config holds tunables for the structural validator.
type Config struct {
	// MaxPortfolioFraction is the hard cap on notional as a fraction of
	// total portfolio value.
	MaxPortfolioFraction float64 `json:"max_portfolio_fraction"`
}

// DefaultConfig returns the default structural limits.
func DefaultConfig() Config {
	return Config{MaxPortfolioFraction: 0.50}
}

// Check performs bounds and shape validation on the raw request.
type Check struct {
	config Config
}

// New creates a structural validator.
func New(config Config) *Check {
	return &Check{config: config}
}

// Name returns the canonical check name.
func (c *Check) Name() string {
	return checks.NameStructural
}

// Malformed reports the deterministic failures that justify refusing the
// request outright: bad symbol, bad side, or a notional that is not a
// positive finite number. Bound violations (oversized but well-formed
// requests) are scored by Evaluate instead.
func (c *Check) Malformed(req types.TradeRequest) *gateerrors.GateError {
	if !symbolPattern.MatchString(req.Symbol) {
		return gateerrors.Malformed(c.Name(), fmt.Sprintf("malformed symbol %q", req.Symbol))
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return gateerrors.Malformed(c.Name(), fmt.Sprintf("invalid side %q: must be buy or sell", req.Side))
	}
	if req.Notional <= 0 || math.IsNaN(req.Notional) || math.IsInf(req.Notional, 0) {
		return gateerrors.Malformed(c.Name(), fmt.Sprintf("invalid notional %v: must be a positive amount", req.Notional))
	}
	return nil
}

// Evaluate scores the well-formed request against the portfolio-fraction
// cap. A malformed request scores 100 here too, so the result stays
// meaningful even when the caller skipped the fast-fail path.
func (c *Check) Evaluate(ctx context.Context, in checks.Input) checks.Result {
	result := checks.Result{
		Name:    c.Name(),
		Details: map[string]interface{}{},
	}

	if err := c.Malformed(in.Request); err != nil {
		result.Score = 100
		result.Passed = false
		result.Warnings = append(result.Warnings, err.Message)
		result.Recommendation = "Reject the request: it is structurally invalid."
		return result
	}

	if in.PortfolioValue <= 0 {
		result.Score = checks.NeutralScore
		result.Passed = true
		result.Warnings = append(result.Warnings,
			"portfolio value not supplied; exposure cap not enforced")
		result.Recommendation = "Supply portfolio value to enforce the exposure cap."
		return result
	}

	fraction := in.Request.Notional / in.PortfolioValue
	result.Details["portfolio_fraction"] = fraction
	result.Details["max_fraction"] = c.config.MaxPortfolioFraction

	if fraction > c.config.MaxPortfolioFraction {
		excess := (fraction - c.config.MaxPortfolioFraction) / c.config.MaxPortfolioFraction
		result.Score = checks.ClampScore(70 + 30*excess)
		result.Passed = false
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"notional $%.2f exceeds %.0f%% of portfolio value ($%.2f)",
			in.Request.Notional, c.config.MaxPortfolioFraction*100, in.PortfolioValue))
		result.Recommendation = fmt.Sprintf(
			"Cut size to at most $%.2f (%.0f%% of portfolio).",
			in.PortfolioValue*c.config.MaxPortfolioFraction, c.config.MaxPortfolioFraction*100)
		return result
	}

	result.Score = checks.ClampScore(20 * fraction / c.config.MaxPortfolioFraction)
	result.Passed = true
	result.Recommendation = "Request is structurally sound."
	return result
}
