// Package baseline implements the statistical baseline monitor. It owns no
// state: the rolling trade-outcome window is supplied by the caller on every
// evaluation, and the check flags deviations from configured normal bands.
package baseline

import (
	"context"
	"fmt"
	"math"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Config holds the normal bands the monitor enforces.
type Config struct {
	WinRateMin           float64 `json:"win_rate_min"`           // 0.45
	WinRateMax           float64 `json:"win_rate_max"`           // 0.70
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"` // 3
	// MaxSizeDeviation is the z-score above which the candidate notional
	// counts as abnormal versus the recent size distribution.
	MaxSizeDeviation float64 `json:"max_size_deviation"` // 3.0
	// MinSamples is the window size below which the monitor stays neutral.
	MinSamples int `json:"min_samples"` // 10
}

// DefaultConfig returns the default baseline bands.
func DefaultConfig() Config {
	return Config{
		WinRateMin:           0.45,
		WinRateMax:           0.70,
		MaxConsecutiveLosses: 3,
		MaxSizeDeviation:     3.0,
		MinSamples:           10,
	}
}

// Check monitors rolling trade-outcome statistics.
type Check struct {
	config Config
}

// New creates a baseline monitor.
func New(config Config) *Check {
	return &Check{config: config}
}

// Name returns the canonical check name.
func (c *Check) Name() string {
	return checks.NameBaseline
}

// Evaluate computes win rate, consecutive-loss streak and size deviation
// over the caller-supplied window. The score is proportional to the number
// and magnitude of violated bands.
func (c *Check) Evaluate(ctx context.Context, in checks.Input) checks.Result {
	result := checks.Result{
		Name:    c.Name(),
		Details: map[string]interface{}{"window_size": len(in.History)},
	}

	if len(in.History) < c.config.MinSamples {
		result.Score = 10
		result.Passed = true
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"only %d outcomes in window (need %d); baseline statistics not meaningful yet",
			len(in.History), c.config.MinSamples))
		result.Recommendation = "Insufficient trade history for baseline monitoring."
		return result
	}

	winRate := c.winRate(in.History)
	streak := c.lossStreak(in.History)
	sizeZ := c.sizeDeviation(in.History, in.Request.Notional)

	result.Details["win_rate"] = winRate
	result.Details["consecutive_losses"] = streak
	result.Details["size_z_score"] = sizeZ

	score := 10.0
	violations := 0

	switch {
	case winRate < c.config.WinRateMin:
		violations++
		score += 25 + 100*(c.config.WinRateMin-winRate)
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"win rate %.0f%% below normal band [%.0f%%, %.0f%%]",
			winRate*100, c.config.WinRateMin*100, c.config.WinRateMax*100))
	case winRate > c.config.WinRateMax:
		violations++
		score += 15 + 50*(winRate-c.config.WinRateMax)
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"win rate %.0f%% above normal band: results look too good, verify outcome recording",
			winRate*100))
	}

	if streak >= c.config.MaxConsecutiveLosses {
		violations++
		score += 20 + 10*float64(streak-c.config.MaxConsecutiveLosses)
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%d consecutive losses (limit %d)", streak, c.config.MaxConsecutiveLosses))
	}

	if sizeZ > c.config.MaxSizeDeviation {
		violations++
		score += 15 + 5*(sizeZ-c.config.MaxSizeDeviation)
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"requested size is %.1f standard deviations above the recent mean", sizeZ))
	}

	result.Score = checks.ClampScore(score)
	result.Passed = violations == 0
	result.Details["violations"] = violations

	if violations == 0 {
		result.Recommendation = "Trade outcomes are within normal statistical bands."
	} else {
		result.Recommendation = fmt.Sprintf(
			"%d baseline band(s) violated; reduce activity until statistics normalize.", violations)
	}
	return result
}

// winRate computes the fraction of winning trades in the window.
func (c *Check) winRate(history []types.TradeOutcome) float64 {
	wins := 0
	for _, h := range history {
		if h.Win {
			wins++
		}
	}
	return float64(wins) / float64(len(history))
}

// lossStreak counts consecutive losses at the most recent end of the
// window. History is ordered oldest first.
func (c *Check) lossStreak(history []types.TradeOutcome) int {
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Win {
			break
		}
		streak++
	}
	return streak
}

// sizeDeviation returns the z-score of the candidate notional against the
// window's size distribution. Zero when the distribution has no spread.
func (c *Check) sizeDeviation(history []types.TradeOutcome, notional float64) float64 {
	var sum float64
	for _, h := range history {
		sum += h.Notional
	}
	mean := sum / float64(len(history))

	var variance float64
	for _, h := range history {
		diff := h.Notional - mean
		variance += diff * diff
	}
	variance /= float64(len(history))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		if notional > mean {
			return c.config.MaxSizeDeviation + 1
		}
		return 0
	}
	return (notional - mean) / stdDev
}
