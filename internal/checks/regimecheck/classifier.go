package regimecheck

import (
	"context"
	"math"
	"sync"
	"time"
)

// Readings is one externally computed indicator snapshot the classifier
// consumes. Volatility and TrendStrength are normalized to [0,1];
// TrendDirection is 1 up, -1 down, 0 sideways.
type Readings struct {
	Volatility     float64   `json:"volatility"`
	TrendStrength  float64   `json:"trend_strength"`
	TrendDirection int       `json:"trend_direction"`
	At             time.Time `json:"at"`
}

// ClassifierConfig holds thresholds and hysteresis parameters for the
// default regime classifier.
type ClassifierConfig struct {
	SpikeVolatility    float64 `json:"spike_volatility"`    // 0.80
	VolatileVolatility float64 `json:"volatile_volatility"` // 0.50
	TrendThreshold     float64 `json:"trend_threshold"`     // 0.60

	// Hysteresis: a new regime must repeat ConfirmationCount times before
	// it replaces the current one, and no switch happens during the
	// cooldown that follows a switch.
	ConfirmationCount int `json:"confirmation_count"` // 3
	SwitchCooldown    int `json:"switch_cooldown"`    // 2
}

// DefaultClassifierConfig returns the default classifier parameters.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SpikeVolatility:    0.80,
		VolatileVolatility: 0.50,
		TrendThreshold:     0.60,
		ConfirmationCount:  3,
		SwitchCooldown:     2,
	}
}

// Classifier maps indicator readings to a regime state with hysteresis to
// prevent rapid regime flapping. It is the default in-process Source; the
// gate only depends on the Source interface.
type Classifier struct {
	config ClassifierConfig

	mu           sync.RWMutex
	current      State
	candidate    Regime
	confirmCount int
	cooldown     int
}

// NewClassifier creates a classifier starting in the unknown regime.
func NewClassifier(config ClassifierConfig) *Classifier {
	return &Classifier{
		config:  config,
		current: NewState(RegimeUnknown, 0),
	}
}

// Current implements Source. It returns the last confirmed state.
func (c *Classifier) Current(ctx context.Context) (State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, nil
}

// Observe ingests one indicator snapshot and returns the (possibly
// unchanged) confirmed state. A spike reading bypasses hysteresis: waiting
// three bars to acknowledge a volatility spike defeats the point.
func (c *Classifier) Observe(readings Readings) State {
	raw, confidence := c.classify(readings)

	c.mu.Lock()
	defer c.mu.Unlock()

	if raw == RegimeSpike {
		c.setState(raw, confidence, readings.At)
		return c.current
	}

	if c.cooldown > 0 {
		c.cooldown--
		return c.current
	}

	if raw == c.current.Regime {
		c.candidate = raw
		c.confirmCount = 0
		c.current = State{
			Regime:      c.current.Regime,
			Confidence:  confidence,
			Multipliers: c.current.Multipliers,
			AsOf:        readings.At,
		}
		return c.current
	}

	if raw != c.candidate {
		c.candidate = raw
		c.confirmCount = 1
		return c.current
	}

	c.confirmCount++
	if c.confirmCount >= c.config.ConfirmationCount {
		c.setState(raw, confidence, readings.At)
	}
	return c.current
}

// setState commits a regime switch and arms the cooldown. Callers hold mu.
func (c *Classifier) setState(regime Regime, confidence float64, at time.Time) {
	if regime != c.current.Regime {
		c.cooldown = c.config.SwitchCooldown
	}
	c.current = State{
		Regime:      regime,
		Confidence:  confidence,
		Multipliers: DefaultMultipliers(),
		AsOf:        at,
	}
	c.candidate = regime
	c.confirmCount = 0
}

// classify maps one reading to a raw regime and a confidence derived from
// how far the reading sits from the nearest decision boundary.
func (c *Classifier) classify(r Readings) (Regime, float64) {
	switch {
	case r.Volatility >= c.config.SpikeVolatility:
		return RegimeSpike, boundaryConfidence(r.Volatility, c.config.SpikeVolatility, 1.0)
	case r.Volatility >= c.config.VolatileVolatility:
		return RegimeVolatile, boundaryConfidence(r.Volatility, c.config.VolatileVolatility, c.config.SpikeVolatility)
	case r.TrendStrength >= c.config.TrendThreshold && r.TrendDirection > 0:
		return RegimeTrendingBull, boundaryConfidence(r.TrendStrength, c.config.TrendThreshold, 1.0)
	case r.TrendStrength >= c.config.TrendThreshold && r.TrendDirection < 0:
		return RegimeTrendingBear, boundaryConfidence(r.TrendStrength, c.config.TrendThreshold, 1.0)
	default:
		// Calm confidence grows as both volatility and trend sit well
		// below their thresholds.
		volMargin := (c.config.VolatileVolatility - r.Volatility) / c.config.VolatileVolatility
		trendMargin := (c.config.TrendThreshold - r.TrendStrength) / c.config.TrendThreshold
		return RegimeCalm, clamp01(0.5 + 0.5*math.Min(volMargin, trendMargin))
	}
}

// boundaryConfidence scales how deep value sits inside [lower, upper].
func boundaryConfidence(value, lower, upper float64) float64 {
	if upper <= lower {
		return 1
	}
	return clamp01(0.6 + 0.4*(value-lower)/(upper-lower))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
