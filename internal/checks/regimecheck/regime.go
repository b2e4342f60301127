// Package regimecheck implements the regime-aware sizing check plus the
// default in-process regime classifier. The check never blocks on its own:
// it informs sizing, and in a spike regime it recommends pausing new
// exposure entirely.
package regimecheck

import (
	"context"
	"time"
)

// Regime represents different market regimes
type Regime int

const (
	RegimeCalm Regime = iota
	RegimeTrendingBull
	RegimeTrendingBear
	RegimeVolatile
	RegimeSpike
	RegimeUnknown
)

func (r Regime) String() string {
	switch r {
	case RegimeCalm:
		return "CALM"
	case RegimeTrendingBull:
		return "TRENDING_BULL"
	case RegimeTrendingBear:
		return "TRENDING_BEAR"
	case RegimeVolatile:
		return "VOLATILE"
	case RegimeSpike:
		return "SPIKE"
	default:
		return "UNKNOWN"
	}
}

// State is one regime classification snapshot. States are superseded, never
// mutated: each evaluation cycle produces a fresh one.
type State struct {
	Regime      Regime             `json:"regime"`
	Confidence  float64            `json:"confidence"`
	Multipliers map[Regime]float64 `json:"-"`
	AsOf        time.Time          `json:"as_of"`
}

// Multiplier returns the size multiplier for the state's regime, falling
// back to the conservative volatile multiplier when the regime is unknown.
func (s State) Multiplier() float64 {
	if m, ok := s.Multipliers[s.Regime]; ok {
		return m
	}
	return DefaultMultipliers()[RegimeVolatile]
}

// DefaultMultipliers returns the default per-regime size multiplier table.
func DefaultMultipliers() map[Regime]float64 {
	return map[Regime]float64{
		RegimeCalm:         1.0,
		RegimeTrendingBull: 1.1,
		RegimeTrendingBear: 0.5,
		RegimeVolatile:     0.4,
		RegimeSpike:        0.1,
	}
}

// Source supplies the current regime state. The classifier below is the
// default implementation; a remote regime service can stand in behind the
// same interface.
type Source interface {
	Current(ctx context.Context) (State, error)
}

// StaticSource returns a fixed regime state. Used in tests and for manual
// operation.
type StaticSource struct {
	State State
}

// Current returns the fixed state.
func (s StaticSource) Current(ctx context.Context) (State, error) {
	return s.State, nil
}

// NewState builds a state with the default multiplier table.
func NewState(regime Regime, confidence float64) State {
	return State{
		Regime:      regime,
		Confidence:  confidence,
		Multipliers: DefaultMultipliers(),
		AsOf:        time.Now(),
	}
}
