package regimecheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// failingSource simulates an unreachable regime classifier.
type failingSource struct{}

func (failingSource) Current(ctx context.Context) (State, error) {
	return State{}, errors.New("regime classifier unreachable")
}

func sized(t *testing.T, state State, notional float64) checks.Result {
	t.Helper()
	check := New(StaticSource{State: state}, DefaultConfig())
	return check.Evaluate(context.Background(), checks.Input{
		Request: types.TradeRequest{Symbol: "SPY", Side: types.SideBuy, Notional: notional},
	})
}

// TestEvaluate_CalmRegimeFullSize tests that calm markets allow full size
func TestEvaluate_CalmRegimeFullSize(t *testing.T) {
	result := sized(t, NewState(RegimeCalm, 0.9), 10000)

	assert.Equal(t, 0.0, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, 10000.0, result.Details["adjusted_size"])
}

// TestEvaluate_BullRegimeNoPenalty tests that a favorable regime never adds risk
func TestEvaluate_BullRegimeNoPenalty(t *testing.T) {
	result := sized(t, NewState(RegimeTrendingBull, 0.9), 10000)

	// multiplier 1.1 implies no reduction; score must stay 0
	assert.Equal(t, 0.0, result.Score)
	assert.True(t, result.Passed)
	assert.InDelta(t, 11000.0, result.Details["adjusted_size"].(float64), 1e-9)
}

// TestEvaluate_BearRegimeHalvesSize tests the trending-bear multiplier
func TestEvaluate_BearRegimeHalvesSize(t *testing.T) {
	result := sized(t, NewState(RegimeTrendingBear, 1.0), 10000)

	// 50% reduction at full confidence scores exactly 50
	assert.InDelta(t, 50.0, result.Score, 1e-9)
	assert.True(t, result.Passed)
	assert.InDelta(t, 5000.0, result.Details["adjusted_size"].(float64), 1e-9)
}

// TestEvaluate_SpikeRegimeRecommendsPause tests the spike warning and sizing advice
func TestEvaluate_SpikeRegimeRecommendsPause(t *testing.T) {
	result := sized(t, NewState(RegimeSpike, 1.0), 10000)

	assert.False(t, result.Passed)
	assert.InDelta(t, 90.0, result.Score, 1e-9)
	assert.Contains(t, result.Recommendation, "pause new exposure")
	assert.Contains(t, result.Recommendation, "90%")
	assert.Contains(t, result.Recommendation, "$1000.00")
	assert.NotEmpty(t, result.Warnings)
}

// TestEvaluate_LowConfidenceDiscountsScore tests the confidence weighting
func TestEvaluate_LowConfidenceDiscountsScore(t *testing.T) {
	confident := sized(t, NewState(RegimeVolatile, 1.0), 10000)
	shaky := sized(t, NewState(RegimeVolatile, 0.0), 10000)

	// a zero-confidence call carries exactly half the weight
	assert.InDelta(t, 60.0, confident.Score, 1e-9)
	assert.InDelta(t, 30.0, shaky.Score, 1e-9)
}

// TestEvaluate_UnknownRegimeFallsBackConservative tests the unknown-regime fallback
func TestEvaluate_UnknownRegimeFallsBackConservative(t *testing.T) {
	result := sized(t, NewState(RegimeUnknown, 0.5), 10000)

	// unknown resolves to the volatile multiplier 0.4
	assert.InDelta(t, 4000.0, result.Details["adjusted_size"].(float64), 1e-9)
	assert.False(t, result.Passed)
}

// TestEvaluate_SourceFailureDegrades tests graceful degradation on classifier failure
func TestEvaluate_SourceFailureDegrades(t *testing.T) {
	check := New(failingSource{}, DefaultConfig())
	result := check.Evaluate(context.Background(), checks.Input{
		Request: types.TradeRequest{Symbol: "SPY", Side: types.SideBuy, Notional: 1000},
	})

	assert.Equal(t, checks.NeutralScore, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, true, result.Details["degraded"])
}

// TestClassifier_ConfirmationBeforeSwitch tests that a new regime needs repeated readings
func TestClassifier_ConfirmationBeforeSwitch(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	now := time.Now()

	// establish calm
	for i := 0; i < 3; i++ {
		c.Observe(Readings{Volatility: 0.1, TrendStrength: 0.1, At: now})
	}
	state, err := c.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, RegimeCalm, state.Regime)

	// volatile readings are absorbed by the switch cooldown (2) and then
	// need 3 confirmations; the regime must hold until the 5th reading
	for i := 0; i < 4; i++ {
		state = c.Observe(Readings{Volatility: 0.6, TrendStrength: 0.1, At: now})
		assert.Equal(t, RegimeCalm, state.Regime, "reading %d must not flip the regime yet", i+1)
	}
	state = c.Observe(Readings{Volatility: 0.6, TrendStrength: 0.1, At: now})
	assert.Equal(t, RegimeVolatile, state.Regime)
}

// TestClassifier_SpikeBypassesHysteresis tests the immediate spike transition
func TestClassifier_SpikeBypassesHysteresis(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	state := c.Observe(Readings{Volatility: 0.95, TrendStrength: 0.2, At: time.Now()})
	assert.Equal(t, RegimeSpike, state.Regime)
	assert.Greater(t, state.Confidence, 0.6)
}

// TestClassifier_CooldownBlocksImmediateFlapping tests the switch cooldown
func TestClassifier_CooldownBlocksImmediateFlapping(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	now := time.Now()

	state := c.Observe(Readings{Volatility: 0.95, At: now})
	require.Equal(t, RegimeSpike, state.Regime)

	// calm readings during cooldown are absorbed
	state = c.Observe(Readings{Volatility: 0.1, At: now})
	assert.Equal(t, RegimeSpike, state.Regime)
	state = c.Observe(Readings{Volatility: 0.1, At: now})
	assert.Equal(t, RegimeSpike, state.Regime)
}

// TestClassifier_TrendClassification tests bull and bear trend detection
func TestClassifier_TrendClassification(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	now := time.Now()

	var state State
	for i := 0; i < 3; i++ {
		state = c.Observe(Readings{Volatility: 0.2, TrendStrength: 0.8, TrendDirection: 1, At: now})
	}
	assert.Equal(t, RegimeTrendingBull, state.Regime)
}

// TestMultiplier_DefaultTable tests the per-regime size multiplier table
func TestMultiplier_DefaultTable(t *testing.T) {
	table := DefaultMultipliers()

	assert.Equal(t, 1.0, table[RegimeCalm])
	assert.Equal(t, 1.1, table[RegimeTrendingBull])
	assert.Equal(t, 0.5, table[RegimeTrendingBear])
	assert.Equal(t, 0.4, table[RegimeVolatile])
	assert.Equal(t, 0.1, table[RegimeSpike])
}
