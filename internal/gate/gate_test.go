package gate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trade-risk-gate/internal/breaker"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/confidence"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/incident"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/regimecheck"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// testDeps builds a gate wired entirely to in-process collaborators.
func testDeps() Dependencies {
	return Dependencies{
		Incidents: incident.NewMemoryStore(),
		Regimes:   regimecheck.StaticSource{State: regimecheck.NewState(regimecheck.RegimeCalm, 0.9)},
		Accuracy:  confidence.NewMemoryLedger(),
		Breaker:   breaker.New(breaker.DefaultConfig(), nil),
		Logger:    zerolog.Nop(),
	}
}

func newTestGate(t *testing.T, deps Dependencies) *SafetyGate {
	t.Helper()
	g, err := New(DefaultConfig(), DefaultWeights(), deps)
	require.NoError(t, err)
	return g
}

// healthyHistory is a 10-trade window inside every baseline band.
func healthyHistory() []types.TradeOutcome {
	wins := []bool{true, false, true, false, true, true, false, true, false, true}
	history := make([]types.TradeOutcome, len(wins))
	for i, win := range wins {
		history[i] = types.TradeOutcome{Symbol: "SPY", Win: win, Notional: 1000}
	}
	return history
}

// cleanRequest is a modest, well-formed request with no confidence claim.
func cleanRequest() types.TradeRequest {
	return types.TradeRequest{Symbol: "SPY", Side: types.SideBuy, Notional: 1000}
}

// TestValidateTrade_CleanRequestApproves tests the happy path end to end
func TestValidateTrade_CleanRequestApproves(t *testing.T) {
	g := newTestGate(t, testDeps())
	result := g.ValidateTrade(context.Background(), cleanRequest(), 100000, healthyHistory())

	assert.Equal(t, DecisionApprove, result.Decision)
	assert.True(t, result.SafeToTrade)
	assert.False(t, result.CircuitBreached)
	assert.Len(t, result.Checks, 5)
	assert.Less(t, result.RiskScore, 30.0)
	assert.NotEmpty(t, result.Recommendation)
}

// TestValidateTrade_EveryCheckContributes tests that all five check names appear once
func TestValidateTrade_EveryCheckContributes(t *testing.T) {
	g := newTestGate(t, testDeps())
	result := g.ValidateTrade(context.Background(), cleanRequest(), 100000, healthyHistory())

	seen := make(map[string]int)
	for _, r := range result.Checks {
		seen[r.Name]++
	}
	for _, name := range []string{
		checks.NameStructural, checks.NameIncident, checks.NameConfidence,
		checks.NameRegime, checks.NameBaseline,
	} {
		assert.Equal(t, 1, seen[name], "check %s must report exactly once", name)
	}
}

// TestValidateTrade_MalformedRequestFastFails tests the structural fast-fail path
func TestValidateTrade_MalformedRequestFastFails(t *testing.T) {
	g := newTestGate(t, testDeps())
	result := g.ValidateTrade(context.Background(), types.TradeRequest{
		Symbol: "spy!", Side: types.SideBuy, Notional: 1000,
	}, 100000, nil)

	assert.Equal(t, DecisionBlock, result.Decision)
	assert.False(t, result.SafeToTrade)
	assert.Equal(t, 100.0, result.RiskScore)
	// only the structural result is present; no collaborator was consulted
	require.Len(t, result.Checks, 1)
	assert.Equal(t, checks.NameStructural, result.Checks[0].Name)
	assert.NotEmpty(t, result.PreventionChecklist)
}

// TestValidateTrade_OverconfidenceEscalates tests that a failed check forces at least WARN
func TestValidateTrade_OverconfidenceEscalates(t *testing.T) {
	g := newTestGate(t, testDeps())
	result := g.ValidateTrade(context.Background(), types.TradeRequest{
		Symbol: "SPY", Side: types.SideBuy, Notional: 1000,
		Model: "alpha-v2", Confidence: 0.95,
	}, 100000, healthyHistory())

	assert.NotEqual(t, DecisionApprove, result.Decision,
		"a failed confidence guard must never be averaged into an approval")
	assert.NotEmpty(t, result.PreventionChecklist)
}

// TestValidateTrade_IncidentMatchRaisesScore tests the incident path through the gate
func TestValidateTrade_IncidentMatchRaisesScore(t *testing.T) {
	deps := testDeps()
	store := deps.Incidents.(*incident.MemoryStore)
	require.NoError(t, store.Append(context.Background(), types.IncidentRecord{
		ID: "INC-7", Symbol: "SPY", Action: "buy",
		Reasoning: "momentum breakout chased into resistance",
		Outcome:   "liquidated for a 12% loss",
		Severity:  types.SeverityCritical, OccurredAt: time.Now(),
	}))

	g := newTestGate(t, deps)
	baselineResult := newTestGate(t, testDeps()).ValidateTrade(context.Background(), types.TradeRequest{
		Symbol: "SPY", Side: types.SideBuy, Notional: 1000,
		Reasoning: "momentum breakout chased into resistance",
	}, 100000, healthyHistory())
	matched := g.ValidateTrade(context.Background(), types.TradeRequest{
		Symbol: "SPY", Side: types.SideBuy, Notional: 1000,
		Reasoning: "momentum breakout chased into resistance",
	}, 100000, healthyHistory())

	assert.Greater(t, matched.RiskScore, baselineResult.RiskScore)
}

// TestValidateTrade_BreakerForcesBlock tests that a tripped tier overrides a clean score
func TestValidateTrade_BreakerForcesBlock(t *testing.T) {
	deps := testDeps()
	require.NoError(t, deps.Breaker.ForceBreach(context.Background(), breaker.TierDailyLoss))

	g := newTestGate(t, deps)
	result := g.ValidateTrade(context.Background(), cleanRequest(), 100000, healthyHistory())

	assert.Equal(t, DecisionBlock, result.Decision)
	assert.False(t, result.SafeToTrade)
	assert.True(t, result.CircuitBreached)
	assert.Less(t, result.RiskScore, 30.0, "per-request score stays honest even under a breach")
	assert.Contains(t, result.Recommendation, "TRADING HALTED")
}

// TestValidateTrade_BreakerRecoveryRestoresApproval tests the breach lifecycle end to end
func TestValidateTrade_BreakerRecoveryRestoresApproval(t *testing.T) {
	deps := testDeps()
	g := newTestGate(t, deps)
	ctx := context.Background()

	deps.Breaker.Observe(ctx, breaker.Reading{Volatility: 0.95, At: time.Now()})
	blocked := g.ValidateTrade(ctx, cleanRequest(), 100000, healthyHistory())
	require.Equal(t, DecisionBlock, blocked.Decision)

	// cooldown still blocks
	deps.Breaker.Observe(ctx, breaker.Reading{At: time.Now()})
	cooling := g.ValidateTrade(ctx, cleanRequest(), 100000, healthyHistory())
	assert.Equal(t, DecisionBlock, cooling.Decision)

	// full recovery restores approval
	for i := 0; i < 4; i++ {
		deps.Breaker.Observe(ctx, breaker.Reading{At: time.Now()})
	}
	recovered := g.ValidateTrade(ctx, cleanRequest(), 100000, healthyHistory())
	assert.Equal(t, DecisionApprove, recovered.Decision)
}

// TestValidateTrade_Idempotent tests that identical inputs yield identical decisions
func TestValidateTrade_Idempotent(t *testing.T) {
	g := newTestGate(t, testDeps())
	req := cleanRequest()
	history := healthyHistory()

	first := g.ValidateTrade(context.Background(), req, 100000, history)
	second := g.ValidateTrade(context.Background(), req, 100000, history)

	assert.Equal(t, first.Decision, second.Decision)
	assert.InDelta(t, first.RiskScore, second.RiskScore, 1e-9)
}

// TestValidateTrade_SlowCollaboratorDegrades tests the per-check timeout
func TestValidateTrade_SlowCollaboratorDegrades(t *testing.T) {
	deps := testDeps()
	deps.Regimes = slowSource{delay: time.Second}

	config := DefaultConfig()
	config.CheckTimeout = 20 * time.Millisecond
	g, err := New(config, DefaultWeights(), deps)
	require.NoError(t, err)

	start := time.Now()
	result := g.ValidateTrade(context.Background(), cleanRequest(), 100000, healthyHistory())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond, "a slow check must not stall the evaluation")
	var regimeResult checks.Result
	for _, r := range result.Checks {
		if r.Name == checks.NameRegime {
			regimeResult = r
		}
	}
	assert.Equal(t, checks.NeutralScore, regimeResult.Score)
	assert.Equal(t, true, regimeResult.Details["degraded"])
	assert.NotEqual(t, DecisionBlock, result.Decision)
}

// slowSource stalls long enough to trip the per-check timeout.
type slowSource struct {
	delay time.Duration
}

func (s slowSource) Current(ctx context.Context) (regimecheck.State, error) {
	select {
	case <-time.After(s.delay):
		return regimecheck.NewState(regimecheck.RegimeCalm, 0.9), nil
	case <-ctx.Done():
		return regimecheck.State{}, ctx.Err()
	}
}

// TestNew_RejectsBadWeights tests construction-time weight validation
func TestNew_RejectsBadWeights(t *testing.T) {
	badWeights := Weights{
		Version: "broken",
		ByCheck: map[string]float64{
			checks.NameIncident:   0.5,
			checks.NameConfidence: 0.5,
			checks.NameRegime:     0.5,
			checks.NameBaseline:   0.5,
			checks.NameStructural: 0.5,
		},
	}
	_, err := New(DefaultConfig(), badWeights, testDeps())
	assert.Error(t, err)
}

// TestNew_RejectsBadThresholds tests construction-time threshold validation
func TestNew_RejectsBadThresholds(t *testing.T) {
	config := DefaultConfig()
	config.Thresholds = Thresholds{ApproveBelow: 60, BlockAt: 30}
	_, err := New(config, DefaultWeights(), testDeps())
	assert.Error(t, err)
}

// TestThresholds_DecisionSweep tests decision monotonicity across the score range
func TestThresholds_DecisionSweep(t *testing.T) {
	thresholds := DefaultThresholds()

	previous := DecisionApprove
	rank := map[Decision]int{DecisionApprove: 0, DecisionWarn: 1, DecisionBlock: 2}
	for score := 0.0; score <= 100.0; score += 0.5 {
		decision := thresholds.DecisionFor(score)
		assert.GreaterOrEqual(t, rank[decision], rank[previous],
			"decision must never soften as the score rises (score %.1f)", score)
		previous = decision
	}

	assert.Equal(t, DecisionApprove, thresholds.DecisionFor(29.999))
	assert.Equal(t, DecisionWarn, thresholds.DecisionFor(30))
	assert.Equal(t, DecisionWarn, thresholds.DecisionFor(59.999))
	assert.Equal(t, DecisionBlock, thresholds.DecisionFor(60))
	assert.Equal(t, DecisionBlock, thresholds.DecisionFor(100))
}

// TestWeights_CombineStaysInRange tests the convex-combination bound
func TestWeights_CombineStaysInRange(t *testing.T) {
	weights := DefaultWeights()
	names := []string{
		checks.NameIncident, checks.NameConfidence, checks.NameRegime,
		checks.NameBaseline, checks.NameStructural,
	}

	for trial := 0; trial < 50; trial++ {
		results := make([]checks.Result, len(names))
		for i, name := range names {
			results[i] = checks.Result{Name: name, Score: float64((trial * 7 * (i + 3)) % 101)}
		}
		score := weights.Combine(results)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}

// TestWeights_CombineMatchesHandComputation tests the weighted average arithmetic
func TestWeights_CombineMatchesHandComputation(t *testing.T) {
	weights := DefaultWeights()
	results := []checks.Result{
		{Name: checks.NameIncident, Score: 80},
		{Name: checks.NameConfidence, Score: 40},
		{Name: checks.NameRegime, Score: 20},
		{Name: checks.NameBaseline, Score: 10},
		{Name: checks.NameStructural, Score: 0},
	}

	// 0.25*80 + 0.25*40 + 0.20*20 + 0.15*10 + 0.15*0 = 35.5
	assert.InDelta(t, 35.5, weights.Combine(results), 1e-9)
}

// TestWeights_ValidateCatalogue tests each validation failure mode
func TestWeights_ValidateCatalogue(t *testing.T) {
	names := []string{"a", "b"}

	cases := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"valid", Weights{Version: "t", ByCheck: map[string]float64{"a": 0.4, "b": 0.6}}, false},
		{"missing entry", Weights{Version: "t", ByCheck: map[string]float64{"a": 1.0}}, true},
		{"wrong key", Weights{Version: "t", ByCheck: map[string]float64{"a": 0.4, "c": 0.6}}, true},
		{"negative weight", Weights{Version: "t", ByCheck: map[string]float64{"a": -0.2, "b": 1.2}}, true},
		{"sum below one", Weights{Version: "t", ByCheck: map[string]float64{"a": 0.4, "b": 0.5}}, true},
		{"sum above one", Weights{Version: "t", ByCheck: map[string]float64{"a": 0.6, "b": 0.5}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.weights.Validate(names)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestDefaultWeights_SumToOne tests the shipped weight table invariant
func TestDefaultWeights_SumToOne(t *testing.T) {
	weights := DefaultWeights()
	require.Len(t, weights.ByCheck, 5)

	sum := 0.0
	for _, w := range weights.ByCheck {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, "v1", weights.Version)
}

// TestBoundGate_DelegatesPortfolioValue tests the convenience wrapper
func TestBoundGate_DelegatesPortfolioValue(t *testing.T) {
	g := newTestGate(t, testDeps())
	bound := NewBound(g, 100000)

	result := bound.ValidateTrade(context.Background(), cleanRequest(), healthyHistory())
	assert.Equal(t, DecisionApprove, result.Decision)
}

// TestValidationResult_ChecklistNamesSource tests checklist attribution formatting
func TestValidationResult_ChecklistNamesSource(t *testing.T) {
	results := []checks.Result{
		{Name: "structural", Passed: false, Recommendation: "cut size"},
		{Name: "regime_sizing", Passed: true, Warnings: []string{"spike regime active"}},
	}

	checklist := buildChecklist(results)
	require.Len(t, checklist, 2)
	assert.Equal(t, fmt.Sprintf("[%s] %s", "structural", "cut size"), checklist[0])
	assert.Equal(t, fmt.Sprintf("[%s] %s", "regime_sizing", "spike regime active"), checklist[1])
}
