// Package gate implements the risk aggregator: it runs the five independent
// checks concurrently, combines their scores through the versioned weight
// table and renders one calibrated, explainable decision. A stateful
// circuit breaker can override any per-request decision with a forced
// BLOCK.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ducminhle1904/trade-risk-gate/internal/breaker"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/baseline"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/confidence"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/incident"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/regimecheck"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/structural"
	gateerrors "github.com/ducminhle1904/trade-risk-gate/internal/errors"
	"github.com/ducminhle1904/trade-risk-gate/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-gate/internal/notifications"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Config holds the aggregator tunables plus the per-check configurations.
type Config struct {
	Thresholds   Thresholds         `json:"thresholds"`
	CheckTimeout time.Duration      `json:"check_timeout"`
	Incident     incident.Config    `json:"incident"`
	Confidence   confidence.Config  `json:"confidence"`
	Regime       regimecheck.Config `json:"regime"`
	Baseline     baseline.Config    `json:"baseline"`
	Structural   structural.Config  `json:"structural"`
}

// DefaultConfig returns the default gate configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:   DefaultThresholds(),
		CheckTimeout: 200 * time.Millisecond,
		Incident:     incident.DefaultConfig(),
		Confidence:   confidence.DefaultConfig(),
		Regime:       regimecheck.DefaultConfig(),
		Baseline:     baseline.DefaultConfig(),
		Structural:   structural.DefaultConfig(),
	}
}

// Dependencies are the read-only collaborators and optional companions a
// gate is built from.
type Dependencies struct {
	Incidents incident.Store
	Regimes   regimecheck.Source
	Accuracy  confidence.Ledger
	Breaker   *breaker.Breaker
	Notifier  notifications.Notifier
	Logger    zerolog.Logger
}

// SafetyGate is the final checkpoint before order submission. It is safe
// for concurrent use; the circuit breaker holds the only shared mutable
// state.
type SafetyGate struct {
	config     Config
	weights    Weights
	structural *structural.Check
	checkSet   []checks.Check
	breaker    *breaker.Breaker
	notifier   notifications.Notifier
	logger     zerolog.Logger
}

// New builds a gate with the fixed, explicitly enumerated check set. The
// enumeration is deliberate: every check that can influence a decision is
// visible here, not discovered at runtime.
func New(config Config, weights Weights, deps Dependencies) (*SafetyGate, error) {
	if err := config.Thresholds.Validate(); err != nil {
		return nil, gateerrors.WrapError(err, gateerrors.ErrorCategoryConfiguration, "gate", "new")
	}

	structuralCheck := structural.New(config.Structural)
	checkSet := []checks.Check{
		structuralCheck,
		incident.New(deps.Incidents, config.Incident),
		confidence.New(deps.Accuracy, deps.Incidents, config.Confidence),
		regimecheck.New(deps.Regimes, config.Regime),
		baseline.New(config.Baseline),
	}

	names := make([]string, len(checkSet))
	for i, c := range checkSet {
		names[i] = c.Name()
	}
	if err := weights.Validate(names); err != nil {
		return nil, gateerrors.WrapError(err, gateerrors.ErrorCategoryConfiguration, "gate", "new")
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}

	return &SafetyGate{
		config:     config,
		weights:    weights,
		structural: structuralCheck,
		checkSet:   checkSet,
		breaker:    deps.Breaker,
		notifier:   notifier,
		logger:     deps.Logger,
	}, nil
}

// ValidateTrade evaluates one candidate trade. It never returns an error:
// every failure path resolves to a valid ValidationResult. The trade
// history window is supplied by the caller and not persisted.
func (g *SafetyGate) ValidateTrade(ctx context.Context, req types.TradeRequest, portfolioValue float64, history []types.TradeOutcome) ValidationResult {
	start := time.Now()
	phase := phaseReceived
	g.logger.Debug().
		Str("phase", phase.String()).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("notional", req.Notional).
		Msg("trade received for validation")

	in := checks.Input{
		Request:        req,
		PortfolioValue: portfolioValue,
		History:        history,
	}

	// Fast-fail path: a malformed request is refused before any
	// collaborator is consulted. The structural validator is the only
	// check with this privilege.
	if err := g.structural.Malformed(req); err != nil {
		result := g.malformedResult(ctx, in, err, start)
		g.finish(req, &result, start)
		return result
	}

	phase = phaseChecksRunning
	g.logger.Debug().Str("phase", phase.String()).Int("checks", len(g.checkSet)).Msg("running checks")
	results := g.runChecks(ctx, in)

	phase = phaseAggregated
	g.logger.Debug().Str("phase", phase.String()).Msg("aggregating check scores")
	score := g.weights.Combine(results)
	decision := g.config.Thresholds.DecisionFor(score)

	// A failed check always escalates to at least WARN, even when the
	// weighted aggregate sits in the approve range: a hard signal from one
	// angle must not be averaged away by four quiet ones.
	if decision == DecisionApprove && anyFailed(results) {
		decision = DecisionWarn
	}

	result := ValidationResult{
		RiskScore:           score,
		Decision:            decision,
		Checks:              results,
		PreventionChecklist: buildChecklist(results),
		EvaluatedAt:         start,
	}

	if tripped := g.trippedTiers(); len(tripped) > 0 {
		result.Decision = DecisionBlock
		result.CircuitBreached = true
		result.Recommendation = breachRecommendation(tripped, score)
		result.PreventionChecklist = append(result.PreventionChecklist,
			fmt.Sprintf("Circuit breaker tiers tripped: %v. Resolve the breach or wait for recovery before resubmitting.", tripped))
	} else {
		result.Recommendation = g.recommendation(result.Decision, score)
	}
	result.SafeToTrade = result.Decision != DecisionBlock

	g.finish(req, &result, start)
	return result
}

// runChecks evaluates every check concurrently, each under its own
// timeout. The aggregator waits for all checks or their timeouts so the
// full explanation is always available; there is no early return here.
func (g *SafetyGate) runChecks(ctx context.Context, in checks.Input) []checks.Result {
	results := make([]checks.Result, len(g.checkSet))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, check := range g.checkSet {
		eg.Go(func() error {
			results[i] = g.runCheck(egCtx, check, in)
			return nil
		})
	}
	_ = eg.Wait() // workers never return errors; degraded results carry them

	for _, r := range results {
		monitoring.RecordCheckScore(r.Name, r.Score)
	}
	return results
}

// runCheck runs one check under the per-check timeout. A check that
// overruns or panics degrades to a neutral result instead of failing the
// evaluation.
func (g *SafetyGate) runCheck(ctx context.Context, check checks.Check, in checks.Input) checks.Result {
	cctx, cancel := context.WithTimeout(ctx, g.config.CheckTimeout)
	defer cancel()

	done := make(chan checks.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- checks.Degraded(check.Name(), fmt.Errorf("check panicked: %v", r))
			}
		}()
		done <- check.Evaluate(cctx, in)
	}()

	select {
	case result := <-done:
		if degraded, ok := result.Details["degraded"].(bool); ok && degraded {
			monitoring.RecordCheckDegraded(check.Name())
		}
		return result
	case <-cctx.Done():
		monitoring.RecordCheckDegraded(check.Name())
		g.logger.Warn().
			Str("check", check.Name()).
			Dur("timeout", g.config.CheckTimeout).
			Msg("check timed out; degraded to neutral score")
		return checks.Degraded(check.Name(), gateerrors.Timeout(check.Name()))
	}
}

// malformedResult renders the structural fast-fail BLOCK.
func (g *SafetyGate) malformedResult(ctx context.Context, in checks.Input, gateErr *gateerrors.GateError, start time.Time) ValidationResult {
	structuralResult := g.structural.Evaluate(ctx, in)
	return ValidationResult{
		RiskScore:   100,
		SafeToTrade: false,
		Decision:    DecisionBlock,
		Checks:      []checks.Result{structuralResult},
		PreventionChecklist: []string{
			fmt.Sprintf("Fix the request before resubmitting: %s", gateErr.Message),
		},
		Recommendation: fmt.Sprintf("BLOCKED: %s. The request never reached risk scoring.", gateErr.Message),
		EvaluatedAt:    start,
	}
}

// trippedTiers reads a consistent breaker snapshot at decision time.
func (g *SafetyGate) trippedTiers() []breaker.TierKind {
	if g.breaker == nil {
		return nil
	}
	snap := g.breaker.Snapshot()
	for kind, tier := range snap.Tiers {
		monitoring.UpdateBreakerState(string(kind), int(tier.State))
	}
	return snap.Tripped()
}

// finish logs, records metrics and fires notifications for a completed
// evaluation. WARN logs at elevated severity per the output contract.
func (g *SafetyGate) finish(req types.TradeRequest, result *ValidationResult, start time.Time) {
	result.Elapsed = time.Since(start)
	monitoring.RecordValidation(string(result.Decision), result.RiskScore)

	event := g.logger.Info()
	switch result.Decision {
	case DecisionWarn:
		event = g.logger.Warn()
	case DecisionBlock:
		event = g.logger.Error()
	}
	event.
		Str("phase", phaseDone.String()).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("notional", req.Notional).
		Float64("risk_score", result.RiskScore).
		Str("decision", string(result.Decision)).
		Bool("circuit_breached", result.CircuitBreached).
		Dur("elapsed", result.Elapsed).
		Msg("trade validation complete")

	if result.Decision == DecisionBlock {
		// Notification must not delay the decision path.
		message := fmt.Sprintf("BLOCK %s %s $%.2f — %s", req.Side, req.Symbol, req.Notional, result.Recommendation)
		go func() {
			if err := g.notifier.SendAlert("error", message); err != nil {
				g.logger.Warn().Err(err).Msg("failed to send block notification")
			}
		}()
	}
}

// recommendation renders the final human-readable advice for score-driven
// decisions.
func (g *SafetyGate) recommendation(decision Decision, score float64) string {
	switch decision {
	case DecisionBlock:
		return fmt.Sprintf(
			"Do not submit: aggregate risk %.1f is at or above the block threshold %.0f. Address the failed checks and re-evaluate.",
			score, g.config.Thresholds.BlockAt)
	case DecisionWarn:
		return fmt.Sprintf(
			"Proceed only with caution: aggregate risk %.1f. Execution is permitted but this trade must be logged for review.",
			score)
	default:
		return fmt.Sprintf("Risk acceptable (%.1f). Safe to submit.", score)
	}
}

// anyFailed reports whether at least one check did not pass.
func anyFailed(results []checks.Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// buildChecklist collects the prevention checklist from failed checks and
// check warnings, in check order.
func buildChecklist(results []checks.Result) []string {
	var checklist []string
	for _, r := range results {
		if !r.Passed {
			checklist = append(checklist, fmt.Sprintf("[%s] %s", r.Name, r.Recommendation))
		}
		for _, w := range r.Warnings {
			checklist = append(checklist, fmt.Sprintf("[%s] %s", r.Name, w))
		}
	}
	return checklist
}

// breachRecommendation renders the forced-BLOCK text. It is worded so the
// execution layer can distinguish it from a score-driven block.
func breachRecommendation(tripped []breaker.TierKind, score float64) string {
	return fmt.Sprintf(
		"TRADING HALTED by circuit breaker (tiers: %v). This block is independent of the request's own risk score (%.1f); no trade passes until the tiers recover or an operator resets them.",
		tripped, score)
}

// BoundGate is a convenience wrapper binding a gate to a portfolio value.
type BoundGate struct {
	gate           *SafetyGate
	portfolioValue float64
}

// NewBound wraps a gate with a fixed portfolio value.
func NewBound(g *SafetyGate, portfolioValue float64) *BoundGate {
	return &BoundGate{gate: g, portfolioValue: portfolioValue}
}

// ValidateTrade evaluates a trade against the bound portfolio value.
func (b *BoundGate) ValidateTrade(ctx context.Context, req types.TradeRequest, history []types.TradeOutcome) ValidationResult {
	return b.gate.ValidateTrade(ctx, req, b.portfolioValue, history)
}
