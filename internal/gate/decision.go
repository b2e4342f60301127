package gate

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
)

// Decision is the gate's verdict on a candidate trade.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionWarn    Decision = "WARN"
	DecisionBlock   Decision = "BLOCK"
)

// Thresholds maps the aggregate risk score onto a decision. Ranges are
// monotonic and non-overlapping: [0, ApproveBelow) approves,
// [ApproveBelow, BlockAt) warns, [BlockAt, 100] blocks.
type Thresholds struct {
	ApproveBelow float64 `json:"approve_below"`
	BlockAt      float64 `json:"block_at"`
}

// DefaultThresholds returns the default 30/60 cutoffs. Tunable defaults:
// they have not been calibrated against labeled outcomes.
func DefaultThresholds() Thresholds {
	return Thresholds{ApproveBelow: 30, BlockAt: 60}
}

// Validate rejects degenerate or overlapping threshold ranges.
func (t Thresholds) Validate() error {
	if t.ApproveBelow <= 0 || t.BlockAt <= t.ApproveBelow || t.BlockAt > 100 {
		return fmt.Errorf("invalid thresholds: need 0 < approve_below (%.1f) < block_at (%.1f) <= 100",
			t.ApproveBelow, t.BlockAt)
	}
	return nil
}

// DecisionFor maps a score onto the decision ranges.
func (t Thresholds) DecisionFor(score float64) Decision {
	switch {
	case score < t.ApproveBelow:
		return DecisionApprove
	case score < t.BlockAt:
		return DecisionWarn
	default:
		return DecisionBlock
	}
}

// ValidationResult is the one stable contract the execution layer depends
// on. Every failure path inside the gate resolves to a valid result; the
// execution layer must never submit an order when Decision is BLOCK, and
// must log WARN submissions at elevated severity.
type ValidationResult struct {
	RiskScore           float64         `json:"risk_score"`
	SafeToTrade         bool            `json:"safe_to_trade"`
	Decision            Decision        `json:"decision"`
	Checks              []checks.Result `json:"checks"`
	PreventionChecklist []string        `json:"prevention_checklist,omitempty"`
	Recommendation      string          `json:"recommendation"`
	CircuitBreached     bool            `json:"circuit_breached,omitempty"`
	EvaluatedAt         time.Time       `json:"evaluated_at"`
	Elapsed             time.Duration   `json:"elapsed"`
}

// evalPhase tracks an evaluation through the aggregator's state machine.
// Terminal results are immutable once returned; the gate never retries.
type evalPhase int

const (
	phaseReceived evalPhase = iota
	phaseChecksRunning
	phaseAggregated
	phaseDone
)

func (p evalPhase) String() string {
	switch p {
	case phaseReceived:
		return "RECEIVED"
	case phaseChecksRunning:
		return "CHECKS_RUNNING"
	case phaseAggregated:
		return "AGGREGATED"
	case phaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
