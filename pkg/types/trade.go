package types

import "time"

// TradeSide identifies the direction of a candidate trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeRequest is the immutable input to a gate evaluation. Confidence and
// Model are optional; Confidence == 0 means the upstream model did not state
// one.
type TradeRequest struct {
	Symbol     string    `json:"symbol"`
	Side       TradeSide `json:"side"`
	Notional   float64   `json:"notional"`
	Model      string    `json:"model,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
}

// HasConfidence reports whether the upstream model stated a confidence value.
func (r TradeRequest) HasConfidence() bool {
	return r.Confidence > 0
}

// TradeOutcome is one resolved trade in the caller-supplied rolling window.
type TradeOutcome struct {
	Symbol   string    `json:"symbol"`
	Win      bool      `json:"win"`
	Notional float64   `json:"notional"`
	PnL      float64   `json:"pnl"`
	ClosedAt time.Time `json:"closed_at"`
}

// IncidentSeverity ranks how damaging a past incident was.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

// IncidentRecord describes a past flagged or failed trade. Records are
// append-only: written during post-mortems, read-only at query time.
type IncidentRecord struct {
	ID         string           `json:"id"`
	Symbol     string           `json:"symbol"`
	Action     string           `json:"action"`
	Reasoning  string           `json:"reasoning"`
	Severity   IncidentSeverity `json:"severity"`
	Outcome    string           `json:"outcome"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// ModelAccuracyRecord is the rolling per-model/per-symbol tally of realized
// accuracy versus claimed confidence. HitRate bounds how much stated
// confidence the gate is willing to believe.
type ModelAccuracyRecord struct {
	Model         string    `json:"model"`
	Symbol        string    `json:"symbol"`
	SampleCount   int       `json:"sample_count"`
	Hits          int       `json:"hits"`
	AvgConfidence float64   `json:"avg_confidence"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HitRate returns the realized accuracy of the model on this symbol, or 0
// when no samples have been recorded.
func (r ModelAccuracyRecord) HitRate() float64 {
	if r.SampleCount == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.SampleCount)
}
