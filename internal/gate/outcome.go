package gate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/trade-risk-gate/internal/breaker"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/confidence"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// OutcomeRecorder closes the loop after a trade resolves: it folds the
// outcome into the model-accuracy ledger and feeds the portfolio reading to
// the circuit breaker. The baseline check's rolling window stays
// caller-supplied and is not touched here.
type OutcomeRecorder struct {
	ledger  confidence.RecordingLedger
	breaker *breaker.Breaker
	logger  zerolog.Logger
}

// NewOutcomeRecorder builds a recorder. ledger may be nil when no accuracy
// tracking is wanted; breaker may be nil when no breaker is wired.
func NewOutcomeRecorder(ledger confidence.RecordingLedger, b *breaker.Breaker, logger zerolog.Logger) *OutcomeRecorder {
	return &OutcomeRecorder{ledger: ledger, breaker: b, logger: logger}
}

// RecordOutcome ingests one resolved trade plus the portfolio reading taken
// after it closed. Ledger updates only apply when the originating model and
// its claimed confidence are known.
func (r *OutcomeRecorder) RecordOutcome(ctx context.Context, outcome types.TradeOutcome, model string, claimed float64, reading breaker.Reading) error {
	if r.ledger != nil && model != "" && claimed > 0 {
		if err := r.ledger.RecordOutcome(ctx, model, outcome.Symbol, claimed, outcome.Win); err != nil {
			return fmt.Errorf("failed to record model outcome: %w", err)
		}
	}

	if r.breaker != nil {
		if tripped := r.breaker.Observe(ctx, reading); len(tripped) > 0 {
			r.logger.Warn().
				Str("symbol", outcome.Symbol).
				Interface("tiers", tripped).
				Msg("post-trade reading tripped circuit breaker tiers")
		}
	}
	return nil
}
