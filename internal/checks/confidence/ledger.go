package confidence

import (
	"context"
	"sync"
	"time"

	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Ledger is the read interface over per-model calibration history. The
// guard only reads it; outcome recording happens after trades resolve.
type Ledger interface {
	// Accuracy returns the rolling tally for a model/symbol pair. ok is
	// false when no samples exist yet.
	Accuracy(ctx context.Context, model, symbol string) (rec types.ModelAccuracyRecord, ok bool, err error)
}

// RecordingLedger extends Ledger with outcome recording for callers that
// close the loop after trade results are known.
type RecordingLedger interface {
	Ledger
	// RecordOutcome folds one resolved trade into the tally.
	RecordOutcome(ctx context.Context, model, symbol string, claimed float64, hit bool) error
}

// MemoryLedger is an in-process accuracy ledger keyed by model+symbol.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]types.ModelAccuracyRecord
}

// NewMemoryLedger creates an empty in-memory accuracy ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]types.ModelAccuracyRecord)}
}

// Accuracy returns the tally for the model/symbol pair.
func (l *MemoryLedger) Accuracy(ctx context.Context, model, symbol string) (types.ModelAccuracyRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[ledgerKey(model, symbol)]
	return rec, ok, nil
}

// RecordOutcome folds one resolved trade into the rolling tally.
func (l *MemoryLedger) RecordOutcome(ctx context.Context, model, symbol string, claimed float64, hit bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(model, symbol)
	rec := l.records[key]
	rec.Model = model
	rec.Symbol = symbol

	total := rec.AvgConfidence*float64(rec.SampleCount) + claimed
	rec.SampleCount++
	rec.AvgConfidence = total / float64(rec.SampleCount)
	if hit {
		rec.Hits++
	}
	rec.UpdatedAt = time.Now()

	l.records[key] = rec
	return nil
}

// Seed installs a prebuilt record, replacing any existing tally.
func (l *MemoryLedger) Seed(rec types.ModelAccuracyRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[ledgerKey(rec.Model, rec.Symbol)] = rec
}

func ledgerKey(model, symbol string) string {
	return model + "|" + symbol
}
