// Package storage persists the gate's collaborator data in SQLite: the
// append-only incident log, the model-accuracy ledger and the circuit
// breaker snapshot. It implements the store interfaces the checks and the
// breaker define; callers that want no persistence use the in-memory
// implementations instead.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ducminhle1904/trade-risk-gate/internal/breaker"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/incident"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the SQLite database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

// OpenInMemory opens a throwaway in-memory database. Used in tests.
func OpenInMemory() (*Store, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&incidentModel{}, &accuracyModel{}, &breakerSnapshotModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Append implements incident.Store. Incident records are append-only.
func (s *Store) Append(ctx context.Context, rec types.IncidentRecord) error {
	model := incidentModel{
		ID:         rec.ID,
		Symbol:     rec.Symbol,
		Action:     rec.Action,
		Reasoning:  rec.Reasoning,
		Severity:   string(rec.Severity),
		Outcome:    rec.Outcome,
		OccurredAt: rec.OccurredAt,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// Search implements incident.Store. Records are loaded and ranked with the
// same relevance function the in-memory store uses, so both backends order
// matches identically.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]incident.Match, error) {
	var models []incidentModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}

	matches := make([]incident.Match, 0, len(models))
	for _, m := range models {
		rec := types.IncidentRecord{
			ID:         m.ID,
			Symbol:     m.Symbol,
			Action:     m.Action,
			Reasoning:  m.Reasoning,
			Severity:   types.IncidentSeverity(m.Severity),
			Outcome:    m.Outcome,
			OccurredAt: m.OccurredAt,
		}
		rel := incident.Relevance(query, incident.IncidentText(rec))
		if rel > 0 {
			matches = append(matches, incident.Match{Record: rec, Relevance: rel})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Relevance > matches[j].Relevance
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Accuracy implements confidence.Ledger.
func (s *Store) Accuracy(ctx context.Context, model, symbol string) (types.ModelAccuracyRecord, bool, error) {
	var m accuracyModel
	err := s.db.WithContext(ctx).
		Where("model = ? AND symbol = ?", model, symbol).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ModelAccuracyRecord{}, false, nil
	}
	if err != nil {
		return types.ModelAccuracyRecord{}, false, err
	}
	return types.ModelAccuracyRecord{
		Model:         m.Model,
		Symbol:        m.Symbol,
		SampleCount:   m.SampleCount,
		Hits:          m.Hits,
		AvgConfidence: m.AvgConfidence,
		UpdatedAt:     m.UpdatedAt,
	}, true, nil
}

// RecordOutcome implements confidence.RecordingLedger: it folds one
// resolved trade into the per-model tally inside a transaction.
func (s *Store) RecordOutcome(ctx context.Context, model, symbol string, claimed float64, hit bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m accuracyModel
		err := tx.Where("model = ? AND symbol = ?", model, symbol).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m = accuracyModel{Model: model, Symbol: symbol}
		} else if err != nil {
			return err
		}

		total := m.AvgConfidence*float64(m.SampleCount) + claimed
		m.SampleCount++
		m.AvgConfidence = total / float64(m.SampleCount)
		if hit {
			m.Hits++
		}
		m.UpdatedAt = time.Now()
		return tx.Save(&m).Error
	})
}

// SaveSnapshot implements breaker.SnapshotStore. The single snapshot row
// is overwritten on every save.
func (s *Store) SaveSnapshot(ctx context.Context, snap breaker.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	model := breakerSnapshotModel{
		ID:        1,
		Payload:   string(payload),
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Save(&model).Error
}

// LoadSnapshot implements breaker.SnapshotStore.
func (s *Store) LoadSnapshot(ctx context.Context) (breaker.Snapshot, bool, error) {
	var m breakerSnapshotModel
	err := s.db.WithContext(ctx).First(&m, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return breaker.Snapshot{}, false, nil
	}
	if err != nil {
		return breaker.Snapshot{}, false, err
	}

	var snap breaker.Snapshot
	if err := json.Unmarshal([]byte(m.Payload), &snap); err != nil {
		return breaker.Snapshot{}, false, fmt.Errorf("corrupt breaker snapshot: %w", err)
	}
	return snap, true, nil
}
