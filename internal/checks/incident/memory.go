package incident

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// MemoryStore is an in-process incident store. It holds every record in
// memory and ranks matches with the shared Relevance function. Suitable for
// tests and for gates run without persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	records []types.IncidentRecord
}

// NewMemoryStore creates an empty in-memory incident store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a record. Records are never updated or removed.
func (s *MemoryStore) Append(ctx context.Context, rec types.IncidentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Search scans all records and returns the limit most relevant matches.
func (s *MemoryStore) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		rel := Relevance(query, IncidentText(rec))
		if rel > 0 {
			matches = append(matches, Match{Record: rec, Relevance: rel})
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

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IncidentText flattens a record into the text matched against queries.
func IncidentText(rec types.IncidentRecord) string {
	return strings.Join([]string{rec.Symbol, rec.Action, rec.Reasoning, rec.Outcome}, " ")
}
