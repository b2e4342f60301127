// Package incident implements the incident-similarity check: a read-only
// nearest-neighbor query over past flagged or failed trades. A near-match
// against a severe past incident is the strongest early warning the gate
// has that a candidate trade repeats a known mistake.
package incident

import (
	"context"
	"fmt"
	"strings"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
	gateerrors "github.com/ducminhle1904/trade-risk-gate/internal/errors"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Match is one incident returned by a similarity search, with its relevance
// to the query in [0,1].
type Match struct {
	Record    types.IncidentRecord
	Relevance float64
}

// Store is the read-only incident collaborator. Implementations rank
// incidents by relevance to the query text; the embedding and storage
// technology behind it is not part of this contract.
type Store interface {
	// Search returns up to limit matches ordered by descending relevance.
	Search(ctx context.Context, query string, limit int) ([]Match, error)
	// Append records a new incident. Used by post-mortem tooling only; the
	// check itself never writes.
	Append(ctx context.Context, rec types.IncidentRecord) error
}

// Config holds tunables for the incident similarity check.
type Config struct {
	// RelevanceThreshold is the minimum relevance for a match to count.
	RelevanceThreshold float64 `json:"relevance_threshold"`
	// PassThreshold is the score below which the check passes.
	PassThreshold float64 `json:"pass_threshold"`
	// MaxMatches caps how many matches are fetched per query.
	MaxMatches int `json:"max_matches"`
	// BaselineScore is reported when no relevant incident exists.
	BaselineScore float64 `json:"baseline_score"`
}

// DefaultConfig returns the default incident check configuration.
func DefaultConfig() Config {
	return Config{
		RelevanceThreshold: 0.35,
		PassThreshold:      60.0,
		MaxMatches:         5,
		BaselineScore:      10.0,
	}
}

// severityWeights scale relevance into a risk score per incident severity.
var severityWeights = map[types.IncidentSeverity]float64{
	types.SeverityLow:      0.4,
	types.SeverityMedium:   0.7,
	types.SeverityHigh:     1.0,
	types.SeverityCritical: 1.2,
}

// Check queries the incident store for near-matches to the candidate trade.
type Check struct {
	store  Store
	config Config
}

// New creates an incident similarity check backed by the given store.
func New(store Store, config Config) *Check {
	return &Check{store: store, config: config}
}

// Name returns the canonical check name.
func (c *Check) Name() string {
	return checks.NameIncident
}

// Evaluate searches past incidents for the closest match to the request and
// scores it by severity-weighted relevance. An unreachable store degrades to
// a neutral score rather than blocking: availability over strictness here.
func (c *Check) Evaluate(ctx context.Context, in checks.Input) checks.Result {
	query := BuildQuery(in.Request)

	matches, err := c.store.Search(ctx, query, c.config.MaxMatches)
	if err != nil {
		return checks.Degraded(c.Name(), gateerrors.Unavailable(err, c.Name(), "search"))
	}

	relevant := matches[:0:0]
	for _, m := range matches {
		if m.Relevance >= c.config.RelevanceThreshold {
			relevant = append(relevant, m)
		}
	}

	result := checks.Result{
		Name: c.Name(),
		Details: map[string]interface{}{
			"query":         query,
			"matches_found": len(relevant),
		},
	}

	if len(relevant) == 0 {
		result.Score = c.config.BaselineScore
		result.Passed = true
		result.Recommendation = "No similar past incident found."
		return result
	}

	best := relevant[0]
	for _, m := range relevant[1:] {
		if c.scoreMatch(m) > c.scoreMatch(best) {
			best = m
		}
	}

	result.Score = c.scoreMatch(best)
	result.Passed = result.Score < c.config.PassThreshold
	result.Details["best_match_id"] = best.Record.ID
	result.Details["best_match_symbol"] = best.Record.Symbol
	result.Details["relevance"] = best.Relevance
	result.Details["severity"] = string(best.Record.Severity)

	for _, m := range relevant {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"similar %s-severity incident %s (%s %s, relevance %.2f): %s",
			m.Record.Severity, m.Record.ID, m.Record.Action, m.Record.Symbol,
			m.Relevance, m.Record.Outcome))
	}

	if result.Passed {
		result.Recommendation = fmt.Sprintf(
			"Weak similarity to past incident %s; proceed with awareness.", best.Record.ID)
	} else {
		result.Recommendation = fmt.Sprintf(
			"Trade closely resembles %s-severity incident %s (relevance %.2f). Review the post-mortem before proceeding.",
			best.Record.Severity, best.Record.ID, best.Relevance)
	}
	return result
}

// scoreMatch converts a match into a risk score: relevance scaled by the
// incident's severity weight. A high-severity match at relevance 0.8 scores
// exactly 80.
func (c *Check) scoreMatch(m Match) float64 {
	weight, ok := severityWeights[m.Record.Severity]
	if !ok {
		weight = severityWeights[types.SeverityMedium]
	}
	return checks.ClampScore(100 * m.Relevance * weight)
}

// BuildQuery assembles the similarity query from the request's symbol, side
// and reasoning excerpt.
func BuildQuery(req types.TradeRequest) string {
	parts := []string{req.Symbol, string(req.Side)}
	if req.Reasoning != "" {
		parts = append(parts, req.Reasoning)
	}
	return strings.Join(parts, " ")
}
