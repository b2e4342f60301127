// Package confidence implements the confidence/hallucination guard: it
// bounds model-stated confidence against empirically earned accuracy and
// flags reasoning that matches known-bad overconfidence patterns. Weighted
// heaviest in the aggregator (tied with incident similarity) because
// unchecked automated overconfidence produces outsized, unjustified trades.
package confidence

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/trade-risk-gate/internal/checks"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/incident"
	gateerrors "github.com/ducminhle1904/trade-risk-gate/internal/errors"
)

// Config holds tunables for the confidence guard.
type Config struct {
	// DefaultCeiling is the reliability ceiling applied when no empirical
	// history exists for the model. Roughly what current model classes
	// have earned; a tunable default, not a proven constant.
	DefaultCeiling float64 `json:"default_ceiling"`
	// CeilingMargin is added to the empirical hit rate before it bounds
	// claimed confidence.
	CeilingMargin float64 `json:"ceiling_margin"`
	// MinSamples is how many recorded outcomes a model needs before its
	// hit rate overrides the default ceiling.
	MinSamples int `json:"min_samples"`
	// BreachBaseScore is the score floor when confidence exceeds the
	// ceiling; the overshoot is added on top.
	BreachBaseScore float64 `json:"breach_base_score"`
	// PatternScore is added per matched known-bad reasoning pattern.
	PatternScore float64 `json:"pattern_score"`
	// PriorIncidentScore is added when the incident store holds a prior
	// overconfidence case for the same model.
	PriorIncidentScore float64 `json:"prior_incident_score"`
	// PriorIncidentRelevance is the minimum relevance for such a case.
	PriorIncidentRelevance float64 `json:"prior_incident_relevance"`
}

// DefaultConfig returns the default confidence guard configuration.
func DefaultConfig() Config {
	return Config{
		DefaultCeiling:         0.70,
		CeilingMargin:          0.05,
		MinSamples:             20,
		BreachBaseScore:        60.0,
		PatternScore:           25.0,
		PriorIncidentScore:     10.0,
		PriorIncidentRelevance: 0.40,
	}
}

// Check is the confidence/hallucination guard.
type Check struct {
	ledger    Ledger
	incidents incident.Store
	patterns  []ReasoningPattern
	config    Config
}

// New creates a confidence guard. incidents may be nil when no incident
// store is wired in; the prior-overconfidence lookup is then skipped.
func New(ledger Ledger, incidents incident.Store, config Config) *Check {
	return &Check{
		ledger:    ledger,
		incidents: incidents,
		patterns:  KnownBadPatterns(),
		config:    config,
	}
}

// Name returns the canonical check name.
func (c *Check) Name() string {
	return checks.NameConfidence
}

// Evaluate scores the request against the empirical confidence ceiling, the
// known-bad reasoning library and prior overconfidence incidents. The score
// rises sharply on a ceiling breach or a pattern match.
func (c *Check) Evaluate(ctx context.Context, in checks.Input) checks.Result {
	req := in.Request

	result := checks.Result{
		Name:    c.Name(),
		Details: map[string]interface{}{},
	}

	if !req.HasConfidence() && req.Reasoning == "" {
		result.Score = 10
		result.Passed = true
		result.Recommendation = "No stated confidence or reasoning to audit."
		return result
	}

	score := 10.0
	breached := false
	var matched []ReasoningPattern

	if req.HasConfidence() {
		ceiling, source, err := c.ceiling(ctx, req.Model, req.Symbol)
		if err != nil {
			return checks.Degraded(c.Name(), gateerrors.Unavailable(err, c.Name(), "accuracy"))
		}
		result.Details["claimed_confidence"] = req.Confidence
		result.Details["ceiling"] = ceiling
		result.Details["ceiling_source"] = source

		if req.Confidence > ceiling {
			breached = true
			overshoot := req.Confidence - ceiling
			score = c.config.BreachBaseScore + checks.ClampScore(overshoot*200)
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"claimed confidence %.2f exceeds %s ceiling %.2f",
				req.Confidence, source, ceiling))
		}
	}

	if req.Reasoning != "" {
		matched = MatchPatterns(req.Reasoning, c.patterns)
		for _, p := range matched {
			score += c.config.PatternScore
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"reasoning matches known-bad pattern %q (%s)", p.Name, p.Description))
		}
		result.Details["pattern_matches"] = len(matched)
	}

	if prior := c.priorOverconfidence(ctx, req.Model, req.Symbol); prior != "" {
		score += c.config.PriorIncidentScore
		result.Warnings = append(result.Warnings, prior)
	}

	result.Score = checks.ClampScore(score)
	result.Passed = !breached && len(matched) == 0

	switch {
	case breached && len(matched) > 0:
		result.Recommendation = "Reject the stated confidence: it exceeds what this model has earned AND the reasoning shows overconfidence markers."
	case breached:
		result.Recommendation = fmt.Sprintf(
			"Discount the stated confidence to at most %.2f before sizing.",
			result.Details["ceiling"])
	case len(matched) > 0:
		result.Recommendation = "Reasoning contains overconfidence markers; require independent justification before trading."
	default:
		result.Recommendation = "Stated confidence is within the model's earned reliability."
	}
	return result
}

// ceiling resolves the confidence ceiling for a model/symbol pair: the
// empirical hit rate plus margin once enough samples exist, the configured
// default otherwise. The empirical ceiling only ever tightens the default.
func (c *Check) ceiling(ctx context.Context, model, symbol string) (float64, string, error) {
	if model == "" {
		return c.config.DefaultCeiling, "default", nil
	}
	rec, ok, err := c.ledger.Accuracy(ctx, model, symbol)
	if err != nil {
		return 0, "", err
	}
	if !ok || rec.SampleCount < c.config.MinSamples {
		return c.config.DefaultCeiling, "default", nil
	}
	empirical := rec.HitRate() + c.config.CeilingMargin
	if empirical < c.config.DefaultCeiling {
		return empirical, "empirical", nil
	}
	return c.config.DefaultCeiling, "default", nil
}

// priorOverconfidence checks the incident store for an earlier case of the
// same model making a similar overconfident claim. A store failure here
// only costs the secondary signal, not the whole check.
func (c *Check) priorOverconfidence(ctx context.Context, model, symbol string) string {
	if c.incidents == nil || model == "" {
		return ""
	}
	query := fmt.Sprintf("%s %s overconfident confidence claim", model, symbol)
	matches, err := c.incidents.Search(ctx, query, 3)
	if err != nil {
		return ""
	}
	for _, m := range matches {
		if m.Relevance >= c.config.PriorIncidentRelevance {
			return fmt.Sprintf(
				"model previously flagged for overconfidence: incident %s (relevance %.2f)",
				m.Record.ID, m.Relevance)
		}
	}
	return ""
}
