package confidence

import "regexp"

// ReasoningPattern is one known-bad reasoning shape. Patterns catch the
// textual signatures of hallucinated conviction: invented price levels and
// certainty about direction that no model can justify.
type ReasoningPattern struct {
	Name        string
	Description string
	Pattern     *regexp.Regexp
}

// KnownBadPatterns returns the built-in reasoning pattern library.
func KnownBadPatterns() []ReasoningPattern {
	return []ReasoningPattern{
		{
			Name:        "fabricated_price_target",
			Description: "precise price target stated as a certainty",
			Pattern:     regexp.MustCompile(`(?i)\b(will|going to|guaranteed to|sure to)\s+(hit|reach|touch|close at)\s+\$?\d`),
		},
		{
			Name:        "certainty_claim",
			Description: "absolute certainty about the outcome",
			Pattern:     regexp.MustCompile(`(?i)\b(guaranteed|risk[- ]?free|can(not|'t)\s+(lose|fail)|100%\s*(certain|sure|win)|no\s+(possible\s+)?downside)\b`),
		},
		{
			Name:        "unjustified_direction",
			Description: "direction claimed as inevitable",
			Pattern:     regexp.MustCompile(`(?i)\b(always\s+goes\s+up|never\s+(drops|falls|goes\s+down)|only\s+goes\s+up|definitely\s+(rising|falling|up|down))\b`),
		},
	}
}

// MatchPatterns returns the names of every known-bad pattern found in the
// reasoning text.
func MatchPatterns(reasoning string, patterns []ReasoningPattern) []ReasoningPattern {
	var matched []ReasoningPattern
	for _, p := range patterns {
		if p.Pattern.MatchString(reasoning) {
			matched = append(matched, p)
		}
	}
	return matched
}
