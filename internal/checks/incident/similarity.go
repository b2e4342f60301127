package incident

import (
	"math"
	"strings"
	"unicode"
)

// tokenize lowercases the text and splits it into alphanumeric terms.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// termVector builds a term-frequency vector for the text.
func termVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	for _, term := range tokenize(text) {
		vec[term]++
	}
	return vec
}

// Relevance computes the cosine similarity between two texts over their
// term-frequency vectors, in [0,1]. It is the default embedding used when no
// external vector store is wired in; storage backends reuse it so that
// in-memory and persistent stores rank matches identically.
func Relevance(query, text string) float64 {
	qv := termVector(query)
	tv := termVector(text)
	if len(qv) == 0 || len(tv) == 0 {
		return 0
	}

	var dot, qNorm, tNorm float64
	for term, qw := range qv {
		qNorm += qw * qw
		if tw, ok := tv[term]; ok {
			dot += qw * tw
		}
	}
	for _, tw := range tv {
		tNorm += tw * tw
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(qNorm) * math.Sqrt(tNorm))
}
