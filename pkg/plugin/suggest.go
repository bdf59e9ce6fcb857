package plugin

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MaxSuggestions caps the names offered for a mistyped action.
const MaxSuggestions = 3

// Distance is the Levenshtein edit distance between a and b, each insertion,
// deletion and substitution costing 1.
func Distance(a, b string) int {
	return fuzzy.LevenshteinDistance(a, b)
}

// Similar reports whether candidate is close enough to input to suggest.
// Both names longer than two characters qualify within distance 1, or 2 when
// the candidate is longer than four. A prefix match in either direction
// always qualifies.
func Similar(input, candidate string) bool {
	if input == "" || candidate == "" {
		return false
	}
	if strings.HasPrefix(candidate, input) || strings.HasPrefix(input, candidate) {
		return true
	}
	if len(input) <= 2 || len(candidate) <= 2 {
		return false
	}

	switch d := Distance(input, candidate); {
	case d <= 1:
		return true
	case d == 2:
		return len(candidate) > 4
	default:
		return false
	}
}

// FindSimilar returns up to MaxSuggestions known names similar to name, in
// ActionNames order.
func (r *Registry) FindSimilar(name string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, candidate := range r.ActionNames() {
		if seen[candidate] || !Similar(name, candidate) {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
