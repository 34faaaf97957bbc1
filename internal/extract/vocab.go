package extract

import (
	"regexp"
	"strings"
)

// PredicateDef is one entry of the curated predicate vocabulary. The
// description is rendered into the extraction prompt.
type PredicateDef struct {
	Name        string
	Description string
}

// PredicateVocabulary is the closed set of predicates the extractor emits,
// mirroring the devkg ontology. Order matters: the prompt renders the
// vocabulary in this order.
var PredicateVocabulary = []PredicateDef{
	{"uses", "X uses technology/tool Y"},
	{"dependsOn", "X depends on Y"},
	{"enables", "X enables capability Y"},
	{"isPartOf", "X is part of larger Y"},
	{"hasPart", "X has component Y"},
	{"implements", "X implements pattern/spec Y"},
	{"extends", "X extends/specializes Y"},
	{"alternativeTo", "X is alternative to Y"},
	{"solves", "X solves problem Y"},
	{"produces", "X produces output Y"},
	{"configures", "X configures Y"},
	{"composesWith", "X composes/combines with Y"},
	{"provides", "X provides capability Y"},
	{"requires", "X requires Y"},
	{"isTypeOf", "X is a type/kind of Y"},
	{"builtWith", "X is built with Y"},
	{"deployedOn", "X is deployed on platform Y"},
	{"storesIn", "X stores data in Y"},
	{"queriedWith", "X is queried using Y"},
	{"integratesWith", "X integrates with Y"},
	{"broader", "X is a broader concept than Y"},
	{"narrower", "X is a narrower concept than Y"},
	{"relatedTo", "X is related to Y (generic)"},
	{"servesAs", "X serves as / acts as Y"},
}

// FallbackPredicate is returned when no vocabulary term matches.
const FallbackPredicate = "relatedTo"

// fuzzyMatchThreshold is the minimum bigram Dice coefficient for a fuzzy
// predicate match. Below it the normalizer falls back to relatedTo.
const fuzzyMatchThreshold = 0.75

var predicateSet map[string]bool

func init() {
	predicateSet = make(map[string]bool, len(PredicateVocabulary))
	for _, p := range PredicateVocabulary {
		predicateSet[p.Name] = true
	}
}

// IsKnownPredicate reports whether p is a member of the curated vocabulary.
func IsKnownPredicate(p string) bool {
	return predicateSet[p]
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeEntity lowercases, trims, collapses internal whitespace, and
// strips trailing punctuation from an entity label.
func NormalizeEntity(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespaceRE.ReplaceAllString(name, " ")
	return strings.TrimRight(name, ".,;:")
}

var predicateSplitRE = regexp.MustCompile(`[_\s-]+`)

// NormalizePredicate maps a free-text predicate to a vocabulary term.
//
// Tries an exact match first, then converts common formats (snake_case,
// space-separated, hyphenated) to camelCase, then a case-insensitive
// match, then a fuzzy match by bigram similarity. Falls back to relatedTo
// when nothing clears the similarity threshold.
func NormalizePredicate(pred string) string {
	pred = strings.TrimSpace(pred)
	if pred == "" {
		return FallbackPredicate
	}

	if predicateSet[pred] {
		return pred
	}

	// snake_case, space-separated, or hyphenated to camelCase
	parts := predicateSplitRE.Split(strings.ToLower(pred), -1)
	if len(parts) > 1 {
		var b strings.Builder
		b.WriteString(parts[0])
		for _, p := range parts[1:] {
			if p == "" {
				continue
			}
			b.WriteString(strings.ToUpper(p[:1]))
			b.WriteString(p[1:])
		}
		if camel := b.String(); predicateSet[camel] {
			return camel
		}
	}

	// Case-insensitive match
	predLower := strings.ToLower(pred)
	for _, def := range PredicateVocabulary {
		if strings.ToLower(def.Name) == predLower {
			return def.Name
		}
	}

	// Fuzzy match: closest vocabulary term by bigram similarity
	best := ""
	bestScore := 0.0
	for _, def := range PredicateVocabulary {
		score := diceCoefficient(predLower, strings.ToLower(def.Name))
		if score > bestScore {
			best = def.Name
			bestScore = score
		}
	}
	if bestScore >= fuzzyMatchThreshold {
		return best
	}

	return FallbackPredicate
}

// diceCoefficient computes the Sørensen–Dice coefficient over character
// bigram multisets. Returns a value in [0, 1].
func diceCoefficient(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) < 2 || len(b) < 2 {
		return 0.0
	}

	bigrams := func(s string) map[string]int {
		m := make(map[string]int, len(s)-1)
		for i := 0; i+2 <= len(s); i++ {
			m[s[i:i+2]]++
		}
		return m
	}

	aGrams := bigrams(a)
	bGrams := bigrams(b)

	overlap := 0
	for g, n := range aGrams {
		if m := bGrams[g]; m < n {
			overlap += m
		} else {
			overlap += n
		}
	}

	return 2.0 * float64(overlap) / float64(len(a)-1+len(b)-1)
}
