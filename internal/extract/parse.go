package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Triple is one (subject, predicate, object) statement extracted from a
// message, with all fields normalized.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// NormalizeTriple applies entity and predicate normalization to all parts
// of a triple.
func NormalizeTriple(t Triple) Triple {
	return Triple{
		Subject:   NormalizeEntity(t.Subject),
		Predicate: NormalizePredicate(t.Predicate),
		Object:    NormalizeEntity(t.Object),
	}
}

// MaxTriplesPerMessage caps how many triples a single message contributes.
// The model is instructed to put the most important relationships first,
// so the cap keeps the head of the list.
const MaxTriplesPerMessage = 10

var (
	jsonArrayRE = regexp.MustCompile(`(?s)\[.*\]`)

	// salvageRE matches complete triple objects inside a truncated response.
	salvageRE = regexp.MustCompile(`\{[^{}]*"subject"\s*:\s*"[^"]*"\s*,\s*"predicate"\s*:\s*"[^"]*"\s*,\s*"object"\s*:\s*"[^"]*"[^{}]*\}`)
)

// isTruncated detects a response cut off mid-JSON: an opening bracket with
// no closing one, unbalanced bracket counts, or a trailing character that
// only appears mid-structure.
func isTruncated(raw string) bool {
	stripped := strings.TrimSpace(raw)
	if stripped == "" {
		return false
	}

	if strings.Contains(stripped, "[") && !strings.Contains(stripped, "]") {
		return true
	}

	if strings.Count(stripped, "[") > strings.Count(stripped, "]") {
		return true
	}
	if strings.Count(stripped, "{") > strings.Count(stripped, "}") {
		return true
	}

	switch stripped[len(stripped)-1] {
	case ',', ':', '"', '{':
		return true
	}

	return false
}

// salvageTruncatedJSON recovers complete triple objects that appear before
// the truncation point. Returns nil when nothing can be recovered.
func salvageTruncatedJSON(raw string) []any {
	matches := salvageRE.FindAllString(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	var salvaged []any
	for _, m := range matches {
		var obj map[string]any
		if err := json.Unmarshal([]byte(m), &obj); err != nil {
			continue
		}
		salvaged = append(salvaged, obj)
	}
	return salvaged
}

// parseTriplesResponse parses a raw model response into normalized, filtered
// triples. Returns nil when the response is unparseable; an empty non-nil
// slice means the model reported no triples, which is a valid result.
func parseTriplesResponse(raw string) []Triple {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// The model may wrap the array in prose or markdown fences.
		if m := jsonArrayRE.FindString(raw); m != "" {
			if err := json.Unmarshal([]byte(m), &parsed); err != nil {
				parsed = nil
			}
		}

		if parsed == nil && isTruncated(raw) {
			if salvaged := salvageTruncatedJSON(raw); salvaged != nil {
				parsed = salvaged
			}
		}

		if parsed == nil {
			return nil
		}
	}

	// Dict wrapper, e.g. {"triples": [...]}: take the first list value.
	if obj, ok := parsed.(map[string]any); ok {
		found := false
		for _, v := range obj {
			if list, ok := v.([]any); ok {
				parsed = list
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}

	list, ok := parsed.([]any)
	if !ok {
		return nil
	}

	triples := make([]Triple, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		subject, sok := obj["subject"].(string)
		predicate, pok := obj["predicate"].(string)
		object, ook := obj["object"].(string)
		if !sok || !pok || !ook {
			continue
		}

		t := NormalizeTriple(Triple{Subject: subject, Predicate: predicate, Object: object})
		if t.Subject == "" || t.Predicate == "" || t.Object == "" {
			continue
		}
		if !IsValidEntity(t.Subject) || !IsValidEntity(t.Object) {
			continue
		}
		triples = append(triples, t)
	}

	if len(triples) > MaxTriplesPerMessage {
		triples = triples[:MaxTriplesPerMessage]
	}

	return triples
}
