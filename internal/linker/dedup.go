package linker

import (
	"sort"

	"github.com/devkg/devkg/internal/store"
)

// Equivalence declares that two corpus labels denote the same external
// entity. A and B are ordered alphabetically.
type Equivalence struct {
	A   string
	B   string
	QID string
}

// Equivalences derives label equivalences from accepted links: labels that
// resolved to the same QID are the same entity, and every pair within a
// QID group is emitted. Output is deterministic.
func Equivalences(links []store.LinkEntry) []Equivalence {
	byQID := map[string][]string{}
	for _, link := range links {
		if !link.Matched() {
			continue
		}
		byQID[link.QID] = append(byQID[link.QID], link.Label)
	}

	var out []Equivalence
	for qid, labels := range byQID {
		if len(labels) < 2 {
			continue
		}
		sort.Strings(labels)
		for i := 0; i < len(labels); i++ {
			for j := i + 1; j < len(labels); j++ {
				if labels[i] == labels[j] {
					continue
				}
				out = append(out, Equivalence{A: labels[i], B: labels[j], QID: qid})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].QID != out[j].QID {
			return out[i].QID < out[j].QID
		}
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
