package sink

import (
	"crypto/md5"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Ontology namespaces. The devkg ontology models entities, reified
// knowledge triples, and their session provenance.
const (
	OntologyNS = "http://devkg.local/ontology#"
	DataNS     = "http://devkg.local/data/"
	WikidataNS = "http://www.wikidata.org/entity/"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug produces a URI-safe identifier from an entity label.
func Slug(text string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(text), "-"), "-")
}

func entityIRI(label string) string {
	return "<" + DataNS + "entity/" + Slug(label) + ">"
}

// WriteTurtle serializes an export as Turtle. Output is deterministic for
// a given export: entities, triples, and links are each sorted.
//
// Every knowledge triple produces both a direct predicate edge (for fast
// traversal) and a reified KnowledgeTriple node (for provenance).
func WriteTurtle(w io.Writer, export Export) error {
	var b strings.Builder

	b.WriteString("@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .\n")
	b.WriteString("@prefix owl: <http://www.w3.org/2002/07/owl#> .\n")
	b.WriteString("@prefix dcterms: <http://purl.org/dc/terms/> .\n")
	b.WriteString("@prefix devkg: <" + OntologyNS + "> .\n")
	b.WriteString("@prefix wd: <" + WikidataNS + "> .\n\n")

	// Entity nodes, one per distinct label.
	entities := map[string]string{}
	for _, t := range export.Triples {
		entities[Slug(t.Subject)] = t.Subject
		entities[Slug(t.Object)] = t.Object
	}
	slugs := make([]string, 0, len(entities))
	for s := range entities {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	for _, s := range slugs {
		fmt.Fprintf(&b, "%s a devkg:Entity ;\n    rdfs:label %s .\n\n",
			entityIRI(entities[s]), turtleString(entities[s]))
	}

	triples := append([]TripleRecord(nil), export.Triples...)
	sort.Slice(triples, func(i, j int) bool {
		return tripleKey(triples[i]) < tripleKey(triples[j])
	})
	for _, t := range triples {
		subj := entityIRI(t.Subject)
		obj := entityIRI(t.Object)

		// Direct edge.
		fmt.Fprintf(&b, "%s devkg:%s %s .\n", subj, t.Predicate, obj)

		// Reified triple with provenance.
		lines := []string{
			fmt.Sprintf("<%striple/%s> a devkg:KnowledgeTriple", DataNS, tripleID(t)),
			"    devkg:tripleSubject " + subj,
			"    devkg:tripleObject " + obj,
			"    devkg:triplePredicateLabel " + turtleString(t.Predicate),
		}
		if t.SourceMessageID != "" {
			lines = append(lines, fmt.Sprintf("    devkg:extractedFrom <%smessage/%s>", DataNS, t.SourceMessageID))
		}
		if t.SessionID != "" {
			lines = append(lines, fmt.Sprintf("    devkg:extractedInSession <%ssession/%s>", DataNS, t.SessionID))
		}
		b.WriteString(strings.Join(lines, " ;\n") + " .\n\n")
	}

	links := append([]LinkRecord(nil), export.Links...)
	sort.Slice(links, func(i, j int) bool { return links[i].Label < links[j].Label })
	for _, l := range links {
		fmt.Fprintf(&b, "%s owl:sameAs wd:%s", entityIRI(l.Label), l.ExternalID)
		if l.Description != "" {
			b.WriteString(" ;\n    dcterms:description " + turtleString(l.Description))
		}
		b.WriteString(" .\n")
	}
	if len(links) > 0 {
		b.WriteString("\n")
	}

	eqs := append([]EquivalenceRecord(nil), export.Equivalences...)
	sort.Slice(eqs, func(i, j int) bool {
		if eqs[i].A != eqs[j].A {
			return eqs[i].A < eqs[j].A
		}
		return eqs[i].B < eqs[j].B
	})
	for _, eq := range eqs {
		fmt.Fprintf(&b, "%s owl:sameAs %s .\n", entityIRI(eq.A), entityIRI(eq.B))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func tripleKey(t TripleRecord) string {
	return t.Subject + "\x00" + t.Predicate + "\x00" + t.Object + "\x00" + t.SourceMessageID
}

// tripleID derives the reified node identifier from triple content plus
// source message, so re-export never duplicates nodes.
func tripleID(t TripleRecord) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%s|%s", t.Subject, t.Predicate, t.Object, t.SourceMessageID)))
	return fmt.Sprintf("%x", sum)[:12]
}

func turtleString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}
