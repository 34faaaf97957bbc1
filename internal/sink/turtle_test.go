package sink

import (
	"strings"
	"testing"
)

func sampleExport() Export {
	return Export{
		Triples: []TripleRecord{
			{Subject: "devkg", Predicate: "storesIn", Object: "neo4j", SourceMessageID: "m1", SessionID: "s1"},
			{Subject: "neo4j", Predicate: "isTypeOf", Object: "graph database", SourceMessageID: "m2", SessionID: "s1"},
		},
		Links: []LinkRecord{
			{Label: "neo4j", ExternalID: "Q1628290", Confidence: 0.92, MatchedLabel: "Neo4j", Description: "graph database management system"},
		},
		Equivalences: []EquivalenceRecord{
			{A: "k8s", B: "kubernetes", ExternalID: "Q22661306"},
		},
	}
}

func TestWriteTurtle(t *testing.T) {
	var sb strings.Builder
	if err := WriteTurtle(&sb, sampleExport()); err != nil {
		t.Fatalf("WriteTurtle: %v", err)
	}
	out := sb.String()

	wants := []string{
		"@prefix devkg: <http://devkg.local/ontology#>",
		"@prefix wd: <http://www.wikidata.org/entity/>",
		"<http://devkg.local/data/entity/graph-database> a devkg:Entity",
		`rdfs:label "graph database"`,
		"<http://devkg.local/data/entity/devkg> devkg:storesIn <http://devkg.local/data/entity/neo4j> .",
		"a devkg:KnowledgeTriple",
		"devkg:extractedFrom <http://devkg.local/data/message/m1>",
		"devkg:extractedInSession <http://devkg.local/data/session/s1>",
		"<http://devkg.local/data/entity/neo4j> owl:sameAs wd:Q1628290",
		`dcterms:description "graph database management system"`,
		"<http://devkg.local/data/entity/k8s> owl:sameAs <http://devkg.local/data/entity/kubernetes> .",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestWriteTurtleDeterministic(t *testing.T) {
	var a, b strings.Builder
	export := sampleExport()
	if err := WriteTurtle(&a, export); err != nil {
		t.Fatal(err)
	}
	// Reverse the triple order; output must not change.
	export.Triples[0], export.Triples[1] = export.Triples[1], export.Triples[0]
	if err := WriteTurtle(&b, export); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("serialization must be order-insensitive")
	}
}

func TestTripleIDStableAndDistinct(t *testing.T) {
	t1 := TripleRecord{Subject: "a", Predicate: "uses", Object: "b", SourceMessageID: "m1"}
	t2 := t1
	if tripleID(t1) != tripleID(t2) {
		t.Error("identical triples must share an ID")
	}
	t2.SourceMessageID = "m2"
	if tripleID(t1) == tripleID(t2) {
		t.Error("same triple from a different message is a distinct reified node")
	}
	if len(tripleID(t1)) != 12 {
		t.Errorf("id length: %d", len(tripleID(t1)))
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Graph Database":  "graph-database",
		"C++":             "c",
		"  neo4j  ":       "neo4j",
		"a/b\\c":          "a-b-c",
		"already-slugged": "already-slugged",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTurtleStringEscaping(t *testing.T) {
	got := turtleString("say \"hi\"\nback\\slash")
	if got != `"say \"hi\"\nback\\slash"` {
		t.Errorf("turtleString = %s", got)
	}
}
