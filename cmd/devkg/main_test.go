package main

import (
	"testing"
)

func TestParseProcessFlags(t *testing.T) {
	opts, err := parseProcessFlags([]string{"--transcript", "/tmp/s.jsonl", "--session-id", "abc", "--json"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.transcript != "/tmp/s.jsonl" || opts.sessionID != "abc" || !opts.jsonOut {
		t.Errorf("opts: %+v", opts)
	}
}

func TestParseProcessFlagsPositionalTranscript(t *testing.T) {
	opts, err := parseProcessFlags([]string{"/tmp/s.jsonl"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.transcript != "/tmp/s.jsonl" {
		t.Errorf("opts: %+v", opts)
	}
}

func TestParseProcessFlagsRequiresTranscript(t *testing.T) {
	if _, err := parseProcessFlags(nil); err == nil {
		t.Fatal("expected usage error")
	}
}

func TestParseProcessFlagsUnknownFlag(t *testing.T) {
	if _, err := parseProcessFlags([]string{"--bogus"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestParseBackfillFlags(t *testing.T) {
	opts, err := parseBackfillFlags([]string{
		"--limit", "5", "--sort", "newest", "--force", "--dry-run",
		"--include-subagents", "--workers", "3", "--db", "/tmp/x.db",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.limit != 5 || opts.sort != "newest" || !opts.force || !opts.dryRun {
		t.Errorf("opts: %+v", opts)
	}
	if !opts.includeSubagents || opts.workers != 3 || opts.db != "/tmp/x.db" {
		t.Errorf("opts: %+v", opts)
	}
}

func TestParseBackfillFlagsRejectsBadSort(t *testing.T) {
	if _, err := parseBackfillFlags([]string{"--sort", "sideways"}); err == nil {
		t.Fatal("expected sort validation error")
	}
}

func TestParseBackfillFlagsRejectsBadLimit(t *testing.T) {
	if _, err := parseBackfillFlags([]string{"--limit", "many"}); err == nil {
		t.Fatal("expected limit validation error")
	}
}

func TestParseLinkFlags(t *testing.T) {
	opts, err := parseLinkFlags([]string{
		"--min-sessions", "3", "--confidence", "0.8", "--workers", "2",
		"--limit", "10", "--provider", "ollama/llama3.2",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.minSessions != 3 || opts.confidence != 0.8 || opts.workers != 2 || opts.limit != 10 {
		t.Errorf("opts: %+v", opts)
	}
	if opts.provider != "ollama/llama3.2" {
		t.Errorf("provider: %q", opts.provider)
	}
}

func TestParseLinkFlagsRejectsBadConfidence(t *testing.T) {
	for _, v := range []string{"0", "1.5", "-0.2", "high"} {
		if _, err := parseLinkFlags([]string{"--confidence", v}); err == nil {
			t.Errorf("confidence %q must be rejected", v)
		}
	}
}

func TestParseExportFlags(t *testing.T) {
	opts, err := parseExportFlags([]string{"--out", "graph.ttl", "--fuseki", "--neo4j"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.out != "graph.ttl" || !opts.fuseki || !opts.neo4j {
		t.Errorf("opts: %+v", opts)
	}
}

func TestParseExportFlagsRejectsPositional(t *testing.T) {
	if _, err := parseExportFlags([]string{"graph.ttl"}); err == nil {
		t.Fatal("expected unexpected argument error")
	}
}

func TestMask(t *testing.T) {
	if mask("") != "" {
		t.Error("empty secret must stay empty")
	}
	if mask("hunter2") == "hunter2" {
		t.Error("secret must be masked")
	}
}
