package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func seedSessions(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := []string{
		"proj-a/session-1.jsonl",
		"proj-a/session-2.jsonl",
		"proj-a/subagents/nested.jsonl",
		"proj-b/session-3.jsonl",
		"proj-b/notes.txt",
	}
	for i, rel := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
		// Stagger mtimes so sort order is testable.
		mtime := time.Now().Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestDiscoverSessionsSkipsSubagents(t *testing.T) {
	root := seedSessions(t)

	paths, err := DiscoverSessions(root, DiscoverOpts{})
	if err != nil {
		t.Fatalf("DiscoverSessions: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d paths, want 3: %v", len(paths), paths)
	}
	for _, p := range paths {
		if filepath.Base(filepath.Dir(p)) == "subagents" {
			t.Errorf("subagent session leaked: %s", p)
		}
	}

	with, err := DiscoverSessions(root, DiscoverOpts{IncludeSubagents: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(with) != 4 {
		t.Errorf("with subagents: got %d, want 4", len(with))
	}
}

func TestDiscoverSessionsSortAndLimit(t *testing.T) {
	root := seedSessions(t)

	newest, err := DiscoverSessions(root, DiscoverOpts{Sort: "newest", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(newest) != 1 || filepath.Base(newest[0]) != "session-3.jsonl" {
		t.Errorf("newest: %v", newest)
	}

	oldest, err := DiscoverSessions(root, DiscoverOpts{Sort: "oldest", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(oldest) != 1 || filepath.Base(oldest[0]) != "session-1.jsonl" {
		t.Errorf("oldest: %v", oldest)
	}
}

func TestDiscoverSessionsMissingRoot(t *testing.T) {
	paths, err := DiscoverSessions(filepath.Join(t.TempDir(), "nope"), DiscoverOpts{})
	if err != nil {
		t.Fatalf("missing root must not error: %v", err)
	}
	if paths != nil {
		t.Errorf("paths: %v", paths)
	}
}
