package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverOpts controls session discovery.
type DiscoverOpts struct {
	// IncludeSubagents keeps files under /subagents/ directories. Off by
	// default: subagent sessions share context with their parent and
	// would produce duplicate triples.
	IncludeSubagents bool
	// Sort is "name" (default), "newest", or "oldest".
	Sort string
	// Limit caps the result count after sorting; 0 = unlimited.
	Limit int
}

// DiscoverSessions walks root for JSONL session files. A missing root is
// not an error: it returns an empty list, matching a fresh machine with no
// recorded sessions yet.
func DiscoverSessions(root string, opts DiscoverOpts) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	type entry struct {
		path  string
		mtime int64
	}
	var found []entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.IncludeSubagents && d.Name() == "subagents" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		found = append(found, entry{path: path, mtime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering sessions under %s: %w", root, err)
	}

	switch opts.Sort {
	case "newest":
		sort.Slice(found, func(i, j int) bool { return found[i].mtime > found[j].mtime })
	case "oldest":
		sort.Slice(found, func(i, j int) bool { return found[i].mtime < found[j].mtime })
	default:
		sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })
	}

	if opts.Limit > 0 && len(found) > opts.Limit {
		found = found[:opts.Limit]
	}

	paths := make([]string, len(found))
	for i, e := range found {
		paths[i] = e.path
	}
	return paths, nil
}
