package store

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/devkg/devkg/internal/extract"
)

// HashText computes the short SHA-256 hash (16 hex chars) of message text,
// used as the realtime watermark. Delegates to the extraction cache's hash
// so the two can never drift: a message marked processed under one hash is
// the same message the cache knows.
func HashText(text string) string {
	return extract.HashText(text)
}

// HashFile computes the short SHA-256 hash of a file's full contents.
// Used by the backfill watermark to detect transcripts that grew since the
// last run.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16], nil
}

// ContextFingerprint computes a stable hash over the context strings used
// for a disambiguation. The same label with genuinely different context
// produces a different fingerprint, so polysemous labels don't collide in
// the link cache. Order-insensitive: inputs are sorted before hashing.
func ContextFingerprint(parts []string) string {
	sorted := make([]string, len(parts))
	copy(sorted, parts)
	sort.Strings(sorted)

	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p))
		h.Write([]byte{0}) // separator
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
