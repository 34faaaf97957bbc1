package extract

import (
	"regexp"
	"strings"
)

// stopwordEntities are filler words and serialization artifacts that carry no
// knowledge-graph signal regardless of context.
var stopwordEntities = map[string]bool{
	"command name": true, "exit": true, "yes": true, "no": true, "ok": true,
	"the": true, "it": true, "this": true, "that": true, "none": true,
	"null": true, "undefined": true, "true": true, "false": true, "n/a": true,
	"[object object]": true, "object object": true,
}

// whitelistedEntities are well-known short technical terms that would
// otherwise be caught by the 2-char or shape filters. A whitelist hit
// bypasses every other rule.
var whitelistedEntities = map[string]bool{
	"ai": true, "ui": true, "db": true, "os": true, "ip": true, "ci": true,
	"cd": true, "js": true, "ts": true, "go": true, "ml": true, "api": true,
	"sdk": true, "sql": true, "css": true, "jwt": true, "ssh": true,
	"ssl": true, "tls": true, "dns": true, "cdn": true, "gpu": true,
	"cpu": true, "ram": true, "ssd": true, "hdd": true, "cli": true,
	"gui": true, "ide": true, "nlp": true, "llm": true, "rag": true,
	"rdf": true, "owl": true, "uri": true, "url": true, "xml": true,
	"csv": true, "pdf": true, "svg": true, "png": true, "gif": true,
	"npm": true, "pip": true, "git": true, "aws": true, "gcp": true,
	"mcp": true, "rpa": true,
}

// fileExtensions covers extensions commonly seen in code paths and filenames.
const fileExtensions = `ts|tsx|js|jsx|py|json|yaml|yml|css|html|md|sql|sh|env|db|sqlite|txt|` +
	`png|csv|jsonl|xml|toml|lock|cfg|ini|log|ttl|rdf|sparql|ipynb|whl|gz|` +
	`tar|zip|jpg|jpeg|gif|svg|wasm|map|d\.ts|mjs|cjs`

var (
	filenameRE      = regexp.MustCompile(`(?i)^[\w@./-][\w./-]*\.(` + fileExtensions + `)$`)
	icdShortRE      = regexp.MustCompile(`(?i)^[a-z]\d{2,}(\.\d+)?$`)
	icdUnderscoreRE = regexp.MustCompile(`(?i)^[a-z]+_\d{3}_\d{3}$`)
	protocolCodeRE  = regexp.MustCompile(`(?i)^[a-z]+_\d+$`)
	snakeCase3RE    = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+){2,}$`)
	numericPrefixRE = regexp.MustCompile(`^\d+\s`)
	versionRE       = regexp.MustCompile(`^\d+\.\d+`)
	pixelRE         = regexp.MustCompile(`^\d+px`)
	pureNumberRE    = regexp.MustCompile(`^\d+$`)
	ipAddressRE     = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	durationRE      = regexp.MustCompile(`(?i)^\d+\s*(seconds?|minutes?|hours?|days?|ms|s|m|h|kb|mb|gb|tb)\b`)
	hexStringRE     = regexp.MustCompile(`(?i)^[0-9a-f]{6,}$`)
	quantityRE      = regexp.MustCompile(`^\d+\s+\w+s$`)
	ordinalRE       = regexp.MustCompile(`(?i)^\d+(st|nd|rd|th)\b`)
	fractionRE      = regexp.MustCompile(`^\d+/\d+`)
	cssDimensionRE  = regexp.MustCompile(`(?i)\d+(px|vh|vw|em|rem|pt|%)\b`)

	// Link-stage only: NxM screen dimensions and filenames with arbitrary
	// extensions not worth enumerating at extraction time.
	screenDimensionRE = regexp.MustCompile(`^\d+x\d+$`)
	anyFilenameRE     = regexp.MustCompile(`(?i)^[\w@.-]+\.[a-z0-9]{1,5}$`)
)

// IsValidEntity returns false for candidate entities that are noise rather
// than real technical concepts. Expects an already normalized (lowercased,
// trimmed) label.
//
// Filters, in order:
//   - empty / single char
//   - stopwords
//   - whitelist bypass for known-good short terms
//   - paths, special-char prefixes, filenames
//   - medical/ICD codes, protocol codes, snake_case identifiers
//   - numeric prefixes, versions, dimensions, percentages
//   - code syntax fragments (brackets, parens, npm scopes)
//   - 2-char ambiguous noise
//   - 4+ word phrases
func IsValidEntity(name string) bool {
	if name == "" || len(name) <= 1 {
		return false
	}
	if stopwordEntities[name] {
		return false
	}

	// Known-good short terms skip all other filters.
	if whitelistedEntities[name] {
		return true
	}

	// Special-char prefixes: hex colors, issue refs, npm scopes, pricing,
	// globs, dotfiles, CLI flags, ports, DOM selectors.
	switch name[0] {
	case '#', '@', '$', '*', '!', '~', '.', ':', '-':
		return false
	}

	// Paths or shell commands.
	if strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return false
	}

	// Filenames with extensions (e.g. __init__.py, config.json, auth-utils.ts).
	if filenameRE.MatchString(name) {
		return false
	}

	// Medical/ICD codes (e.g. a021, j458, k25.0) and underscore variants.
	if icdShortRE.MatchString(name) {
		return false
	}
	if icdUnderscoreRE.MatchString(name) {
		return false
	}

	// Internal protocol codes (e.g. cefaleia_007, dengue_008).
	if protocolCodeRE.MatchString(name) {
		return false
	}

	// snake_case code identifiers with 3+ segments (e.g. anthropic_api_key).
	if snakeCase3RE.MatchString(name) {
		return false
	}

	// Numeric-prefixed phrases (e.g. "0 bytes data", "1 llm call").
	if numericPrefixRE.MatchString(name) {
		return false
	}

	// Version/decimal strings (e.g. "0.3", "0.75 confidence", "5.0.0").
	if versionRE.MatchString(name) {
		return false
	}

	// Dimension strings like "1400px", "800px+ width".
	if pixelRE.MatchString(name) {
		return false
	}

	// Pure numbers.
	if pureNumberRE.MatchString(name) {
		return false
	}

	// IP addresses.
	if ipAddressRE.MatchString(name) {
		return false
	}

	// Duration/measurement strings (e.g. "120 seconds", "500ms", "10mb").
	if durationRE.MatchString(name) {
		return false
	}

	// Hex strings / git hashes (e.g. "7f9ef80").
	if hexStringRE.MatchString(name) {
		return false
	}

	// Quantity phrases (e.g. "80 tests", "3 files", "10 endpoints").
	if quantityRE.MatchString(name) {
		return false
	}

	// Ordinal phrases (e.g. "7th character extensions").
	if ordinalRE.MatchString(name) {
		return false
	}

	// Fraction/ratio strings (e.g. "8/8h", "3/4").
	if fractionRE.MatchString(name) {
		return false
	}

	// CSS dimensions in phrases (e.g. "100vh", "height 280px").
	if cssDimensionRE.MatchString(name) {
		return false
	}

	// Percentage values (e.g. "100%", "50% discount").
	if strings.Contains(name, "%") {
		return false
	}

	// Code syntax fragments (e.g. "[]", "candidates[0]").
	if strings.ContainsAny(name, "[]") {
		return false
	}

	// Function calls (e.g. "express.json()").
	if strings.ContainsAny(name, "()") {
		return false
	}

	// Two-char ambiguous noise (e.g. "aa", "bp", "ct"). Well-known 2-char
	// terms already returned true via the whitelist.
	if len(name) == 2 {
		return false
	}

	// Entities should be 1-3 words; longer phrases are descriptions.
	if len(strings.Fields(name)) > 3 {
		return false
	}

	return true
}

// IsLinkableEntity is the second-level filter run before spending an external
// lookup on an entity. It reapplies the extraction-time rules, then rejects
// additional shapes that historically slipped into the triple corpus before
// the extraction filter covered them: config fragments, quoted strings,
// multi-segment paths, NxM dimensions, glob patterns, and filenames with
// extensions outside the known list.
func IsLinkableEntity(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	if whitelistedEntities[name] {
		return true
	}
	if !IsValidEntity(name) {
		return false
	}

	// Quoted strings ('hello', "world").
	if name[0] == '\'' || name[0] == '"' {
		return false
	}

	// Config fragments (key=value) and glob patterns.
	if strings.ContainsAny(name, "=*") {
		return false
	}

	// Multi-segment paths (src/components/auth). The extraction filter only
	// rejects absolute paths.
	if strings.Contains(name, "/") {
		return false
	}

	// Screen/image dimensions (1920x1080).
	if screenDimensionRE.MatchString(name) {
		return false
	}

	// Filenames with any extension, not just the enumerated ones
	// (program.exe, archive.rar).
	if anyFilenameRE.MatchString(name) {
		return false
	}

	return true
}
