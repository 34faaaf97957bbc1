// Package logging is the pipeline's thin logging layer: a shared subsystem
// prefix convention plus a DEBUG gate, so hook-invoked runs stay quiet by
// default.
package logging

import (
	"log"
	"os"
	"strings"
)

var debugEnabled = os.Getenv("DEBUG") == "true"

// Info logs a message that is always shown, prefixed with its subsystem
// ("extract", "linker", "pipeline", ...).
func Info(subsystem, format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
}

// Warn logs a recoverable problem. Always shown.
func Warn(subsystem, format string, args ...any) {
	log.Printf("[%s] warn: "+format, append([]any{subsystem}, args...)...)
}

// Debug logs only when DEBUG=true is set in the environment.
func Debug(subsystem, format string, args ...any) {
	if debugEnabled {
		log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
	}
}

// Truncate flattens s to one line and caps it at maxLen for log output.
func Truncate(s string, maxLen int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
