package logging

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this one is definitely too long", 10, "this one i..."},
		{"line one\nline two", 20, "line one line two"},
		{"  padded  ", 20, "padded"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
