// Package ingest reads AI assistant conversation transcripts. The only
// wire format today is Claude Code session logs: JSONL files where each
// line is one event, user and assistant turns carry a message payload, and
// assistant content arrives as a list of typed blocks.
package ingest

import "time"

// Message is one conversational turn, normalized across transcript
// formats.
type Message struct {
	ID        string // stable message identifier from the transcript
	ParentID  string // threading parent, empty at conversation roots
	Role      string // "user" or "assistant"
	Text      string // concatenated text content; tool noise stripped
	SessionID string
	Model     string // assistant turns only
	Timestamp time.Time
}

// IsAssistant reports whether the message is an assistant turn.
func (m Message) IsAssistant() bool {
	return m.Role == "assistant"
}
