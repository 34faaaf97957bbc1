package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// rawEntry mirrors one line of a Claude Code JSONL transcript. Content is
// either a plain string or a list of typed blocks; only text blocks carry
// extractable prose.
type rawEntry struct {
	Type       string `json:"type"`
	UUID       string `json:"uuid"`
	ParentUUID string `json:"parentUuid"`
	SessionID  string `json:"sessionId"`
	Timestamp  string `json:"timestamp"`
	Message    struct {
		Content json.RawMessage `json:"content"`
		Model   string          `json:"model"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ReadTranscript parses a Claude Code JSONL transcript into messages.
// Malformed lines and non-conversational events (tool results, summaries,
// progress) are skipped, matching how the hook-side reader behaves.
func ReadTranscript(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()
	return parseTranscript(f)
}

func parseTranscript(r io.Reader) ([]Message, error) {
	scanner := bufio.NewScanner(r)
	// Assistant turns can run long; the default 64K token limit is not
	// enough for real transcripts.
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var messages []Message
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry rawEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Type != "user" && entry.Type != "assistant" {
			continue
		}

		msg := Message{
			ID:        entry.UUID,
			ParentID:  entry.ParentUUID,
			Role:      entry.Type,
			SessionID: entry.SessionID,
			Model:     entry.Message.Model,
			Text:      flattenContent(entry.Message.Content),
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if entry.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
				msg.Timestamp = ts
			}
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript line %d: %w", lineNo, err)
	}
	return messages, nil
}

// flattenContent joins the text of a content payload. String payloads pass
// through; block lists keep plain strings and text blocks, dropping
// thinking and tool blocks.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var texts []string
	for _, b := range blocks {
		var str string
		if err := json.Unmarshal(b, &str); err == nil {
			texts = append(texts, str)
			continue
		}
		var block contentBlock
		if err := json.Unmarshal(b, &block); err != nil {
			continue
		}
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// LastAssistantText returns the final assistant message of a transcript,
// which is what the realtime hook extracts from. Returns ok=false when the
// transcript has no assistant text at all.
func LastAssistantText(path string) (Message, bool, error) {
	messages, err := ReadTranscript(path)
	if err != nil {
		return Message{}, false, err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsAssistant() && messages[i].Text != "" {
			return messages[i], true, nil
		}
	}
	return Message{}, false, nil
}

// SessionID returns the transcript's session identifier: the first one any
// entry carries, or the file's base name without extension as a fallback.
func SessionID(messages []Message, path string) string {
	for _, m := range messages {
		if m.SessionID != "" {
			return m.SessionID
		}
	}
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".jsonl")
}
