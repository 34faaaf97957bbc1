package extract

import (
	"strings"
	"testing"
)

func TestBuildExtractionPrompt(t *testing.T) {
	prompt := BuildExtractionPrompt("We moved the API gateway to Envoy.")

	// OpenAI's json_object response mode rejects requests whose prompt
	// never mentions JSON.
	if !strings.Contains(prompt, "JSON array") {
		t.Error("prompt must state the JSON array output contract")
	}
	if !strings.Contains(prompt, "We moved the API gateway to Envoy.") {
		t.Error("prompt must carry the message text")
	}
	for _, def := range PredicateVocabulary {
		if !strings.Contains(prompt, def.Name+":") {
			t.Errorf("vocabulary entry %q missing from prompt", def.Name)
		}
	}
}
