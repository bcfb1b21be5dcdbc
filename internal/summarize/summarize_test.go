package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"statusgen/internal/errors"
)

func TestOpenAISummarize(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "  We shipped things.  "}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, DefaultPresets())
	out, err := c.Summarize(context.Background(), Request{
		Model: "gpt-4o",
		Days:  7,
		Items: []Item{{ID: 42, Summary: "Fix the frob", Component: "Core::DOM"}},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "We shipped things." {
		t.Errorf("output = %q", out)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || !strings.Contains(gotReq.Messages[1].Content, "#42") {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestOpenAIErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "model not found", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, DefaultPresets())
	_, err := c.Summarize(context.Background(), Request{Days: 7})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.CodeOf(err) != errors.SummarizerFailed {
		t.Errorf("code = %s", errors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("upstream message lost: %v", err)
	}
}

func TestOpenAIMissingKey(t *testing.T) {
	c := NewOpenAIClient("", "", DefaultPresets())
	_, err := c.Summarize(context.Background(), Request{})
	if errors.CodeOf(err) != errors.MissingCredentials {
		t.Errorf("code = %v", err)
	}
}

func TestPresetsSystemPrompt(t *testing.T) {
	p := DefaultPresets()

	prompt := p.SystemPrompt("casual", "exec")
	if !strings.Contains(prompt, "conversational") || !strings.Contains(prompt, "executive") {
		t.Errorf("prompt = %q", prompt)
	}

	// Unknown values fall back to neutral.
	fallback := p.SystemPrompt("piratespeak", "aliens")
	if !strings.Contains(fallback, "neutral") {
		t.Errorf("fallback prompt = %q", fallback)
	}
}

func TestLoadPresetsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	content := `
[voices]
pirate = "Write like a pirate."

[audiences]
exec = "The reader is the CEO."
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if !strings.Contains(p.SystemPrompt("pirate", ""), "pirate") {
		t.Error("new voice not merged")
	}
	if !strings.Contains(p.SystemPrompt("", "exec"), "CEO") {
		t.Error("audience override not applied")
	}
	// Defaults survive the overlay.
	if !strings.Contains(p.SystemPrompt("casual", ""), "conversational") {
		t.Error("default voice lost")
	}
}
