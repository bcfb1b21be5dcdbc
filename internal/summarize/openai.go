package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"statusgen/internal/errors"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
)

// OpenAIClient is a chat-completions Summarizer.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	presets Presets
}

// NewOpenAIClient creates a summarizer client. baseURL is overridable for
// tests and compatible gateways.
func NewOpenAIClient(apiKey, baseURL string, presets Presets) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		presets: presets,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Summarize implements Summarizer.
func (c *OpenAIClient) Summarize(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", errors.New(errors.MissingCredentials, "OPENAI_API_KEY is not set", nil)
	}
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	payload, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: c.presets.SystemPrompt(req.Voice, req.Audience)},
			{Role: "user", Content: buildUserPrompt(req)},
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.New(errors.SummarizerFailed, "summarizer request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New(errors.SummarizerFailed, "read summarizer response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.New(errors.SummarizerFailed,
			fmt.Sprintf("summarizer returned status %d with unparseable body", resp.StatusCode), err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("summarizer returned status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = fmt.Sprintf("%s: %s", msg, parsed.Error.Message)
		}
		return "", errors.New(errors.SummarizerFailed, msg, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New(errors.SummarizerFailed, "summarizer returned no choices", nil)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize what this team shipped in the last %d days.\n", req.Days)
	b.WriteString("Group related work, lead with user-visible impact, keep it brief.\n\nItems:\n")
	for _, item := range req.Items {
		fmt.Fprintf(&b, "- #%d", item.ID)
		if item.Component != "" {
			fmt.Fprintf(&b, " [%s]", item.Component)
		}
		fmt.Fprintf(&b, " %s\n", item.Summary)
		for _, pr := range item.PRs {
			fmt.Fprintf(&b, "  - PR: %s\n", pr)
		}
	}
	return b.String()
}
