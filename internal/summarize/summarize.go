// Package summarize hands the qualified set to the external summarizer. The
// summarizer is a black box: its failures propagate unmodified, with no
// pipeline-level retry or fallback text.
package summarize

import (
	"context"
)

// Item is the minimal view of a qualified candidate given to the summarizer.
type Item struct {
	ID        int      `json:"id"`
	Summary   string   `json:"summary"`
	Component string   `json:"component,omitempty"`
	PRs       []string `json:"prs,omitempty"`
}

// Request is one summarization call.
type Request struct {
	Model    string
	Voice    string
	Audience string
	Days     int
	Items    []Item
}

// Summarizer generates the narrative body of the report.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}
