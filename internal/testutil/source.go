// Package testutil provides scripted tracker fakes for tests that exercise
// the pipeline end to end without network access.
package testutil

import (
	"context"
	"fmt"
	"time"

	"statusgen/internal/summarize"
	"statusgen/internal/tracker"
)

// FakeSource is a scripted tracker.Source.
type FakeSource struct {
	SourceName string
	ByFilter   []tracker.Candidate
	ByIDs      map[int]tracker.Candidate
	Histories  map[int]tracker.History

	// FilterErr makes every FetchByFilter call fail.
	FilterErr error
}

// Name implements tracker.Source.
func (f *FakeSource) Name() string {
	if f.SourceName == "" {
		return "fake"
	}
	return f.SourceName
}

// FetchByFilter implements tracker.Source.
func (f *FakeSource) FetchByFilter(_ context.Context, _ tracker.FilterSet, _ time.Time) ([]tracker.Candidate, error) {
	if f.FilterErr != nil {
		return nil, f.FilterErr
	}
	return f.ByFilter, nil
}

// FetchByIDs implements tracker.Source.
func (f *FakeSource) FetchByIDs(_ context.Context, ids []int) ([]tracker.Candidate, error) {
	var out []tracker.Candidate
	for _, id := range ids {
		if c, ok := f.ByIDs[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// FetchHistory implements tracker.Source.
func (f *FakeSource) FetchHistory(_ context.Context, id int) (tracker.History, bool, error) {
	h, ok := f.Histories[id]
	return h, ok, nil
}

// ResolvedHistory builds a single-entry history with a status transition to
// RESOLVED at the given time.
func ResolvedHistory(id int, when time.Time) tracker.History {
	return tracker.History{ID: id, Entries: []tracker.HistoryEntry{{
		When:    when,
		Changes: []tracker.Change{{Field: "status", Removed: "ASSIGNED", Added: "RESOLVED"}},
	}}}
}

// FakeSummarizer returns a canned summary and records the last request.
type FakeSummarizer struct {
	LastReq summarize.Request
	Text    string
	Err     error
}

// Summarize implements summarize.Summarizer.
func (f *FakeSummarizer) Summarize(_ context.Context, req summarize.Request) (string, error) {
	f.LastReq = req
	if f.Err != nil {
		return "", f.Err
	}
	if f.Text != "" {
		return f.Text, nil
	}
	return fmt.Sprintf("Shipped %d things.", len(req.Items)), nil
}
