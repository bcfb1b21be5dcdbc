// Package paging exposes the collector and qualifier as three separately
// callable operations so a remote caller can drive a report incrementally:
// discover the candidate set cheaply, qualify it page by page, then finalize
// the ids it kept. The caller cancels by simply not asking for the next page.
package paging

import (
	"context"
	"time"

	"statusgen/internal/collect"
	"statusgen/internal/config"
	"statusgen/internal/errors"
	"statusgen/internal/logging"
	"statusgen/internal/pipeline"
	"statusgen/internal/qualify"
	"statusgen/internal/summarize"
	"statusgen/internal/tracker"
)

// DefaultPageSize bounds a page when the caller doesn't say.
const DefaultPageSize = 50

// Protocol holds the collaborators shared by all three operations.
type Protocol struct {
	// Sources in declared order; dedup keeps the first copy of an id.
	Sources    []tracker.Source
	Rules      config.Rules
	Logger     *logging.Logger
	Summarizer summarize.Summarizer
	Enricher   pipeline.Enricher

	Workers       int
	MaxSummarized int

	SearchURL func(filters tracker.FilterSet, since time.Time) string
	ItemURL   func(id int) string
}

// SlimCandidate is the discovery response view: enough for a client to show
// a list and drive paging, nothing more.
type SlimCandidate struct {
	ID         int       `json:"id"`
	LastChange time.Time `json:"lastChangeTime"`
	Product    string    `json:"project,omitempty"`
	Component  string    `json:"component,omitempty"`
}

// DiscoverResult is the cheap first step: candidates without histories.
type DiscoverResult struct {
	Since      time.Time       `json:"sinceISO"`
	Total      int             `json:"total"`
	Candidates []SlimCandidate `json:"candidates"`
}

// PageResult carries one qualified slice. NextCursor is nil once the walk
// has reached the end of the candidate list.
type PageResult struct {
	QualifiedIDs []int `json:"qualifiedIds"`
	NextCursor   *int  `json:"nextCursor,omitempty"`
	Total        int   `json:"total"`
}

// Stats summarizes a finalized run.
type Stats struct {
	Total     int `json:"total"`
	Qualified int `json:"qualified"`
	Trimmed   int `json:"trimmed"`
}

// FinalizeResult is the rendered report.
type FinalizeResult struct {
	Output string `json:"output"`
	HTML   string `json:"html,omitempty"`
	Stats  Stats  `json:"stats"`
}

// ReportOptions are the summarizer and formatting knobs for finalize.
type ReportOptions struct {
	Days     int
	Model    string
	Voice    string
	Audience string
	Format   string
}

func (p *Protocol) since(days int) time.Time {
	if days <= 0 {
		days = 7
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

func (p *Protocol) collector() *collect.Collector {
	return &collect.Collector{Sources: p.Sources, Rules: p.Rules, Logger: p.Logger}
}

// Discover runs collection only. No history is fetched, which keeps the
// call cheap enough to repeat on every page request.
func (p *Protocol) Discover(ctx context.Context, filters tracker.FilterSet, days int) (DiscoverResult, error) {
	since := p.since(days)
	eligible, err := p.eligible(ctx, filters, since)
	if err != nil {
		return DiscoverResult{}, err
	}

	slim := make([]SlimCandidate, len(eligible))
	for i, c := range eligible {
		slim[i] = SlimCandidate{
			ID:         c.ID,
			LastChange: c.LastChange,
			Product:    c.Product,
			Component:  c.Component,
		}
	}
	return DiscoverResult{Since: since, Total: len(slim), Candidates: slim}, nil
}

// Page qualifies the slice [cursor, cursor+pageSize) of the eligible list.
// The candidate list is re-derived from the filters so the protocol stays
// stateless; collection determinism makes the slices line up across calls.
func (p *Protocol) Page(ctx context.Context, filters tracker.FilterSet, days, cursor, pageSize int) (PageResult, error) {
	if cursor < 0 {
		return PageResult{}, errors.New(errors.InvalidRequest, "cursor must be non-negative", nil)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	since := p.since(days)
	eligible, err := p.eligible(ctx, filters, since)
	if err != nil {
		return PageResult{}, err
	}

	total := len(eligible)
	result := PageResult{Total: total}
	if cursor >= total {
		return result, nil
	}

	end := cursor + pageSize
	if end > total {
		end = total
	}
	slice := eligible[cursor:end]

	histories := p.fetchHistories(ctx, slice)
	ids := make([]int, len(slice))
	for i, c := range slice {
		ids[i] = c.ID
	}
	qualified, _ := qualify.All(ids, histories, since, p.Rules)
	result.QualifiedIDs = qualified

	if end < total {
		next := end
		result.NextCursor = &next
	}
	return result, nil
}

// Finalize re-fetches minimal metadata for the ids the caller kept, then
// summarizes and formats. An empty id list yields the canned empty report.
func (p *Protocol) Finalize(ctx context.Context, ids []int, filters tracker.FilterSet, opts ReportOptions) (FinalizeResult, error) {
	params := pipeline.Params{
		Filters:  filters,
		IDs:      ids,
		Days:     opts.Days,
		Model:    opts.Model,
		Voice:    opts.Voice,
		Audience: opts.Audience,
		Format:   opts.Format,
	}
	deps := pipeline.Deps{
		Primary:       p.primary(),
		Enricher:      p.Enricher,
		Summarizer:    p.Summarizer,
		Rules:         p.Rules,
		Logger:        p.Logger,
		Workers:       p.Workers,
		MaxSummarized: p.MaxSummarized,
		SearchURL:     p.SearchURL,
		ItemURL:       p.ItemURL,
	}
	rc := pipeline.NewContext(params, deps, nil)

	var steps []pipeline.Step
	if len(ids) == 0 {
		// No ids survived paging: skip straight to the empty report.
		steps = pipeline.EmptyRecipe()
	} else {
		steps = pipeline.BuildRecipe(params, deps)
	}
	if _, err := pipeline.Run(ctx, steps, rc); err != nil {
		return FinalizeResult{}, err
	}

	return FinalizeResult{
		Output: rc.Output,
		HTML:   rc.HTML,
		Stats: Stats{
			Total:     len(ids),
			Qualified: len(rc.Qualified),
			Trimmed:   rc.TrimmedCount,
		},
	}, nil
}

// Oneshot walks the whole protocol internally for callers that don't need
// incremental progress: discover, every page, finalize.
func (p *Protocol) Oneshot(ctx context.Context, filters tracker.FilterSet, opts ReportOptions) (FinalizeResult, error) {
	discovered, err := p.Discover(ctx, filters, opts.Days)
	if err != nil {
		return FinalizeResult{}, err
	}

	var qualified []int
	cursor := 0
	for {
		page, err := p.Page(ctx, filters, opts.Days, cursor, DefaultPageSize)
		if err != nil {
			return FinalizeResult{}, err
		}
		qualified = append(qualified, page.QualifiedIDs...)
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	result, err := p.Finalize(ctx, qualified, filters, opts)
	if err != nil {
		return FinalizeResult{}, err
	}
	result.Stats.Total = discovered.Total
	return result, nil
}

// eligible collects and returns the deduplicated eligible list in its
// deterministic order.
func (p *Protocol) eligible(ctx context.Context, filters tracker.FilterSet, since time.Time) ([]tracker.Candidate, error) {
	result, err := p.collector().Collect(ctx, filters, since)
	if err != nil {
		return nil, err
	}
	return result.Eligible, nil
}

// fetchHistories routes each candidate's history request to the source that
// produced it, pooling per source.
func (p *Protocol) fetchHistories(ctx context.Context, slice []tracker.Candidate) map[int]tracker.History {
	bySource := make(map[string][]int)
	for _, c := range slice {
		bySource[c.Source] = append(bySource[c.Source], c.ID)
	}

	histories := make(map[int]tracker.History, len(slice))
	for name, ids := range bySource {
		src := p.sourceFor(name)
		if src == nil {
			p.Logger.Warn("No source for candidates", map[string]interface{}{
				"source": name,
				"count":  len(ids),
			})
			continue
		}
		result := tracker.FetchHistories(ctx, src, ids, p.Workers, p.Logger, nil)
		for id, h := range result.Histories {
			histories[id] = h
		}
	}
	return histories
}

func (p *Protocol) sourceFor(name string) tracker.Source {
	for _, s := range p.Sources {
		if s.Name() == name {
			return s
		}
	}
	return p.primary()
}

func (p *Protocol) primary() tracker.Source {
	if len(p.Sources) == 0 {
		return nil
	}
	return p.Sources[0]
}
