// Package pipeline implements the status generation workflow: an ordered
// step recipe run over a shared context by a small engine.
package pipeline

import (
	"context"
	"time"

	"statusgen/internal/config"
	"statusgen/internal/logging"
	"statusgen/internal/qualify"
	"statusgen/internal/summarize"
	"statusgen/internal/tracker"
)

// Params are the caller-supplied inputs for one run.
type Params struct {
	Filters tracker.FilterSet `json:"filters"`
	// IDs switches the recipe to pre-qualified mode.
	IDs      []int  `json:"ids,omitempty"`
	Days     int    `json:"days"`
	Model    string `json:"model,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Audience string `json:"audience,omitempty"`
	Format   string `json:"format,omitempty"` // "md" or "html"
}

// Enricher adds merged-PR context to qualified items.
type Enricher interface {
	MergedPRTitles(ctx context.Context, id int) ([]string, error)
}

// Notifier receives run progress. All methods must be cheap; they are called
// from the hot path. A nil Notifier on the Context is valid.
type Notifier interface {
	PhaseStart(label string)
	PhaseEnd(label string, failed bool)
	Progress(label string, current, total int)
	Info(msg string)
	Warn(msg string)
}

// Deps are the collaborators a run needs. Optional fields may be nil; the
// recipe builder omits the steps that would use them.
type Deps struct {
	Primary    tracker.Source
	Secondary  tracker.Source
	Enricher   Enricher
	Summarizer summarize.Summarizer
	Rules      config.Rules
	Logger     *logging.Logger

	Workers       int
	MaxSummarized int

	// SearchURL builds the upstream deep link for the empty output.
	SearchURL func(filters tracker.FilterSet, since time.Time) string
	// ItemURL builds a per-item link for the rendered id list.
	ItemURL func(id int) string
}

// Context is the mutable state of one pipeline run. Exactly one run owns it;
// it is never shared across concurrent runs.
type Context struct {
	Params Params
	Deps   Deps
	Notify Notifier

	Since      time.Time
	Candidates []tracker.Candidate // eligible, deduplicated
	Restricted []tracker.Candidate
	Histories  map[int]tracker.History
	Qualified  []int
	Verdicts   map[int]qualify.Verdict

	// SummarySet is the capped slice actually given to the summarizer.
	SummarySet   []tracker.Candidate
	TrimmedCount int
	Enrichment   map[int][]string

	Summary string
	Output  string
	HTML    string
}

// NewContext creates a run context.
func NewContext(params Params, deps Deps, notify Notifier) *Context {
	if params.Days <= 0 {
		params.Days = 7
	}
	if deps.Workers <= 0 {
		deps.Workers = tracker.DefaultHistoryWorkers
	}
	if deps.MaxSummarized <= 0 {
		deps.MaxSummarized = 50
	}
	return &Context{
		Params:     params,
		Deps:       deps,
		Notify:     notify,
		Histories:  make(map[int]tracker.History),
		Verdicts:   make(map[int]qualify.Verdict),
		Enrichment: make(map[int][]string),
	}
}

// candidateByID finds a candidate in the eligible set.
func (rc *Context) candidateByID(id int) (tracker.Candidate, bool) {
	for _, c := range rc.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return tracker.Candidate{}, false
}

func (rc *Context) info(msg string) {
	if rc.Notify != nil {
		rc.Notify.Info(msg)
	}
}

func (rc *Context) warn(msg string) {
	if rc.Notify != nil {
		rc.Notify.Warn(msg)
	}
}

func (rc *Context) progress(label string, current, total int) {
	if rc.Notify != nil {
		rc.Notify.Progress(label, current, total)
	}
}
