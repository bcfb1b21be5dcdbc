// Package tracker defines the work-item data model shared by all source
// connectors, and the bulk history fetch pool.
package tracker

import (
	"context"
	"time"
)

// Candidate is a work item fetched from an upstream tracker, not yet
// confirmed to qualify. Candidates are ephemeral: fetched fresh each run,
// never persisted.
type Candidate struct {
	ID         int       `json:"id"`
	Summary    string    `json:"summary"`
	Product    string    `json:"product,omitempty"`
	Component  string    `json:"component,omitempty"`
	Status     string    `json:"status"`
	Resolution string    `json:"resolution,omitempty"`
	LastChange time.Time `json:"lastChangeTime"`
	// Groups are the upstream's restriction tags (security, confidential).
	Groups   []string `json:"groups,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
	// Source names the connector that produced this copy.
	Source string `json:"source,omitempty"`
}

// Change is one field transition inside a history entry.
type Change struct {
	Field   string `json:"field"`
	Removed string `json:"removed"`
	Added   string `json:"added"`
}

// HistoryEntry is one timestamped batch of changes.
type HistoryEntry struct {
	When    time.Time `json:"when"`
	Changes []Change  `json:"changes"`
}

// History is the ordered change log for one candidate.
type History struct {
	ID      int            `json:"id"`
	Entries []HistoryEntry `json:"entries"`
}

// FilterSet describes one collection request. Empty slices mean "no query of
// that kind".
type FilterSet struct {
	Components  []string `json:"components,omitempty"`
	Whiteboards []string `json:"whiteboards,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
	// MetaBugs are expanded into their children; the children become the
	// explicit-id query.
	MetaBugs []int `json:"metabugs,omitempty"`
}

// Empty reports whether no filter of any kind was supplied.
func (f FilterSet) Empty() bool {
	return len(f.Components) == 0 && len(f.Whiteboards) == 0 &&
		len(f.Assignees) == 0 && len(f.MetaBugs) == 0
}

// Source is the connector contract. All reads go through the response cache;
// implementations must honor ctx deadlines on every outbound call.
type Source interface {
	Name() string
	// FetchByFilter returns candidates matching the filters changed since
	// the given time.
	FetchByFilter(ctx context.Context, filters FilterSet, since time.Time) ([]Candidate, error)
	// FetchByIDs returns candidates for explicit ids, chunked upstream.
	FetchByIDs(ctx context.Context, ids []int) ([]Candidate, error)
	// FetchHistory returns the change log for one candidate. ok=false
	// means the upstream has no history for the id, which is distinct
	// from an error.
	FetchHistory(ctx context.Context, id int) (History, bool, error)
}

// MetaExpander is implemented by sources that can expand a meta item into
// its children ids.
type MetaExpander interface {
	ExpandMeta(ctx context.Context, id int) ([]int, error)
}
