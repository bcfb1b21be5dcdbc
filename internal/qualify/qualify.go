// Package qualify implements the time-windowed transition check: did this
// candidate genuinely become done inside the reporting window, according to
// its own change log?
package qualify

import (
	"time"

	"statusgen/internal/config"
	"statusgen/internal/tracker"
)

// Reason explains a rejection. An empty reason means the candidate qualified.
type Reason string

const (
	// ReasonNoHistory: no change log was fetched for the candidate. This
	// is distinct from having a log that doesn't qualify.
	ReasonNoHistory Reason = "no history"
	// ReasonNoRecent: the log has no entries inside the window.
	ReasonNoRecent Reason = "no recent history in window"
	// ReasonNoTransition: in-window entries exist but none moves the
	// candidate to done.
	ReasonNoTransition Reason = "no qualifying transition"
)

// Detail records which change matched, for diagnostics.
type Detail struct {
	Field string    `json:"field"`
	Value string    `json:"value"`
	When  time.Time `json:"when"`
}

// Verdict is the outcome for one candidate.
type Verdict struct {
	OK     bool    `json:"ok"`
	Reason Reason  `json:"reason,omitempty"`
	Detail *Detail `json:"detail,omitempty"`
}

// Qualify checks a single candidate's history against the window. Pass nil
// history when none was fetched. Every in-window entry is scanned: an early
// entry that doesn't qualify never short-circuits a later one that does.
func Qualify(history *tracker.History, since time.Time, rules config.Rules) Verdict {
	if history == nil {
		return Verdict{Reason: ReasonNoHistory}
	}

	var inWindow []tracker.HistoryEntry
	for _, entry := range history.Entries {
		if !entry.When.Before(since) {
			inWindow = append(inWindow, entry)
		}
	}
	if len(inWindow) == 0 {
		return Verdict{Reason: ReasonNoRecent}
	}

	for _, entry := range inWindow {
		for _, change := range entry.Changes {
			if rules.IsDoneStatus(change.Field, change.Added) || rules.IsResolved(change.Field, change.Added) {
				return Verdict{OK: true, Detail: &Detail{
					Field: change.Field,
					Value: change.Added,
					When:  entry.When,
				}}
			}
		}
	}
	return Verdict{Reason: ReasonNoTransition}
}

// All qualifies a candidate id list in order. Candidates without a fetched
// history get ReasonNoHistory. Returns qualified ids in input order plus the
// per-id verdicts for diagnostics.
func All(ids []int, histories map[int]tracker.History, since time.Time, rules config.Rules) ([]int, map[int]Verdict) {
	verdicts := make(map[int]Verdict, len(ids))
	var qualified []int
	for _, id := range ids {
		var h *tracker.History
		if hist, ok := histories[id]; ok {
			h = &hist
		}
		v := Qualify(h, since, rules)
		verdicts[id] = v
		if v.OK {
			qualified = append(qualified, id)
		}
	}
	return qualified, verdicts
}
