package qualify

import (
	"testing"
	"time"

	"statusgen/internal/config"
	"statusgen/internal/tracker"
)

var since = time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2026, 8, d, 12, 0, 0, 0, time.UTC)
}

func entry(when time.Time, changes ...tracker.Change) tracker.HistoryEntry {
	return tracker.HistoryEntry{When: when, Changes: changes}
}

func TestNoHistory(t *testing.T) {
	v := Qualify(nil, since, config.DefaultRules())
	if v.OK || v.Reason != ReasonNoHistory {
		t.Errorf("verdict = %+v", v)
	}
}

func TestNoRecentHistory(t *testing.T) {
	h := &tracker.History{ID: 1, Entries: []tracker.HistoryEntry{
		entry(day(2), tracker.Change{Field: "status", Added: "RESOLVED"}),
	}}
	v := Qualify(h, since, config.DefaultRules())
	if v.OK || v.Reason != ReasonNoRecent {
		t.Errorf("out-of-window resolve must not qualify: %+v", v)
	}
}

func TestNoQualifyingTransition(t *testing.T) {
	h := &tracker.History{ID: 1, Entries: []tracker.HistoryEntry{
		entry(day(15), tracker.Change{Field: "priority", Removed: "P3", Added: "P1"}),
	}}
	v := Qualify(h, since, config.DefaultRules())
	if v.OK || v.Reason != ReasonNoTransition {
		t.Errorf("verdict = %+v", v)
	}
}

// A later in-window entry may still qualify: scanning must not stop at the
// first in-window entry.
func TestLaterEntryQualifies(t *testing.T) {
	h := &tracker.History{ID: 42, Entries: []tracker.HistoryEntry{
		entry(day(14), tracker.Change{Field: "assigned_to", Removed: "nobody", Added: "dev@example.org"}),
		entry(day(16),
			tracker.Change{Field: "status", Removed: "ASSIGNED", Added: "RESOLVED"},
			tracker.Change{Field: "resolution", Removed: "", Added: "FIXED"},
		),
	}}

	v := Qualify(h, since, config.DefaultRules())
	if !v.OK {
		t.Fatalf("verdict = %+v, want ok", v)
	}
	if v.Detail == nil || !v.Detail.When.Equal(day(16)) {
		t.Errorf("detail should reference the second entry: %+v", v.Detail)
	}
	if v.Detail.Field != "status" || v.Detail.Value != "RESOLVED" {
		t.Errorf("detail = %+v", v.Detail)
	}
}

func TestResolutionTransitionQualifies(t *testing.T) {
	h := &tracker.History{ID: 2, Entries: []tracker.HistoryEntry{
		entry(day(12), tracker.Change{Field: "resolution", Removed: "", Added: "FIXED"}),
	}}
	v := Qualify(h, since, config.DefaultRules())
	if !v.OK {
		t.Errorf("resolution->FIXED should qualify: %+v", v)
	}
}

func TestWindowBoundaryInclusive(t *testing.T) {
	h := &tracker.History{ID: 3, Entries: []tracker.HistoryEntry{
		entry(since, tracker.Change{Field: "status", Added: "RESOLVED"}),
	}}
	v := Qualify(h, since, config.DefaultRules())
	if !v.OK {
		t.Errorf("entry exactly at window start should count: %+v", v)
	}
}

func TestCurrentStatusIrrelevant(t *testing.T) {
	// Only the transition matters: a status change away from done inside
	// the window, with the done transition before the window, must fail.
	h := &tracker.History{ID: 4, Entries: []tracker.HistoryEntry{
		entry(day(1), tracker.Change{Field: "status", Removed: "NEW", Added: "RESOLVED"}),
		entry(day(15), tracker.Change{Field: "flagtypes.name", Added: "approval+"}),
	}}
	v := Qualify(h, since, config.DefaultRules())
	if v.OK {
		t.Errorf("pre-window resolve must not qualify: %+v", v)
	}
}

func TestAll(t *testing.T) {
	histories := map[int]tracker.History{
		1: {ID: 1, Entries: []tracker.HistoryEntry{
			entry(day(15), tracker.Change{Field: "status", Added: "RESOLVED"}),
		}},
		3: {ID: 3, Entries: []tracker.HistoryEntry{
			entry(day(15), tracker.Change{Field: "keywords", Added: "perf"}),
		}},
	}

	qualified, verdicts := All([]int{1, 2, 3}, histories, since, config.DefaultRules())

	if len(qualified) != 1 || qualified[0] != 1 {
		t.Errorf("qualified = %v", qualified)
	}
	if verdicts[2].Reason != ReasonNoHistory {
		t.Errorf("id 2 verdict = %+v, want no-history", verdicts[2])
	}
	if verdicts[3].Reason != ReasonNoTransition {
		t.Errorf("id 3 verdict = %+v", verdicts[3])
	}
}

// Order-insensitivity of the outcome: any in-window qualifying entry makes
// the verdict ok, wherever it sits in the log.
func TestOutcomeOrderInsensitive(t *testing.T) {
	qualifying := entry(day(13), tracker.Change{Field: "status", Added: "VERIFIED"})
	noise := []tracker.HistoryEntry{
		entry(day(11), tracker.Change{Field: "priority", Added: "P1"}),
		entry(day(17), tracker.Change{Field: "cc", Added: "someone"}),
	}

	layouts := [][]tracker.HistoryEntry{
		{qualifying, noise[0], noise[1]},
		{noise[0], qualifying, noise[1]},
		{noise[0], noise[1], qualifying},
	}
	for i, entries := range layouts {
		h := &tracker.History{ID: i, Entries: entries}
		if v := Qualify(h, since, config.DefaultRules()); !v.OK {
			t.Errorf("layout %d: verdict = %+v, want ok", i, v)
		}
	}
}
