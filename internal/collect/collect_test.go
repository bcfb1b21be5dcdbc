package collect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"statusgen/internal/config"
	"statusgen/internal/logging"
	"statusgen/internal/tracker"
)

// fakeSource returns fixed candidates per filter dimension.
type fakeSource struct {
	name        string
	byComponent []tracker.Candidate
	byTag       []tracker.Candidate
	byAssignee  []tracker.Candidate
	children    map[int][]int
	byID        map[int]tracker.Candidate
	failAll     bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchByFilter(_ context.Context, filters tracker.FilterSet, _ time.Time) ([]tracker.Candidate, error) {
	if f.failAll {
		return nil, fmt.Errorf("%s is down", f.name)
	}
	switch {
	case len(filters.Components) > 0:
		return f.byComponent, nil
	case len(filters.Whiteboards) > 0:
		return f.byTag, nil
	case len(filters.Assignees) > 0:
		return f.byAssignee, nil
	}
	return nil, nil
}

func (f *fakeSource) FetchByIDs(_ context.Context, ids []int) ([]tracker.Candidate, error) {
	if f.failAll {
		return nil, fmt.Errorf("%s is down", f.name)
	}
	var out []tracker.Candidate
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchHistory(context.Context, int) (tracker.History, bool, error) {
	return tracker.History{}, false, nil
}

func (f *fakeSource) ExpandMeta(_ context.Context, id int) ([]int, error) {
	if f.failAll {
		return nil, fmt.Errorf("%s is down", f.name)
	}
	return f.children[id], nil
}

func cand(id int, source string, groups ...string) tracker.Candidate {
	return tracker.Candidate{ID: id, Summary: fmt.Sprintf("item %d", id), Groups: groups, Source: source}
}

func newCollector(sources ...tracker.Source) *Collector {
	return &Collector{Sources: sources, Rules: config.DefaultRules(), Logger: logging.Discard()}
}

func TestCollectDedupsAcrossQueries(t *testing.T) {
	// #42 comes back from both the by-component and the by-tag query.
	src := &fakeSource{
		name:        "bugzilla",
		byComponent: []tracker.Candidate{cand(42, "bugzilla"), cand(43, "bugzilla")},
		byTag:       []tracker.Candidate{cand(42, "bugzilla"), cand(44, "bugzilla")},
	}
	c := newCollector(src)

	result, err := c.Collect(context.Background(), tracker.FilterSet{
		Components:  []string{"DOM"},
		Whiteboards: []string{"[fxperf]"},
	}, time.Now())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if len(result.Union) != 3 {
		t.Fatalf("union = %d, want 3 (42 deduped)", len(result.Union))
	}
	counts := map[int]int{}
	for _, c := range result.Union {
		counts[c.ID]++
	}
	if counts[42] != 1 {
		t.Errorf("id 42 appears %d times", counts[42])
	}
	if result.RawCount != 4 {
		t.Errorf("raw = %d, want 4", result.RawCount)
	}
}

func TestCollectFirstOccurrenceWinsDeterministically(t *testing.T) {
	// Both sources return id 10 with different summaries. The declared
	// source order decides the winner.
	a := &fakeSource{name: "a", byComponent: []tracker.Candidate{
		{ID: 10, Summary: "from a", Source: "a"},
	}}
	b := &fakeSource{name: "b", byComponent: []tracker.Candidate{
		{ID: 10, Summary: "from b", Source: "b"},
	}}

	for i := 0; i < 5; i++ {
		result, err := newCollector(a, b).Collect(context.Background(),
			tracker.FilterSet{Components: []string{"X"}}, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Union) != 1 || result.Union[0].Summary != "from a" {
			t.Fatalf("run %d: first-declared source must win, got %+v", i, result.Union)
		}
	}

	// Reordering sources changes the winning copy but not the id set.
	result, err := newCollector(b, a).Collect(context.Background(),
		tracker.FilterSet{Components: []string{"X"}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Union) != 1 || result.Union[0].Summary != "from b" {
		t.Errorf("reordered: got %+v", result.Union)
	}
}

func TestCollectPartition(t *testing.T) {
	src := &fakeSource{
		name: "bugzilla",
		byComponent: []tracker.Candidate{
			cand(1, "bugzilla"),
			cand(2, "bugzilla", "firefox-core-security"),
			cand(3, "bugzilla", "helpwanted"),
		},
	}

	result, err := newCollector(src).Collect(context.Background(),
		tracker.FilterSet{Components: []string{"DOM"}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Restricted) != 1 || result.Restricted[0].ID != 2 {
		t.Errorf("restricted = %+v", result.Restricted)
	}
	if len(result.Eligible) != 2 {
		t.Errorf("eligible = %+v", result.Eligible)
	}
	// Partition completeness: restricted ∪ eligible == union.
	if len(result.Restricted)+len(result.Eligible) != len(result.Union) {
		t.Error("partition does not cover the union")
	}
}

func TestCollectMetaExpansion(t *testing.T) {
	src := &fakeSource{
		name:     "bugzilla",
		children: map[int][]int{100: {101, 102}},
		byID: map[int]tracker.Candidate{
			101: cand(101, "bugzilla"),
			102: cand(102, "bugzilla"),
		},
	}

	result, err := newCollector(src).Collect(context.Background(),
		tracker.FilterSet{MetaBugs: []int{100}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Union) != 2 {
		t.Errorf("union = %+v, want children of meta 100", result.Union)
	}
}

func TestCollectPartialFailureDegrades(t *testing.T) {
	up := &fakeSource{name: "up", byComponent: []tracker.Candidate{cand(1, "up")}}
	down := &fakeSource{name: "down", failAll: true}

	result, err := newCollector(up, down).Collect(context.Background(),
		tracker.FilterSet{Components: []string{"X"}}, time.Now())
	if err != nil {
		t.Fatalf("one healthy source should be enough: %v", err)
	}
	if len(result.Union) != 1 {
		t.Errorf("union = %+v", result.Union)
	}
}

func TestCollectAllFailed(t *testing.T) {
	down := &fakeSource{name: "down", failAll: true}
	_, err := newCollector(down).Collect(context.Background(),
		tracker.FilterSet{Components: []string{"X"}}, time.Now())
	if err == nil {
		t.Fatal("all queries failing should surface an error")
	}
}

func TestCollectNoFilters(t *testing.T) {
	src := &fakeSource{name: "bugzilla"}
	result, err := newCollector(src).Collect(context.Background(), tracker.FilterSet{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Union) != 0 {
		t.Errorf("no filters should issue no queries: %+v", result)
	}
}
