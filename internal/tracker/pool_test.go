package tracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"statusgen/internal/logging"
)

// scriptedSource serves canned histories and fails specific ids.
type scriptedSource struct {
	mu        sync.Mutex
	histories map[int]History
	failIDs   map[int]bool
	missing   map[int]bool
	inFlight  int32
	maxSeen   int32
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) FetchByFilter(context.Context, FilterSet, time.Time) ([]Candidate, error) {
	return nil, nil
}

func (s *scriptedSource) FetchByIDs(context.Context, []int) ([]Candidate, error) {
	return nil, nil
}

func (s *scriptedSource) FetchHistory(_ context.Context, id int) (History, bool, error) {
	cur := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		max := atomic.LoadInt32(&s.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&s.maxSeen, max, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[id] {
		return History{}, false, fmt.Errorf("boom for %d", id)
	}
	if s.missing[id] {
		return History{}, false, nil
	}
	return s.histories[id], true, nil
}

func TestFetchHistoriesSkipsFailures(t *testing.T) {
	src := &scriptedSource{
		histories: map[int]History{},
		failIDs:   map[int]bool{3: true, 7: true},
		missing:   map[int]bool{5: true},
	}
	var ids []int
	for i := 1; i <= 10; i++ {
		ids = append(ids, i)
		if !src.failIDs[i] && !src.missing[i] {
			src.histories[i] = History{ID: i}
		}
	}

	result := FetchHistories(context.Background(), src, ids, 4, logging.Discard(), nil)

	if len(result.Histories) != 7 {
		t.Errorf("histories = %d, want 7", len(result.Histories))
	}
	if len(result.Failed) != 2 {
		t.Errorf("failed = %v, want 2 entries", result.Failed)
	}
	if _, ok := result.Histories[5]; ok {
		t.Error("missing history must not produce an entry")
	}
	if _, ok := result.Histories[3]; ok {
		t.Error("failed fetch must not produce an entry")
	}
}

func TestFetchHistoriesBoundsConcurrency(t *testing.T) {
	src := &scriptedSource{histories: map[int]History{}}
	var ids []int
	for i := 0; i < 40; i++ {
		ids = append(ids, i)
		src.histories[i] = History{ID: i}
	}

	FetchHistories(context.Background(), src, ids, 4, logging.Discard(), nil)

	if max := atomic.LoadInt32(&src.maxSeen); max > 4 {
		t.Errorf("observed %d concurrent fetches, bound is 4", max)
	}
}

func TestFetchHistoriesProgress(t *testing.T) {
	src := &scriptedSource{histories: map[int]History{1: {ID: 1}, 2: {ID: 2}}}

	var mu sync.Mutex
	var calls []int
	FetchHistories(context.Background(), src, []int{1, 2}, 2, logging.Discard(), func(done, total int) {
		mu.Lock()
		calls = append(calls, done)
		mu.Unlock()
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	})

	if len(calls) != 2 {
		t.Errorf("progress called %d times, want 2", len(calls))
	}
}

func TestFetchHistoriesEmptyInput(t *testing.T) {
	src := &scriptedSource{}
	result := FetchHistories(context.Background(), src, nil, 8, logging.Discard(), nil)
	if len(result.Histories) != 0 || len(result.Failed) != 0 {
		t.Errorf("empty input should yield empty result: %+v", result)
	}
}
