package tracker

import (
	"context"
	"sync"

	"statusgen/internal/logging"
)

// DefaultHistoryWorkers bounds concurrent history fetches so a batch never
// overwhelms a rate-limited upstream.
const DefaultHistoryWorkers = 8

// HistoryResult is the outcome of a bulk history fetch.
type HistoryResult struct {
	// Histories holds an entry only for ids the upstream returned history
	// for. Absence is a distinct qualification-rejection reason and must
	// not be conflated with an empty history.
	Histories map[int]History
	// Failed lists ids whose fetch errored. Coverage degrades,
	// availability does not.
	Failed []int
}

// FetchHistories fetches change logs for many ids through a fixed-size worker
// pool. A single id's failure is logged and skipped; it never aborts the
// batch. The optional progress callback is invoked after each completed id.
func FetchHistories(ctx context.Context, src Source, ids []int, workers int, logger *logging.Logger, progress func(done, total int)) HistoryResult {
	result := HistoryResult{Histories: make(map[int]History, len(ids))}
	if len(ids) == 0 {
		return result
	}
	if workers <= 0 {
		workers = DefaultHistoryWorkers
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	work := make(chan int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	done := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				history, ok, err := src.FetchHistory(ctx, id)

				mu.Lock()
				if err != nil {
					result.Failed = append(result.Failed, id)
					logger.Warn("History fetch failed, skipping candidate", map[string]interface{}{
						"source": src.Name(),
						"id":     id,
						"error":  err.Error(),
					})
				} else if ok {
					result.Histories[id] = history
				}
				done++
				current := done
				mu.Unlock()

				if progress != nil {
					progress(current, len(ids))
				}
			}
		}()
	}

	for _, id := range ids {
		select {
		case work <- id:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return result
		}
	}
	close(work)
	wg.Wait()
	return result
}
