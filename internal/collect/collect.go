// Package collect implements the multi-source candidate collector: parallel
// fan-out, deterministic dedup, restricted/eligible partition.
package collect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"statusgen/internal/config"
	"statusgen/internal/errors"
	"statusgen/internal/logging"
	"statusgen/internal/tracker"
)

// Collector fans queries out to the declared sources.
type Collector struct {
	// Sources in declared order. The order decides which copy of a
	// duplicated id wins, so it must be stable across runs.
	Sources []tracker.Source
	Rules   config.Rules
	Logger  *logging.Logger
}

// Result is the outcome of one collection pass.
type Result struct {
	// Union is the deduplicated concatenation of all query results.
	Union []tracker.Candidate
	// Eligible are union members with no restriction tag match.
	Eligible []tracker.Candidate
	// Restricted are excluded before qualification and never revisited.
	Restricted []tracker.Candidate
	// PerQuery holds raw result counts for diagnostics.
	PerQuery map[string]int
	// RawCount is the pre-dedup total.
	RawCount int
}

// query is one outbound request slot. Slots are built in a fixed order so
// concatenation is deterministic regardless of completion order.
type query struct {
	label string
	run   func(ctx context.Context) ([]tracker.Candidate, error)
}

// Collect issues every configured query in parallel and merges the results.
// A single failing query degrades coverage (logged, skipped); the collection
// only fails when every query failed.
func (c *Collector) Collect(ctx context.Context, filters tracker.FilterSet, since time.Time) (Result, error) {
	queries := c.buildQueries(filters, since)
	if len(queries) == 0 {
		return Result{PerQuery: map[string]int{}}, nil
	}

	results := make([][]tracker.Candidate, len(queries))
	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q query) {
			defer wg.Done()
			results[i], errs[i] = q.run(ctx)
		}(i, q)
	}
	wg.Wait()

	result := Result{PerQuery: make(map[string]int, len(queries))}
	failed := 0
	for i, q := range queries {
		if errs[i] != nil {
			failed++
			c.Logger.Warn("Source query failed, continuing without it", map[string]interface{}{
				"query": q.label,
				"error": errs[i].Error(),
			})
			continue
		}
		result.PerQuery[q.label] = len(results[i])
	}
	if failed == len(queries) {
		return Result{}, errors.New(errors.UpstreamUnavailable,
			fmt.Sprintf("all %d source queries failed", len(queries)), errs[0])
	}

	// Walk once in slot order, first occurrence of each id wins.
	seen := make(map[int]bool)
	for i := range queries {
		for _, cand := range results[i] {
			result.RawCount++
			if seen[cand.ID] {
				continue
			}
			seen[cand.ID] = true
			result.Union = append(result.Union, cand)
		}
	}

	for _, cand := range result.Union {
		if c.Rules.IsRestricted(cand.Groups) {
			result.Restricted = append(result.Restricted, cand)
		} else {
			result.Eligible = append(result.Eligible, cand)
		}
	}

	c.Logger.Debug("Collection complete", map[string]interface{}{
		"raw":        result.RawCount,
		"deduped":    len(result.Union),
		"eligible":   len(result.Eligible),
		"restricted": len(result.Restricted),
	})
	return result, nil
}

// buildQueries expands the filter set into one slot per source per filter
// dimension, in a fixed order.
func (c *Collector) buildQueries(filters tracker.FilterSet, since time.Time) []query {
	var queries []query
	for _, src := range c.Sources {
		src := src
		if len(filters.Components) > 0 {
			f := tracker.FilterSet{Components: filters.Components}
			queries = append(queries, query{
				label: src.Name() + "/components",
				run: func(ctx context.Context) ([]tracker.Candidate, error) {
					return src.FetchByFilter(ctx, f, since)
				},
			})
		}
		if len(filters.Whiteboards) > 0 {
			f := tracker.FilterSet{Whiteboards: filters.Whiteboards}
			queries = append(queries, query{
				label: src.Name() + "/whiteboards",
				run: func(ctx context.Context) ([]tracker.Candidate, error) {
					return src.FetchByFilter(ctx, f, since)
				},
			})
		}
		if len(filters.Assignees) > 0 {
			f := tracker.FilterSet{Assignees: filters.Assignees}
			queries = append(queries, query{
				label: src.Name() + "/assignees",
				run: func(ctx context.Context) ([]tracker.Candidate, error) {
					return src.FetchByFilter(ctx, f, since)
				},
			})
		}
		if len(filters.MetaBugs) > 0 {
			expander, ok := src.(tracker.MetaExpander)
			if !ok {
				continue
			}
			metas := filters.MetaBugs
			queries = append(queries, query{
				label: src.Name() + "/metabugs",
				run: func(ctx context.Context) ([]tracker.Candidate, error) {
					var children []int
					for _, meta := range metas {
						ids, err := expander.ExpandMeta(ctx, meta)
						if err != nil {
							return nil, err
						}
						children = append(children, ids...)
					}
					return src.FetchByIDs(ctx, children)
				},
			})
		}
	}
	return queries
}
