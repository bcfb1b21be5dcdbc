package pipeline

import (
	"context"
	"fmt"
	"time"

	"statusgen/internal/collect"
	"statusgen/internal/qualify"
	"statusgen/internal/render"
	"statusgen/internal/summarize"
	"statusgen/internal/tracker"
)

func stepLogWindow() Step {
	return Step{
		Name: "log-window",
		Run: func(_ context.Context, rc *Context) (Outcome, error) {
			rc.Since = time.Now().UTC().AddDate(0, 0, -rc.Params.Days)
			rc.info(fmt.Sprintf("Reporting window: last %d days (since %s)",
				rc.Params.Days, rc.Since.Format("2006-01-02")))
			return Continue, nil
		},
	}
}

func stepCollect() Step {
	return Step{
		Name:  "collect",
		Phase: PhaseCollect,
		Run: func(ctx context.Context, rc *Context) (Outcome, error) {
			collector := &collect.Collector{
				Sources: []tracker.Source{rc.Deps.Primary},
				Rules:   rc.Deps.Rules,
				Logger:  rc.Deps.Logger,
			}
			result, err := collector.Collect(ctx, rc.Params.Filters, rc.Since)
			if err != nil {
				return Continue, err
			}
			rc.Candidates = result.Eligible
			rc.Restricted = result.Restricted
			rc.info(fmt.Sprintf("Found %d candidates (%d restricted)",
				len(result.Union), len(result.Restricted)))
			return Continue, nil
		},
	}
}

func stepFetchByIDs() Step {
	return Step{
		Name:  "fetch-by-id",
		Phase: PhaseCollect,
		Run: func(ctx context.Context, rc *Context) (Outcome, error) {
			rc.Since = time.Now().UTC().AddDate(0, 0, -rc.Params.Days)
			fetched, err := rc.Deps.Primary.FetchByIDs(ctx, rc.Params.IDs)
			if err != nil {
				return Continue, err
			}
			// Restriction still applies in pre-qualified mode.
			for _, c := range fetched {
				if rc.Deps.Rules.IsRestricted(c.Groups) {
					rc.Restricted = append(rc.Restricted, c)
					continue
				}
				rc.Candidates = append(rc.Candidates, c)
				rc.Qualified = append(rc.Qualified, c.ID)
			}
			return Continue, nil
		},
	}
}

func stepFetchHistories() Step {
	return Step{
		Name:  "fetch-histories",
		Phase: PhaseHistory,
		Run: func(ctx context.Context, rc *Context) (Outcome, error) {
			ids := make([]int, len(rc.Candidates))
			for i, c := range rc.Candidates {
				ids[i] = c.ID
			}
			result := tracker.FetchHistories(ctx, rc.Deps.Primary, ids, rc.Deps.Workers,
				rc.Deps.Logger, func(done, total int) {
					rc.progress(PhaseHistory.Label(), done, total)
				})
			for id, h := range result.Histories {
				rc.Histories[id] = h
			}
			if len(result.Failed) > 0 {
				rc.warn(fmt.Sprintf("History unavailable for %d of %d candidates",
					len(result.Failed), len(ids)))
			}
			return Continue, nil
		},
	}
}

func stepQualify() Step {
	return Step{
		Name:  "qualify",
		Phase: PhaseQualify,
		Run: func(_ context.Context, rc *Context) (Outcome, error) {
			ids := make([]int, len(rc.Candidates))
			for i, c := range rc.Candidates {
				ids[i] = c.ID
			}
			qualified, verdicts := qualify.All(ids, rc.Histories, rc.Since, rc.Deps.Rules)
			rc.Qualified = qualified
			for id, v := range verdicts {
				rc.Verdicts[id] = v
				if !v.OK {
					rc.Deps.Logger.Debug("Candidate rejected", map[string]interface{}{
						"id":     id,
						"reason": string(v.Reason),
					})
				}
			}
			rc.info(fmt.Sprintf("%d of %d candidates shipped in the window",
				len(qualified), len(ids)))
			return Continue, nil
		},
	}
}

// stepSecondary repeats collect+history+qualify against the secondary
// tracker and merges the results. Same shape, different connector.
func stepSecondary() Step {
	return Step{
		Name:  "collect-secondary",
		Phase: PhaseSecondary,
		Run: func(ctx context.Context, rc *Context) (Outcome, error) {
			collector := &collect.Collector{
				Sources: []tracker.Source{rc.Deps.Secondary},
				Rules:   rc.Deps.Rules,
				Logger:  rc.Deps.Logger,
			}
			result, err := collector.Collect(ctx, rc.Params.Filters, rc.Since)
			if err != nil {
				// Secondary coverage is optional: degrade, don't abort.
				rc.warn(fmt.Sprintf("Secondary tracker unavailable: %v", err))
				return Continue, nil
			}

			seen := make(map[int]bool, len(rc.Candidates)+len(rc.Restricted))
			for _, c := range rc.Candidates {
				seen[c.ID] = true
			}
			for _, c := range rc.Restricted {
				seen[c.ID] = true
			}

			var fresh []tracker.Candidate
			for _, c := range result.Eligible {
				if !seen[c.ID] {
					fresh = append(fresh, c)
				}
			}
			for _, c := range result.Restricted {
				if !seen[c.ID] {
					rc.Restricted = append(rc.Restricted, c)
				}
			}
			if len(fresh) == 0 {
				return Continue, nil
			}

			ids := make([]int, len(fresh))
			for i, c := range fresh {
				ids[i] = c.ID
			}
			histories := tracker.FetchHistories(ctx, rc.Deps.Secondary, ids, rc.Deps.Workers,
				rc.Deps.Logger, func(done, total int) {
					rc.progress(PhaseSecondary.Label(), done, total)
				})
			for id, h := range histories.Histories {
				rc.Histories[id] = h
			}

			qualified, verdicts := qualify.All(ids, rc.Histories, rc.Since, rc.Deps.Rules)
			rc.Candidates = append(rc.Candidates, fresh...)
			rc.Qualified = append(rc.Qualified, qualified...)
			for id, v := range verdicts {
				rc.Verdicts[id] = v
			}
			rc.info(fmt.Sprintf("Secondary tracker added %d qualified items", len(qualified)))
			return Continue, nil
		},
	}
}

func stepEnrich() Step {
	return Step{
		Name:  "enrich",
		Phase: PhaseEnrich,
		Run: func(ctx context.Context, rc *Context) (Outcome, error) {
			for i, id := range rc.Qualified {
				titles, err := rc.Deps.Enricher.MergedPRTitles(ctx, id)
				if err != nil {
					// Enrichment is garnish: skip the item, keep going.
					rc.Deps.Logger.Warn("Enrichment failed", map[string]interface{}{
						"id":    id,
						"error": err.Error(),
					})
					continue
				}
				if len(titles) > 0 {
					rc.Enrichment[id] = titles
				}
				rc.progress(PhaseEnrich.Label(), i+1, len(rc.Qualified))
			}
			return Continue, nil
		},
	}
}

func stepEmptyCheck() Step {
	return Step{
		Name: "empty-check",
		Run: func(_ context.Context, rc *Context) (Outcome, error) {
			if len(rc.Qualified) > 0 {
				return Continue, nil
			}
			var link string
			if rc.Deps.SearchURL != nil {
				link = rc.Deps.SearchURL(rc.Params.Filters, rc.Since)
			}
			rc.Output = render.Empty(rc.Params.Days, link)
			if rc.Params.Format == "html" {
				rc.HTML = render.HTML(rc.Output)
			}
			rc.info("Nothing to report")
			return Halt, nil
		},
	}
}

func stepCap() Step {
	return Step{
		Name: "cap",
		Run: func(_ context.Context, rc *Context) (Outcome, error) {
			limit := rc.Deps.MaxSummarized
			summarized := rc.Qualified
			if len(summarized) > limit {
				rc.TrimmedCount = len(summarized) - limit
				summarized = summarized[:limit]
				rc.warn(fmt.Sprintf("Summarizing %d of %d items (%d trimmed)",
					limit, len(rc.Qualified), rc.TrimmedCount))
			}
			rc.SummarySet = rc.SummarySet[:0]
			for _, id := range summarized {
				if c, ok := rc.candidateByID(id); ok {
					rc.SummarySet = append(rc.SummarySet, c)
				}
			}
			return Continue, nil
		},
	}
}

func stepSummarize() Step {
	return Step{
		Name:  "summarize",
		Phase: PhaseSummarize,
		Run: func(ctx context.Context, rc *Context) (Outcome, error) {
			items := make([]summarize.Item, 0, len(rc.SummarySet))
			for _, c := range rc.SummarySet {
				items = append(items, summarize.Item{
					ID:        c.ID,
					Summary:   c.Summary,
					Component: c.Component,
					PRs:       rc.Enrichment[c.ID],
				})
			}
			summary, err := rc.Deps.Summarizer.Summarize(ctx, summarize.Request{
				Model:    rc.Params.Model,
				Voice:    rc.Params.Voice,
				Audience: rc.Params.Audience,
				Days:     rc.Params.Days,
				Items:    items,
			})
			if err != nil {
				return Continue, err
			}
			rc.Summary = summary
			return Continue, nil
		},
	}
}

func stepFormat() Step {
	return Step{
		Name:  "format",
		Phase: PhaseFormat,
		Run: func(_ context.Context, rc *Context) (Outcome, error) {
			rc.Output = render.Markdown(render.Report{
				Since:        rc.Since,
				Days:         rc.Params.Days,
				Summary:      rc.Summary,
				Qualified:    rc.Candidates,
				QualifiedIDs: rc.Qualified,
				Trimmed:      rc.TrimmedCount,
				ItemURL:      rc.Deps.ItemURL,
			})
			if rc.Params.Format == "html" {
				rc.HTML = render.HTML(rc.Output)
			}
			return Continue, nil
		},
	}
}
