// Package github implements the secondary tracker (closed issues) and the
// merged-PR enrichment source against the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"statusgen/internal/cache"
	"statusgen/internal/connector"
	"statusgen/internal/logging"
	"statusgen/internal/tracker"
)

// GitHub is a tracker.Source over one or more repositories' issues.
type GitHub struct {
	baseURL string
	repos   []string
	client  *connector.Client
	logger  *logging.Logger

	// issueRepos maps issue numbers to the owner/name repo they were seen
	// in. Issue numbers are only unique per repo, so per-issue calls must
	// resolve against the repo the issue actually came from.
	mu         sync.Mutex
	issueRepos map[int]string
}

// Options configures a GitHub connector.
type Options struct {
	BaseURL string
	Repos   []string // owner/name
	Token   string
	Timeout time.Duration
}

// New creates a GitHub connector. The token flows through an oauth2 token
// source on the transport, so URLs (and cache keys) stay credential-free.
func New(opts Options, rc cache.ResponseCache, logger *logging.Logger) *GitHub {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	client := connector.NewClient(rc, opts.Timeout, headers, logger)
	if opts.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		hc := oauth2.NewClient(context.Background(), src)
		hc.Timeout = opts.Timeout
		if hc.Timeout <= 0 {
			hc.Timeout = connector.DefaultTimeout
		}
		client = client.WithHTTPClient(hc)
	}
	return &GitHub{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		repos:      opts.Repos,
		client:     client,
		logger:     logger,
		issueRepos: make(map[int]string),
	}
}

func (g *GitHub) rememberRepo(id int, repo string) {
	if repo == "" {
		return
	}
	g.mu.Lock()
	g.issueRepos[id] = repo
	g.mu.Unlock()
}

// repoFor resolves the repo for an issue number. Numbers never seen during
// collection fall back to the first configured repo.
func (g *GitHub) repoFor(id int) string {
	g.mu.Lock()
	repo, ok := g.issueRepos[id]
	g.mu.Unlock()
	if ok {
		return repo
	}
	if len(g.repos) > 0 {
		return g.repos[0]
	}
	return ""
}

// Name implements tracker.Source.
func (g *GitHub) Name() string { return "github" }

// wire types

type wireIssue struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	State    string `json:"state"`
	ClosedAt string `json:"closed_at"`
	Labels   []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignee *struct {
		Login string `json:"login"`
	} `json:"assignee"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
	RepoURL     string    `json:"repository_url"`
}

type wireSearch struct {
	TotalCount int         `json:"total_count"`
	Items      []wireIssue `json:"items"`
}

type wireEvent struct {
	Event       string `json:"event"`
	CreatedAt   string `json:"created_at"`
	StateReason string `json:"state_reason"`
}

func (w wireIssue) toCandidate() tracker.Candidate {
	closed, _ := time.Parse(time.RFC3339, w.ClosedAt)
	var groups []string
	for _, l := range w.Labels {
		groups = append(groups, l.Name)
	}
	var assignee string
	if w.Assignee != nil {
		assignee = w.Assignee.Login
	}
	component := ""
	if idx := strings.LastIndex(w.RepoURL, "/repos/"); idx >= 0 {
		component = w.RepoURL[idx+len("/repos/"):]
	}
	resolution := ""
	if w.State == "closed" {
		resolution = "completed"
	}
	return tracker.Candidate{
		ID:         w.Number,
		Summary:    w.Title,
		Component:  component,
		Status:     w.State,
		Resolution: resolution,
		LastChange: closed,
		Groups:     groups,
		Assignee:   assignee,
		Source:     "github",
	}
}

// FetchByFilter implements tracker.Source. Whiteboard filters map to labels,
// assignee filters to the issue assignee. Component filters are ignored here:
// the repo list plays that role.
func (g *GitHub) FetchByFilter(ctx context.Context, filters tracker.FilterSet, since time.Time) ([]tracker.Candidate, error) {
	var out []tracker.Candidate
	for _, repo := range g.repos {
		terms := []string{
			"repo:" + repo,
			"is:issue",
			"state:closed",
			"closed:>=" + since.UTC().Format("2006-01-02"),
		}
		for _, w := range filters.Whiteboards {
			terms = append(terms, "label:"+quoteIfSpaced(w))
		}
		for _, a := range filters.Assignees {
			terms = append(terms, "assignee:"+a)
		}

		q := url.Values{}
		q.Set("q", strings.Join(terms, " "))
		q.Set("per_page", "100")

		body, err := g.client.GetJSON(ctx, g.baseURL+"/search/issues?"+q.Encode())
		if err != nil {
			return nil, err
		}
		var result wireSearch
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode issue search: %w", err)
		}
		for _, item := range result.Items {
			if item.PullRequest != nil {
				continue
			}
			c := item.toCandidate()
			g.rememberRepo(c.ID, c.Component)
			out = append(out, c)
		}
	}
	return out, nil
}

// FetchByIDs implements tracker.Source. Issue numbers are fetched one call
// each, a bounded batch at a time.
func (g *GitHub) FetchByIDs(ctx context.Context, ids []int) ([]tracker.Candidate, error) {
	if len(ids) == 0 || len(g.repos) == 0 {
		return nil, nil
	}

	results := make([]*tracker.Candidate, len(ids))
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	sem := make(chan struct{}, tracker.DefaultHistoryWorkers)
	for i, id := range ids {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			repo := g.repoFor(id)
			body, err := g.client.GetJSON(ctx, fmt.Sprintf("%s/repos/%s/issues/%d", g.baseURL, repo, id))
			if err != nil {
				errs[i] = err
				return
			}
			var issue wireIssue
			if err := json.Unmarshal(body, &issue); err != nil {
				errs[i] = fmt.Errorf("decode issue %d: %w", id, err)
				return
			}
			c := issue.toCandidate()
			if c.Component == "" {
				c.Component = repo
			}
			g.rememberRepo(c.ID, c.Component)
			results[i] = &c
		}(i, id)
	}
	wg.Wait()

	var out []tracker.Candidate
	for i := range ids {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if results[i] != nil {
			out = append(out, *results[i])
		}
	}
	return out, nil
}

// FetchHistory implements tracker.Source by translating the issue event
// timeline into field transitions.
func (g *GitHub) FetchHistory(ctx context.Context, id int) (tracker.History, bool, error) {
	repo := g.repoFor(id)
	if repo == "" {
		return tracker.History{}, false, nil
	}

	body, err := g.client.GetJSON(ctx, fmt.Sprintf("%s/repos/%s/issues/%d/events?per_page=100", g.baseURL, repo, id))
	if err != nil {
		return tracker.History{}, false, err
	}
	var events []wireEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return tracker.History{}, false, fmt.Errorf("decode events: %w", err)
	}
	if len(events) == 0 {
		return tracker.History{}, false, nil
	}

	history := tracker.History{ID: id}
	for _, ev := range events {
		when, err := time.Parse(time.RFC3339, ev.CreatedAt)
		if err != nil {
			continue
		}
		switch ev.Event {
		case "closed":
			entry := tracker.HistoryEntry{
				When: when,
				Changes: []tracker.Change{
					{Field: "state", Removed: "open", Added: "closed"},
				},
			}
			if ev.StateReason != "" {
				entry.Changes = append(entry.Changes, tracker.Change{
					Field: "resolution", Added: ev.StateReason,
				})
			}
			history.Entries = append(history.Entries, entry)
		case "reopened":
			history.Entries = append(history.Entries, tracker.HistoryEntry{
				When: when,
				Changes: []tracker.Change{
					{Field: "state", Removed: "closed", Added: "open"},
				},
			})
		}
	}
	return history, true, nil
}

// MergedPRTitles finds merged pull requests referencing a work item, used by
// the enrichment step. Failures degrade to no enrichment for that item.
func (g *GitHub) MergedPRTitles(ctx context.Context, itemID int) ([]string, error) {
	var titles []string
	for _, repo := range g.repos {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("repo:%s is:pr is:merged %q", repo, fmt.Sprintf("Bug %d", itemID)))
		q.Set("per_page", "10")

		body, err := g.client.GetJSON(ctx, g.baseURL+"/search/issues?"+q.Encode())
		if err != nil {
			return nil, err
		}
		var result wireSearch
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode PR search: %w", err)
		}
		for _, item := range result.Items {
			titles = append(titles, item.Title)
		}
	}
	return titles, nil
}

func quoteIfSpaced(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
