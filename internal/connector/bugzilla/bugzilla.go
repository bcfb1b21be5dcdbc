// Package bugzilla implements the primary tracker connector against the
// Bugzilla REST API.
package bugzilla

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"statusgen/internal/cache"
	"statusgen/internal/connector"
	"statusgen/internal/logging"
	"statusgen/internal/tracker"
)

const includeFields = "id,summary,product,component,status,resolution,last_change_time,groups,assigned_to"

// Bugzilla is a tracker.Source backed by a Bugzilla instance.
type Bugzilla struct {
	baseURL   string
	searchURL string
	client    *connector.Client
	chunkSize int
	logger    *logging.Logger
}

// Options configures a Bugzilla connector.
type Options struct {
	BaseURL   string
	SearchURL string
	APIKey    string
	ChunkSize int
	Timeout   time.Duration
}

// New creates a Bugzilla connector. The API key travels in a request header,
// never in the URL.
func New(opts Options, rc cache.ResponseCache, logger *logging.Logger) *Bugzilla {
	headers := map[string]string{}
	if opts.APIKey != "" {
		headers["X-BUGZILLA-API-KEY"] = opts.APIKey
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100
	}
	return &Bugzilla{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		searchURL: opts.SearchURL,
		client:    connector.NewClient(rc, opts.Timeout, headers, logger),
		chunkSize: opts.ChunkSize,
		logger:    logger,
	}
}

// Name implements tracker.Source.
func (b *Bugzilla) Name() string { return "bugzilla" }

// SearchUIURL returns a deep link to the human search UI for the filters,
// used by the nothing-to-report output.
func (b *Bugzilla) SearchUIURL(filters tracker.FilterSet, since time.Time) string {
	if b.searchURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("chfieldfrom", since.Format("2006-01-02"))
	q.Set("resolution", "FIXED")
	for _, c := range filters.Components {
		q.Add("component", c)
	}
	for _, w := range filters.Whiteboards {
		q.Add("status_whiteboard", w)
	}
	for _, a := range filters.Assignees {
		q.Add("assigned_to", a)
	}
	return b.searchURL + "?" + q.Encode()
}

// wire types

type wireBug struct {
	ID             int      `json:"id"`
	Summary        string   `json:"summary"`
	Product        string   `json:"product"`
	Component      string   `json:"component"`
	Status         string   `json:"status"`
	Resolution     string   `json:"resolution"`
	LastChangeTime string   `json:"last_change_time"`
	Groups         []string `json:"groups"`
	AssignedTo     string   `json:"assigned_to"`
	DependsOn      []int    `json:"depends_on"`
}

type wireBugList struct {
	Bugs []wireBug `json:"bugs"`
}

type wireHistoryList struct {
	Bugs []struct {
		ID      int `json:"id"`
		History []struct {
			When    string `json:"when"`
			Changes []struct {
				FieldName string `json:"field_name"`
				Removed   string `json:"removed"`
				Added     string `json:"added"`
			} `json:"changes"`
		} `json:"history"`
	} `json:"bugs"`
}

func (w wireBug) toCandidate() tracker.Candidate {
	last, _ := time.Parse(time.RFC3339, w.LastChangeTime)
	return tracker.Candidate{
		ID:         w.ID,
		Summary:    w.Summary,
		Product:    w.Product,
		Component:  w.Component,
		Status:     w.Status,
		Resolution: w.Resolution,
		LastChange: last,
		Groups:     w.Groups,
		Assignee:   w.AssignedTo,
		Source:     "bugzilla",
	}
}

// FetchByFilter implements tracker.Source. One REST query is issued per
// filter dimension; the caller fans these out itself, so this issues a
// single combined query for the supplied set.
func (b *Bugzilla) FetchByFilter(ctx context.Context, filters tracker.FilterSet, since time.Time) ([]tracker.Candidate, error) {
	q := url.Values{}
	q.Set("include_fields", includeFields)
	q.Set("last_change_time", since.UTC().Format(time.RFC3339))
	for _, c := range filters.Components {
		q.Add("component", c)
	}
	for _, w := range filters.Whiteboards {
		q.Add("whiteboard", w)
	}
	for _, a := range filters.Assignees {
		q.Add("assigned_to", a)
	}

	body, err := b.client.GetJSON(ctx, b.baseURL+"/rest/bug?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var list wireBugList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode bug list: %w", err)
	}

	candidates := make([]tracker.Candidate, 0, len(list.Bugs))
	for _, bug := range list.Bugs {
		candidates = append(candidates, bug.toCandidate())
	}
	return candidates, nil
}

// FetchByIDs implements tracker.Source. Large id lists are chunked and the
// chunks fetched concurrently.
func (b *Bugzilla) FetchByIDs(ctx context.Context, ids []int) ([]tracker.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	chunks := connector.ChunkIDs(ids, b.chunkSize)

	results := make([][]tracker.Candidate, len(chunks))
	errs := make([]error, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []int) {
			defer wg.Done()
			results[i], errs[i] = b.fetchChunk(ctx, chunk)
		}(i, chunk)
	}
	wg.Wait()

	var out []tracker.Candidate
	for i := range chunks {
		if errs[i] != nil {
			return nil, errs[i]
		}
		out = append(out, results[i]...)
	}
	return out, nil
}

func (b *Bugzilla) fetchChunk(ctx context.Context, ids []int) ([]tracker.Candidate, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.Itoa(id)
	}
	q := url.Values{}
	q.Set("include_fields", includeFields)
	q.Set("id", strings.Join(strs, ","))

	body, err := b.client.GetJSON(ctx, b.baseURL+"/rest/bug?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var list wireBugList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode bug list: %w", err)
	}
	candidates := make([]tracker.Candidate, 0, len(list.Bugs))
	for _, bug := range list.Bugs {
		candidates = append(candidates, bug.toCandidate())
	}
	return candidates, nil
}

// FetchHistory implements tracker.Source.
func (b *Bugzilla) FetchHistory(ctx context.Context, id int) (tracker.History, bool, error) {
	body, err := b.client.GetJSON(ctx, fmt.Sprintf("%s/rest/bug/%d/history", b.baseURL, id))
	if err != nil {
		return tracker.History{}, false, err
	}
	var list wireHistoryList
	if err := json.Unmarshal(body, &list); err != nil {
		return tracker.History{}, false, fmt.Errorf("decode history: %w", err)
	}
	if len(list.Bugs) == 0 {
		return tracker.History{}, false, nil
	}

	wire := list.Bugs[0]
	history := tracker.History{ID: wire.ID}
	for _, entry := range wire.History {
		when, err := time.Parse(time.RFC3339, entry.When)
		if err != nil {
			continue
		}
		he := tracker.HistoryEntry{When: when}
		for _, ch := range entry.Changes {
			he.Changes = append(he.Changes, tracker.Change{
				Field:   ch.FieldName,
				Removed: ch.Removed,
				Added:   ch.Added,
			})
		}
		history.Entries = append(history.Entries, he)
	}
	return history, true, nil
}

// ExpandMeta implements tracker.MetaExpander: a meta bug's children are its
// depends_on list.
func (b *Bugzilla) ExpandMeta(ctx context.Context, id int) ([]int, error) {
	q := url.Values{}
	q.Set("include_fields", "id,depends_on")
	q.Set("id", strconv.Itoa(id))

	body, err := b.client.GetJSON(ctx, b.baseURL+"/rest/bug?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var list wireBugList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode meta bug: %w", err)
	}
	if len(list.Bugs) == 0 {
		return nil, nil
	}
	return list.Bugs[0].DependsOn, nil
}
