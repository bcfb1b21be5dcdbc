package bugzilla

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"statusgen/internal/cache"
	"statusgen/internal/logging"
	"statusgen/internal/tracker"
)

func newTestConnector(t *testing.T, handler http.Handler) (*Bugzilla, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	bz := New(Options{
		BaseURL:   srv.URL,
		SearchURL: srv.URL + "/buglist.cgi",
		APIKey:    "test-key",
		ChunkSize: 2,
		Timeout:   time.Second,
	}, cache.NewBypass(), logging.Discard())
	return bz, srv
}

func TestFetchByFilter(t *testing.T) {
	bz, _ := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/bug" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("component"); got != "DOM" {
			t.Errorf("component = %q", got)
		}
		if got := r.URL.Query().Get("last_change_time"); got == "" {
			t.Error("last_change_time missing")
		}
		fmt.Fprint(w, `{"bugs": [
			{"id": 42, "summary": "Fix the frob", "product": "Core", "component": "DOM",
			 "status": "RESOLVED", "resolution": "FIXED",
			 "last_change_time": "2026-08-20T10:00:00Z",
			 "groups": ["core-security"], "assigned_to": "dev@example.org"}
		]}`)
	}))

	since := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	got, err := bz.FetchByFilter(context.Background(), tracker.FilterSet{Components: []string{"DOM"}}, since)
	if err != nil {
		t.Fatalf("FetchByFilter: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	c := got[0]
	if c.ID != 42 || c.Status != "RESOLVED" || c.Resolution != "FIXED" {
		t.Errorf("candidate = %+v", c)
	}
	if c.Source != "bugzilla" {
		t.Errorf("source = %q", c.Source)
	}
	if len(c.Groups) != 1 || c.Groups[0] != "core-security" {
		t.Errorf("groups = %v", c.Groups)
	}
}

func TestFetchByIDsChunks(t *testing.T) {
	var calls int32
	bz, _ := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		var parts []string
		for _, id := range ids {
			parts = append(parts, fmt.Sprintf(`{"id": %s, "status": "NEW", "last_change_time": "2026-08-20T10:00:00Z"}`, id))
		}
		fmt.Fprintf(w, `{"bugs": [%s]}`, strings.Join(parts, ","))
	}))

	got, err := bz.FetchByIDs(context.Background(), []int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("candidates = %d, want 5", len(got))
	}
	// Chunk size 2 means ceil(5/2) = 3 upstream calls.
	if c := atomic.LoadInt32(&calls); c != 3 {
		t.Errorf("upstream calls = %d, want 3", c)
	}
}

func TestFetchHistory(t *testing.T) {
	bz, _ := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/bug/42/history" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"bugs": [{"id": 42, "history": [
			{"when": "2026-08-15T09:00:00Z", "changes": [
				{"field_name": "assigned_to", "removed": "nobody", "added": "dev@example.org"}
			]},
			{"when": "2026-08-16T12:00:00Z", "changes": [
				{"field_name": "status", "removed": "ASSIGNED", "added": "RESOLVED"},
				{"field_name": "resolution", "removed": "", "added": "FIXED"}
			]}
		]}]}`)
	}))

	history, ok, err := bz.FetchHistory(context.Background(), 42)
	if err != nil || !ok {
		t.Fatalf("FetchHistory: ok=%v err=%v", ok, err)
	}
	if len(history.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(history.Entries))
	}
	second := history.Entries[1]
	if len(second.Changes) != 2 || second.Changes[0].Field != "status" || second.Changes[0].Added != "RESOLVED" {
		t.Errorf("second entry = %+v", second)
	}
}

func TestFetchHistoryMissing(t *testing.T) {
	bz, _ := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bugs": []}`)
	}))

	_, ok, err := bz.FetchHistory(context.Background(), 999)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if ok {
		t.Error("missing history should report ok=false, not an error")
	}
}

func TestExpandMeta(t *testing.T) {
	bz, _ := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bugs": [{"id": 100, "depends_on": [101, 102, 103]}]}`)
	}))

	children, err := bz.ExpandMeta(context.Background(), 100)
	if err != nil {
		t.Fatalf("ExpandMeta: %v", err)
	}
	if len(children) != 3 || children[0] != 101 {
		t.Errorf("children = %v", children)
	}
}

func TestAPIKeyInHeaderNotURL(t *testing.T) {
	bz, _ := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-BUGZILLA-API-KEY") != "test-key" {
			t.Error("api key header missing")
		}
		if strings.Contains(r.URL.RawQuery, "test-key") {
			t.Error("api key leaked into URL")
		}
		fmt.Fprint(w, `{"bugs": []}`)
	}))

	if _, err := bz.FetchByFilter(context.Background(), tracker.FilterSet{Components: []string{"X"}}, time.Now()); err != nil {
		t.Fatal(err)
	}
}

func TestSearchUIURL(t *testing.T) {
	bz, srv := newTestConnector(t, http.NewServeMux())
	since := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	link := bz.SearchUIURL(tracker.FilterSet{Components: []string{"DOM"}}, since)
	if !strings.HasPrefix(link, srv.URL+"/buglist.cgi?") {
		t.Errorf("link = %s", link)
	}
	if !strings.Contains(link, "chfieldfrom=2026-08-10") || !strings.Contains(link, "component=DOM") {
		t.Errorf("link missing filters: %s", link)
	}
}
