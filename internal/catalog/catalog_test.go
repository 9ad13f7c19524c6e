package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{APIKey: "KEY", AppID: 431960, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	c.queryURL = srv.URL + "/query"
	c.detailsURL = srv.URL + "/details"
	c.browseURL = srv.URL + "/browse"
	return c
}

func TestMapSortToQuery(t *testing.T) {
	cases := []struct {
		in       string
		wantType int
		wantDays int
	}{
		{"Most Recent", 1, 0},
		{"Top Rated", 11, 0},
		{"Most Subscriptions", 9, 0},
		{"Most Popular (Day)", 3, 1},
		{"Most Popular (Week)", 3, 7},
		{"Most Popular (Month)", 3, 30},
		{"Most Popular (Year)", 3, 365},
		{"Last Updated", 1, 0},
		{"", 3, 7},
	}
	for _, c := range cases {
		qt, days := MapSortToQuery(c.in)
		if qt != c.wantType || days != c.wantDays {
			t.Errorf("MapSortToQuery(%q) = (%d, %d), want (%d, %d)", c.in, qt, days, c.wantType, c.wantDays)
		}
	}
}

func TestMapSortHTML(t *testing.T) {
	cases := []struct {
		in       string
		wantSort string
		wantDays int
	}{
		{"Top Rated", "vote", 0},
		{"Most Popular (Week)", "trend", 7},
		{"Most Recent", "mostrecent", 0},
		{"Last Updated", "lastupdated", 0},
		{"Most Subscriptions", "totaluniquesubscribers", 0},
		{"", "trend", 7},
	}
	for _, c := range cases {
		s, days := MapSortHTML(c.in)
		if s != c.wantSort || days != c.wantDays {
			t.Errorf("MapSortHTML(%q) = (%q, %d), want (%q, %d)", c.in, s, days, c.wantSort, c.wantDays)
		}
	}
}

func TestQueryPage(t *testing.T) {
	var gotInput queryPayload
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		if key := r.URL.Query().Get("key"); key != "KEY" {
			t.Errorf("key = %q", key)
		}
		if err := json.Unmarshal([]byte(r.URL.Query().Get("input_json")), &gotInput); err != nil {
			t.Errorf("input_json: %v", err)
		}
		fmt.Fprint(w, `{"response":{"total":2,"next_cursor":"AAA","publishedfiledetails":[
			{"publishedfileid":"101","title":"Aurora","creator":"76561198000000001",
			 "tags":[{"tag":"Scene"},{"tag":"Everyone"},{"tag":"Nature"}],
			 "kv_tags":[{"key":"Resolution","value":"1920 x 1080"}],
			 "subscriptions":500,"favorited":40,"views":9000,"time_created":100,"time_updated":200},
			{"publishedfileid":"0","title":"bogus"}
		]}}`)
	}))

	items, next, err := c.QueryPage(context.Background(), Query{
		SortMethod:   "Most Popular (Week)",
		PageSize:     40,
		RequiredTag:  "Nature",
		ExcludedTags: []string{"Horror"},
	}, "*")
	if err != nil {
		t.Fatalf("QueryPage: %v", err)
	}
	if next != "AAA" {
		t.Errorf("next cursor = %q", next)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (invalid id dropped)", len(items))
	}
	it := items[0]
	if it.ID != 101 || it.CreatorID != "76561198000000001" || it.Subscriptions != 500 {
		t.Errorf("item = %+v", it)
	}
	if it.KVTags["resolution"] != "1920 x 1080" {
		t.Errorf("KVTags = %v", it.KVTags)
	}
	if gotInput.QueryType != 3 || gotInput.Days != 7 {
		t.Errorf("payload query_type=%d days=%d", gotInput.QueryType, gotInput.Days)
	}
	if len(gotInput.RequiredTags) != 1 || gotInput.RequiredTags[0] != "Nature" {
		t.Errorf("payload requiredtags = %v", gotInput.RequiredTags)
	}
	if gotInput.Cursor != "*" {
		t.Errorf("payload cursor = %q", gotInput.Cursor)
	}
}

func TestQueryPageUnavailable(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	_, _, err := c.QueryPage(context.Background(), Query{SortMethod: "Most Recent", PageSize: 10}, "*")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDetailsBatching(t *testing.T) {
	var batches []int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/details" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		n := 0
		fmt.Sscanf(r.PostFormValue("itemcount"), "%d", &n)
		batches = append(batches, n)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":{"result":1,"publishedfiledetails":[{"publishedfileid":"1","title":"x","creator":"c"}]}}`)
	}))

	ids := make([]uint64, 150)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	out, err := c.Details(context.Background(), ids)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if len(batches) != 2 || batches[0] != 100 || batches[1] != 50 {
		t.Errorf("batches = %v, want [100 50]", batches)
	}
	if _, ok := out[1]; !ok {
		t.Error("item 1 missing from result")
	}
}

func TestScrapePage(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("browsesort"); got != "trend" {
			t.Errorf("browsesort = %q", got)
		}
		fmt.Fprint(w, `<html><body>
			<div class="workshopItem" data-publishedfileid="42"></div>
			<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=77">x</a>
			<div data-publishedfileid="42"></div>
			<a href="/other">y</a>
		</body></html>`)
	}))

	ids, err := c.ScrapePage(context.Background(), Query{SortMethod: "Most Popular (Week)", PageSize: 40}, 1)
	if err != nil {
		t.Fatalf("ScrapePage: %v", err)
	}
	if len(ids) != 2 || ids[0] != 42 || ids[1] != 77 {
		t.Errorf("ids = %v, want [42 77]", ids)
	}
}

func TestCollectEarlyStop(t *testing.T) {
	var pages int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Full pages with a fresh id each call so paging would continue.
		fmt.Fprintf(w, `{"response":{"next_cursor":"C%d","publishedfiledetails":[`, pages)
		for i := 0; i < 2; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"publishedfileid":"%d","title":"t","creator":"c"}`, pages*10+i)
		}
		fmt.Fprint(w, `]}}`)
	}))

	items, err := c.Collect(context.Background(), CollectOptions{
		SortMethod:    "Most Recent",
		PageSize:      2,
		MaxPages:      10,
		MinCandidates: 3,
		Admit:         func(items []Item) int { return len(items) },
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) < 3 {
		t.Fatalf("collected %d items, want >= 3", len(items))
	}
	if pages != 2 {
		t.Errorf("fetched %d pages, want early stop after 2", pages)
	}
}
