package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query is the server-expressible subset of a filter spec: the sort method
// plus required/excluded tags. Pagination state travels separately.
type Query struct {
	SortMethod   string
	PageSize     int
	RequiredTag  string // single tag per query; unions are built by the caller
	ExcludedTags []string
}

// MapSortToQuery maps a human sort method name to the Web API query_type
// and trend days. "Last updated" has no Web API equivalent and falls back
// to most recent.
func MapSortToQuery(sortName string) (queryType, days int) {
	s := strings.ToLower(strings.TrimSpace(sortName))
	switch {
	case s == "most recent":
		return 1, 0
	case s == "top rated" || s == "most up votes":
		return 11, 0
	case s == "most subscriptions" || s == "most subscribed":
		return 9, 0
	case strings.HasPrefix(s, "most popular"):
		switch {
		case strings.Contains(s, "year"):
			return 3, 365
		case strings.Contains(s, "month"):
			return 3, 30
		case strings.Contains(s, "week"):
			return 3, 7
		case strings.Contains(s, "day"), strings.Contains(s, "today"):
			return 3, 1
		}
		return 3, 7
	case s == "last updated" || s == "recently updated" || s == "updated":
		return 1, 0
	}
	return 3, 7
}

type queryPayload struct {
	QueryType        int      `json:"query_type"`
	AppID            int      `json:"appid"`
	NumPerPage       int      `json:"numperpage"`
	ReturnKVTags     bool     `json:"return_kv_tags"`
	ReturnTags       bool     `json:"return_tags"`
	ReturnChildren   bool     `json:"return_children"`
	ReturnPreviews   bool     `json:"return_previews"`
	MatchAllTags     bool     `json:"match_all_tags"`
	FileType         int      `json:"filetype"`
	MatureContent    bool     `json:"mature_content"`
	IncludeMature    bool     `json:"include_mature"`
	CacheMaxAge      int      `json:"cache_max_age_seconds"`
	Days             int      `json:"days,omitempty"`
	IncludeVotesOnly bool     `json:"include_recent_votes_only,omitempty"`
	RequiredTags     []string `json:"requiredtags,omitempty"`
	ExcludedTags     []string `json:"excludedtags,omitempty"`
	Cursor           string   `json:"cursor,omitempty"`
}

// QueryPage fetches one page of the structured query variant. The first
// call passes cursor "*"; an empty next cursor or a short page signals
// exhaustion.
func (c *Client) QueryPage(ctx context.Context, q Query, cursor string) (items []Item, next string, err error) {
	qtype, days := MapSortToQuery(q.SortMethod)
	payload := queryPayload{
		QueryType:     qtype,
		AppID:         c.appID,
		NumPerPage:    q.PageSize,
		ReturnKVTags:  true,
		ReturnTags:    true,
		MatchAllTags:  true,
		MatureContent: true,
		IncludeMature: true,
		CacheMaxAge:   60,
		Cursor:        cursor,
	}
	if qtype == 3 && days > 0 {
		payload.Days = days
	}
	if q.RequiredTag != "" {
		payload.RequiredTags = []string{q.RequiredTag}
	}
	if len(q.ExcludedTags) > 0 {
		payload.ExcludedTags = q.ExcludedTags
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("input_json", string(body))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.get(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var decoded queryFilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, "", fmt.Errorf("%w: decoding query response: %v", ErrUnavailable, err)
	}
	for i := range decoded.Response.Files {
		if it, ok := decoded.Response.Files[i].toItem(); ok {
			items = append(items, it)
		}
	}
	return items, decoded.Response.NextCursor, nil
}

// Details hydrates full item details for the given ids, in batches of 100.
// Items the API does not know are simply absent from the result.
func (c *Client) Details(ctx context.Context, ids []uint64) (map[uint64]Item, error) {
	out := make(map[uint64]Item, len(ids))
	for start := 0; start < len(ids); start += detailsBatchMax {
		end := start + detailsBatchMax
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		form := url.Values{}
		form.Set("itemcount", strconv.Itoa(len(chunk)))
		for i, id := range chunk {
			form.Set(fmt.Sprintf("publishedfileids[%d]", i), strconv.FormatUint(id, 10))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.detailsURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := c.get(req)
		if err != nil {
			return nil, err
		}
		var decoded fileDetailsResponse
		decErr := json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if decErr != nil {
			return nil, fmt.Errorf("%w: decoding details response: %v", ErrUnavailable, decErr)
		}
		for i := range decoded.Response.Files {
			if it, ok := decoded.Response.Files[i].toItem(); ok {
				out[it.ID] = it
			}
		}
	}
	return out, nil
}

// CollectOptions controls the union paging loop.
type CollectOptions struct {
	SortMethod   string
	PageSize     int
	MaxPages     int
	RequiredTags []string // queried one at a time, results unioned
	ExcludedTags []string
	// MinCandidates stops paging early once Admit confirms this many
	// admissible items. Zero disables early stop.
	MinCandidates int
	// Admit reports how many of the accumulated items are admissible.
	// It must not perform I/O; the filter engine supplies it.
	Admit func(items []Item) int
}

// Collect runs the structured-query union: each required tag is queried
// separately and results are merged, mirroring the server's single-tag
// matching. Early stop only applies once the admissible count (not the raw
// count) reaches MinCandidates.
func (c *Client) Collect(ctx context.Context, opts CollectOptions) ([]Item, error) {
	tags := opts.RequiredTags
	if len(tags) == 0 {
		tags = []string{""}
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 3
	}

	var (
		all  []Item
		seen = make(map[uint64]struct{})
	)
	for _, tag := range tags {
		cursor := "*"
		for page := 0; page < maxPages; page++ {
			items, next, err := c.QueryPage(ctx, Query{
				SortMethod:   opts.SortMethod,
				PageSize:     opts.PageSize,
				RequiredTag:  tag,
				ExcludedTags: opts.ExcludedTags,
			}, cursor)
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				break
			}
			for _, it := range items {
				if _, dup := seen[it.ID]; dup {
					continue
				}
				seen[it.ID] = struct{}{}
				all = append(all, it)
			}
			if opts.MinCandidates > 0 && opts.Admit != nil && opts.Admit(all) >= opts.MinCandidates {
				return all, nil
			}
			if next == "" || len(items) < opts.PageSize {
				break
			}
			cursor = next
		}
	}
	return all, nil
}
