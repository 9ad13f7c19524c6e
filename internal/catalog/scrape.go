package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// MapSortHTML maps a human sort method name to the community browse page's
// browsesort value plus trend days.
func MapSortHTML(sortName string) (browseSort string, days int) {
	s := strings.ToLower(strings.TrimSpace(sortName))
	switch {
	case s == "top rated" || s == "most up votes" || s == "most upvoted" || s == "top-rated":
		return "vote", 0
	case strings.HasPrefix(s, "most popular"):
		switch {
		case strings.Contains(s, "year"):
			return "trend", 365
		case strings.Contains(s, "month"):
			return "trend", 30
		case strings.Contains(s, "week"):
			return "trend", 7
		case strings.Contains(s, "day"), strings.Contains(s, "today"):
			return "trend", 1
		}
		return "trend", 7
	case s == "most recent" || s == "newest" || s == "recent":
		return "mostrecent", 0
	case s == "last updated" || s == "recently updated" || s == "updated":
		return "lastupdated", 0
	case s == "most subscriptions" || s == "most subscribed" || s == "subscriptions" || s == "subscribed":
		return "totaluniquesubscribers", 0
	}
	return "trend", 7
}

var fileDetailsHref = regexp.MustCompile(`/filedetails/\?id=(\d+)`)

// ScrapePage fetches one page of the browse listing and extracts item ids
// from data-publishedfileid attributes and filedetails links. Order on the
// page is preserved; duplicates are dropped.
func (c *Client) ScrapePage(ctx context.Context, q Query, page int) ([]uint64, error) {
	browseSort, days := MapSortHTML(q.SortMethod)
	params := url.Values{}
	params.Set("appid", strconv.Itoa(c.appID))
	params.Set("browsesort", browseSort)
	params.Set("days", strconv.Itoa(days))
	params.Set("section", "readytouseitems")
	params.Set("l", "english")
	params.Set("numperpage", strconv.Itoa(q.PageSize))
	params.Set("p", strconv.Itoa(page))
	params.Set("actualsort", browseSort)
	if q.RequiredTag != "" {
		params.Add("requiredtags[]", q.RequiredTag)
	}
	for _, t := range q.ExcludedTags {
		params.Add("excludedtags[]", t)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.browseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Referer", fmt.Sprintf("%s?appid=%d&browsesort=%s", c.browseURL, c.appID, browseSort))
	resp, err := c.get(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ids, err := parseBrowseHTML(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing browse page: %v", ErrUnavailable, err)
	}
	return ids, nil
}

func parseBrowseHTML(resp *http.Response) ([]uint64, error) {
	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	var (
		ids  []uint64
		seen = make(map[uint64]struct{})
	)
	add := func(raw string) {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				switch attr.Key {
				case "data-publishedfileid":
					add(attr.Val)
				case "href":
					if m := fileDetailsHref.FindStringSubmatch(attr.Val); m != nil {
						add(m[1])
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return ids, nil
}

// ScrapeCollect runs the scrape-variant union over pages and tags, stopping
// early once minCandidates raw ids were found (the caller still applies the
// full dimension filter after hydration).
func (c *Client) ScrapeCollect(ctx context.Context, opts CollectOptions) ([]uint64, error) {
	tags := opts.RequiredTags
	if len(tags) == 0 {
		tags = []string{""}
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 3
	}

	var (
		ids  []uint64
		seen = make(map[uint64]struct{})
	)
	for _, tag := range tags {
		for page := 1; page <= maxPages; page++ {
			part, err := c.ScrapePage(ctx, Query{
				SortMethod:   opts.SortMethod,
				PageSize:     opts.PageSize,
				RequiredTag:  tag,
				ExcludedTags: opts.ExcludedTags,
			}, page)
			if err != nil {
				return nil, err
			}
			for _, id := range part {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
			if opts.MinCandidates > 0 && len(ids) >= opts.MinCandidates {
				return ids, nil
			}
			if len(part) < opts.PageSize {
				break
			}
		}
	}
	return ids, nil
}
