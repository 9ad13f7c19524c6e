// Package catalog queries the Steam Workshop for candidate items. Two
// interchangeable strategies produce the same Item shape: the structured
// IPublishedFileService Web API (preferred, requires an api key) and an
// HTML scrape of the community browse listing (fallback).
package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrUnavailable wraps any network or parse failure so callers see a single
// "source unavailable" condition.
var ErrUnavailable = errors.New("catalog source unavailable")

const (
	queryFilesURL   = "https://api.steampowered.com/IPublishedFileService/QueryFiles/v1/"
	fileDetailsURL  = "https://api.steampowered.com/ISteamRemoteStorage/GetPublishedFileDetails/v1/"
	browseURL       = "https://steamcommunity.com/workshop/browse/"
	detailsBatchMax = 100
	userAgent       = "wallpick/1.0"
)

// Item is an immutable snapshot of a workshop item at fetch time.
type Item struct {
	ID            uint64
	Title         string
	CreatorID     string
	Tags          []string
	KVTags        map[string]string
	Subscriptions int64
	Favorited     int64
	Views         int64
	TimeCreated   int64
	TimeUpdated   int64
}

// Client talks to the workshop catalog endpoints.
type Client struct {
	http   *http.Client
	apiKey string
	appID  int

	// endpoint overrides for tests
	queryURL   string
	detailsURL string
	browseURL  string
}

// Options configures a Client.
type Options struct {
	APIKey  string
	AppID   int
	Proxy   string
	Timeout time.Duration
}

// NewClient builds a catalog client. A zero Timeout defaults to 25s; Proxy,
// when set, is used for both http and https requests.
func NewClient(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &Client{
		http:       &http.Client{Timeout: timeout, Transport: transport},
		apiKey:     opts.APIKey,
		appID:      opts.AppID,
		queryURL:   queryFilesURL,
		detailsURL: fileDetailsURL,
		browseURL:  browseURL,
	}, nil
}

// HasAPIKey reports whether the structured query variant can be used.
func (c *Client) HasAPIKey() bool { return c.apiKey != "" }

func (c *Client) get(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
	return resp, nil
}
