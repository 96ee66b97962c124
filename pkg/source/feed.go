// Package source fetches RSS/Atom feeds of content sources and turns their items into records
package source

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Feed describes one feed and the classification given to its items
type Feed struct {
	Name        string   `yaml:"name" json:"name" jsonschema:"required,description=source name stored with records"`
	URL         string   `yaml:"url" json:"url" jsonschema:"required,description=RSS or Atom feed url"`
	Category    string   `yaml:"category" json:"category,omitempty" jsonschema:"description=category of ingested records"`
	Subcategory string   `yaml:"subcategory" json:"subcategory,omitempty" jsonschema:"description=subcategory of ingested records"`
	Tags        []string `yaml:"tags" json:"tags,omitempty" jsonschema:"description=tags added to every item"`
}

// DefaultFeeds returns Medium topic and Designboom feeds
func DefaultFeeds() []Feed {
	res := []Feed{}
	for _, topic := range []string{"technology", "design", "startup", "culture", "writing"} {
		category := "culture"
		if topic == "technology" {
			category = "technology"
		}
		res = append(res, Feed{
			Name:        "medium-" + topic,
			URL:         "https://medium.com/feed/topic/" + topic,
			Category:    category,
			Subcategory: "medium-" + topic,
			Tags:        []string{"medium", topic},
		})
	}
	for _, cat := range []string{"architecture", "design", "art", "technology"} {
		res = append(res, Feed{
			Name:        "designboom-" + cat,
			URL:         "https://www.designboom.com/" + cat + "/feed/",
			Category:    "culture",
			Subcategory: "design-" + cat,
			Tags:        []string{"design", "designboom", cat, "creative"},
		})
	}
	return res
}

// Item is a parsed feed entry
type Item struct {
	Title       string
	Link        string
	Description string
	Author      string
	Categories  []string
	Thumbnail   string
	Published   time.Time
}

// Fetcher retrieves and parses feeds over HTTP
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher makes a feed fetcher with the given timeout
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; shtell/1.0)"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Fetch retrieves the feed and returns its items
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) ([]Item, error) {
	body, err := f.get(ctx, feed.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}
	defer body.Close()

	parsed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	res := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		item := Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        strings.TrimSpace(it.Link),
			Description: it.Description,
			Categories:  it.Categories,
		}
		if item.Link == "" && strings.HasPrefix(it.GUID, "http") {
			item.Link = it.GUID
		}
		if it.Author != nil {
			item.Author = it.Author.Name
		}
		if it.PublishedParsed != nil {
			item.Published = it.PublishedParsed.UTC()
		} else if it.UpdatedParsed != nil {
			item.Published = it.UpdatedParsed.UTC()
		}
		item.Thumbnail = thumbnail(it)
		res = append(res, item)
	}
	return res, nil
}

// thumbnail picks item image, falling back to the first image enclosure
func thumbnail(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func (f *Fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	addBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,es;q=0.8",
}

// addBrowserHeaders sets headers some feed hosts (reddit, medium) expect from a browser
func addBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // header variation only
}
