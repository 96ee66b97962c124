package source

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . ItemFetcher
//go:generate moq -out mocks/state.go -pkg mocks -skip-ensure -fmt goimports . StateStore

const maxDescription = 500

// ItemFetcher retrieves items of a feed
type ItemFetcher interface {
	Fetch(ctx context.Context, feed Feed) ([]Item, error)
}

// StateStore keeps the time of the last ingest per source
type StateStore interface {
	LastIngest(ctx context.Context, source string) (time.Time, error)
	SetLastIngest(ctx context.Context, source string, ts time.Time) error
}

// Ingester collects new items of feeds and writes them as records
type Ingester struct {
	fetcher     ItemFetcher
	store       store.Store
	state       StateStore
	concurrency int
	transform   func(domain.Record) domain.Record
	now         func() time.Time
}

// IngestOption configures Ingester
type IngestOption func(*Ingester)

// WithConcurrency sets the number of feeds fetched in parallel
func WithConcurrency(n int) IngestOption {
	return func(in *Ingester) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithTransform sets a function applied to every new record before writing, like classification
func WithTransform(fn func(domain.Record) domain.Record) IngestOption {
	return func(in *Ingester) { in.transform = fn }
}

// WithState sets the store of last ingest times, without it all items are considered new
func WithState(st StateStore) IngestOption {
	return func(in *Ingester) { in.state = st }
}

// WithIngestClock sets the clock used for record timestamps
func WithIngestClock(now func() time.Time) IngestOption {
	return func(in *Ingester) { in.now = now }
}

// NewIngester makes Ingester
func NewIngester(fetcher ItemFetcher, st store.Store, opts ...IngestOption) *Ingester {
	res := &Ingester{fetcher: fetcher, store: st, concurrency: 4, now: time.Now}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// IngestResult reports an ingest run
type IngestResult struct {
	Records  []domain.Record   `json:"records"`
	PerFeed  map[string]int    `json:"per_feed"`
	Errors   map[string]string `json:"errors,omitempty"`
	Existing int               `json:"existing"`
	Written  int               `json:"written"`
	Failed   []string          `json:"failed,omitempty"`
}

// Run fetches all feeds and collects records not yet stored. With write set the records are
// stored and the last ingest time of each feed is advanced. A failing feed doesn't stop others.
func (in *Ingester) Run(ctx context.Context, feeds []Feed, write bool) (IngestResult, error) {
	res := IngestResult{PerFeed: map[string]int{}, Errors: map[string]string{}}
	var mu sync.Mutex
	latest := map[string]time.Time{}
	seen := map[string]bool{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for _, feed := range feeds {
		g.Go(func() error {
			records, newest, existing, err := in.collect(gctx, feed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lgr.Printf("[WARN] ingest of %s failed: %v", feed.Name, err)
				res.Errors[feed.Name] = err.Error()
				return nil
			}
			res.Existing += existing
			for _, r := range records {
				if seen[r.ID] {
					continue
				}
				seen[r.ID] = true
				res.Records = append(res.Records, r)
				res.PerFeed[feed.Name]++
			}
			latest[feed.Name] = newest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	slices.SortFunc(res.Records, func(a, b domain.Record) int { return strings.Compare(a.ID, b.ID) })
	lgr.Printf("[INFO] collected %d new records from %d feeds, %d already stored", len(res.Records), len(feeds), res.Existing)

	if !write {
		return res, nil
	}

	if len(res.Records) > 0 {
		br, err := in.store.BatchWrite(ctx, res.Records)
		if err != nil {
			return res, fmt.Errorf("write ingested records: %w", err)
		}
		res.Written, res.Failed = br.Written, br.Failed
	}
	if in.state == nil || len(res.Failed) > 0 {
		// failed items are retried on the next run
		return res, nil
	}
	for name, ts := range latest {
		if ts.IsZero() {
			continue
		}
		if err := in.state.SetLastIngest(ctx, name, ts); err != nil {
			return res, fmt.Errorf("save last ingest of %s: %w", name, err)
		}
	}
	return res, nil
}

// collect returns new records of the feed, the newest publish time seen and the count of
// records already in the store
func (in *Ingester) collect(ctx context.Context, feed Feed) (res []domain.Record, newest time.Time, existing int, err error) {
	var since time.Time
	if in.state != nil {
		if since, err = in.state.LastIngest(ctx, feed.Name); err != nil {
			return nil, time.Time{}, 0, fmt.Errorf("last ingest: %w", err)
		}
	}
	items, err := in.fetcher.Fetch(ctx, feed)
	if err != nil {
		return nil, time.Time{}, 0, err
	}

	newest = since
	for _, it := range items {
		if !it.Published.IsZero() && !since.IsZero() && !it.Published.After(since) {
			continue
		}
		if it.Published.After(newest) {
			newest = it.Published
		}
		r, err := Normalize(feed, it, in.now())
		if err != nil {
			lgr.Printf("[DEBUG] skip item %q of %s: %v", it.Title, feed.Name, err)
			continue
		}
		_, err = in.store.Get(ctx, r.URL)
		switch {
		case err == nil:
			existing++
			continue
		case !errors.Is(err, store.ErrNotFound):
			return nil, time.Time{}, 0, fmt.Errorf("check %s: %w", r.URL, err)
		}
		if in.transform != nil {
			r = in.transform(r)
		}
		res = append(res, r)
	}
	return res, newest, existing, nil
}

var textPolicy = bluemonday.StrictPolicy()

// Normalize turns a feed item into a new active record
func Normalize(feed Feed, it Item, now time.Time) (domain.Record, error) {
	title := html.UnescapeString(textPolicy.Sanitize(it.Title))
	r, err := domain.NewRecord(it.Link, title, feed.Name)
	if err != nil {
		return domain.Record{}, err
	}
	r.Category = feed.Category
	r.Subcategory = feed.Subcategory
	r.Description = CleanText(it.Description, maxDescription)
	r.ThumbnailURL = it.Thumbnail
	r.MediaType = "article"
	r.UpdatedAt = now.UTC()
	if !it.Published.IsZero() {
		r.CreatedDate = it.Published.UTC().Format(time.RFC3339)
	}

	tags := append([]string{}, feed.Tags...)
	for _, c := range it.Categories {
		tags = append(tags, strings.ToLower(strings.TrimSpace(c)))
	}
	r.Tags = uniqueTags(tags)
	return r, nil
}

// CleanText strips markup, collapses whitespace and limits the text to maxRunes runes
func CleanText(s string, maxRunes int) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = string([]rune(s)[:maxRunes])
	}
	return s
}

func uniqueTags(tags []string) []string {
	res := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || slices.Contains(res, t) {
			continue
		}
		res = append(res, t)
		if len(res) == domain.MaxTags {
			break
		}
	}
	return res
}
