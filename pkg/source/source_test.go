package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/source"
	"github.com/yitzyh/shtell/pkg/source/mocks"
	"github.com/yitzyh/shtell/pkg/store"
	storemocks "github.com/yitzyh/shtell/pkg/store/mocks"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Design Feed</title>
	<link>http://example.com</link>
	<item>
		<title>Sustainable Architecture &amp; Urban Design</title>
		<link>http://example.com/article1</link>
		<description><![CDATA[<p>Exploring <b>innovative</b>
		approaches</p>]]></description>
		<category>Architecture</category>
		<category>Cities</category>
		<enclosure url="http://example.com/thumb.jpg" type="image/jpeg" length="100"/>
		<pubDate>Mon, 15 Jan 2024 08:00:00 +0000</pubDate>
		<author>editor@example.com (Editor)</author>
	</item>
	<item>
		<title>No date</title>
		<guid>http://example.com/article2</guid>
	</item>
</channel>
</rss>`

func TestFetcher_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testRSS))
	}))
	defer ts.Close()

	f := source.NewFetcher(5*time.Second, "test-agent")
	items, err := f.Fetch(context.Background(), source.Feed{Name: "designboom-architecture", URL: ts.URL})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Sustainable Architecture & Urban Design", items[0].Title)
	assert.Equal(t, "http://example.com/article1", items[0].Link)
	assert.Equal(t, []string{"Architecture", "Cities"}, items[0].Categories)
	assert.Equal(t, "http://example.com/thumb.jpg", items[0].Thumbnail)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), items[0].Published)

	assert.Equal(t, "http://example.com/article2", items[1].Link, "guid used as link")
	assert.True(t, items[1].Published.IsZero())
}

func TestFetcher_Fetch_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			_, _ = w.Write([]byte("not a feed"))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	f := source.NewFetcher(time.Second, "")
	_, err := f.Fetch(context.Background(), source.Feed{Name: "reddit", URL: ts.URL})
	require.ErrorContains(t, err, "unexpected status code: 429")

	_, err = f.Fetch(context.Background(), source.Feed{Name: "broken", URL: ts.URL + "/broken"})
	require.ErrorContains(t, err, "parse feed broken")
}

func TestNormalize(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	feed := source.Feed{Name: "designboom-architecture", Category: "culture", Subcategory: "design-architecture",
		Tags: []string{"design", "designboom", "architecture", "creative"}}

	r, err := source.Normalize(feed, source.Item{
		Title:       "Tiny <i>House</i> &amp; Garden",
		Link:        "https://www.designboom.com/architecture/tiny-house",
		Description: "<p>A   small\n house</p>",
		Categories:  []string{"Architecture", " Housing "},
		Thumbnail:   "https://www.designboom.com/thumb.jpg",
		Published:   time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, domain.RecordID("https://www.designboom.com/architecture/tiny-house"), r.ID)
	assert.Equal(t, "Tiny House & Garden", r.Title)
	assert.Equal(t, "designboom.com", r.Domain)
	assert.Equal(t, "designboom-architecture", r.Source)
	assert.Equal(t, "culture", r.Category)
	assert.Equal(t, "design-architecture", r.Subcategory)
	assert.Equal(t, []string{"design", "designboom", "architecture", "creative", "housing"}, r.Tags)
	assert.Equal(t, "A small house", r.Description)
	assert.Equal(t, "2024-01-15T08:00:00Z", r.CreatedDate)
	assert.Equal(t, domain.StatusActive, r.Status)
	assert.Equal(t, now, r.UpdatedAt)

	_, err = source.Normalize(feed, source.Item{Title: "no link"}, now)
	require.ErrorIs(t, err, domain.ErrMissingURL)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "", source.CleanText("", 10))
	assert.Equal(t, "a b", source.CleanText("<div>a</div>\n\n<div>b</div>", 0))
	assert.Equal(t, "héllo", source.CleanText("héllo world", 5))
	assert.Equal(t, `"quoted"`, source.CleanText("&quot;quoted&quot;", 0))
}

func TestDefaultFeeds(t *testing.T) {
	feeds := source.DefaultFeeds()
	require.Len(t, feeds, 9)
	assert.Equal(t, "medium-technology", feeds[0].Name)
	assert.Equal(t, "technology", feeds[0].Category)
	assert.Equal(t, "culture", feeds[1].Category)
	for _, f := range feeds {
		assert.True(t, strings.HasPrefix(f.URL, "https://"), f.Name)
	}
}

func TestIngester_Run(t *testing.T) {
	since := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	feeds := []source.Feed{
		{Name: "medium-design", Category: "culture", Tags: []string{"medium", "design"}},
		{Name: "designboom-art", Category: "culture"},
		{Name: "broken"},
	}

	fetcher := &mocks.ItemFetcherMock{
		FetchFunc: func(_ context.Context, feed source.Feed) ([]source.Item, error) {
			switch feed.Name {
			case "medium-design":
				return []source.Item{
					{Title: "old", Link: "https://medium.com/old", Published: since.Add(-time.Hour)},
					{Title: "new", Link: "https://medium.com/new", Published: since.Add(2 * time.Hour)},
					{Title: "newer", Link: "https://medium.com/newer", Published: since.Add(3 * time.Hour)},
					{Title: "stored", Link: "https://medium.com/stored", Published: since.Add(time.Hour)},
				}, nil
			case "designboom-art":
				return []source.Item{
					{Title: "art", Link: "https://www.designboom.com/art/1"},
					{Title: "no link"},
				}, nil
			}
			return nil, errors.New("feed is down")
		},
	}
	state := &mocks.StateStoreMock{
		LastIngestFunc: func(_ context.Context, src string) (time.Time, error) {
			if src == "medium-design" {
				return since, nil
			}
			return time.Time{}, nil
		},
		SetLastIngestFunc: func(context.Context, string, time.Time) error { return nil },
	}
	st := &storemocks.StoreMock{
		GetFunc: func(_ context.Context, id string) (domain.Record, error) {
			if id == "https://medium.com/stored" {
				return domain.Record{URL: id}, nil
			}
			return domain.Record{}, store.ErrNotFound
		},
		BatchWriteFunc: func(_ context.Context, records []domain.Record) (store.BatchResult, error) {
			return store.BatchResult{Written: len(records)}, nil
		},
	}

	ing := source.NewIngester(fetcher, st, source.WithState(state), source.WithConcurrency(2),
		source.WithTransform(func(r domain.Record) domain.Record {
			r.QualityScore = 60
			return r
		}))

	t.Run("dry run", func(t *testing.T) {
		res, err := ing.Run(context.Background(), feeds, false)
		require.NoError(t, err)
		assert.Len(t, res.Records, 3)
		assert.Equal(t, map[string]int{"medium-design": 2, "designboom-art": 1}, res.PerFeed)
		assert.Equal(t, map[string]string{"broken": "feed is down"}, res.Errors)
		assert.Equal(t, 1, res.Existing)
		assert.Empty(t, st.BatchWriteCalls())
		assert.Empty(t, state.SetLastIngestCalls())
		for _, r := range res.Records {
			assert.Equal(t, 60, r.QualityScore)
		}
	})

	t.Run("write", func(t *testing.T) {
		res, err := ing.Run(context.Background(), feeds, true)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Written)
		require.Len(t, st.BatchWriteCalls(), 1)
		assert.Len(t, st.BatchWriteCalls()[0].Records, 3)

		calls := state.SetLastIngestCalls()
		require.Len(t, calls, 1, "feeds without publish dates keep no state")
		assert.Equal(t, "medium-design", calls[0].Source)
		assert.Equal(t, since.Add(3*time.Hour), calls[0].Ts)
	})
}

func TestIngester_Run_FailedWritesKeepState(t *testing.T) {
	fetcher := &mocks.ItemFetcherMock{
		FetchFunc: func(context.Context, source.Feed) ([]source.Item, error) {
			return []source.Item{{Title: "a", Link: "https://example.com/a", Published: time.Now()}}, nil
		},
	}
	state := &mocks.StateStoreMock{
		LastIngestFunc:    func(context.Context, string) (time.Time, error) { return time.Time{}, nil },
		SetLastIngestFunc: func(context.Context, string, time.Time) error { return nil },
	}
	st := &storemocks.StoreMock{
		GetFunc: func(context.Context, string) (domain.Record, error) { return domain.Record{}, store.ErrNotFound },
		BatchWriteFunc: func(_ context.Context, records []domain.Record) (store.BatchResult, error) {
			return store.BatchResult{Failed: []string{records[0].ID}}, nil
		},
	}

	res, err := source.NewIngester(fetcher, st, source.WithState(state)).Run(context.Background(),
		[]source.Feed{{Name: "example"}}, true)
	require.NoError(t, err)
	assert.Len(t, res.Failed, 1)
	assert.Empty(t, state.SetLastIngestCalls())
}
