package store_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
	"github.com/yitzyh/shtell/pkg/store/mocks"
)

// pagedScan serves records in pages of size n with numeric cursors
func pagedScan(records []domain.Record, n int) func(ctx context.Context, f store.Filter, cursor string) (store.Page, error) {
	return func(_ context.Context, _ store.Filter, cursor string) (store.Page, error) {
		start := 0
		if cursor != "" {
			var err error
			if start, err = strconv.Atoi(cursor); err != nil {
				return store.Page{}, err
			}
		}
		end := min(start+n, len(records))
		page := store.Page{Records: records[start:end]}
		if end < len(records) {
			page.Cursor = strconv.Itoa(end)
		}
		return page, nil
	}
}

func testRecords(n int) []domain.Record {
	res := make([]domain.Record, n)
	for i := range n {
		url := fmt.Sprintf("https://example.com/%d", i)
		res[i] = domain.Record{ID: domain.RecordID(url), URL: url, Title: fmt.Sprintf("title %d", i),
			Category: []string{"movies", "science"}[i%2], Status: domain.StatusActive}
	}
	return res
}

func TestCollect(t *testing.T) {
	records := testRecords(25)
	s := &mocks.StoreMock{ScanFunc: pagedScan(records, 10)}

	res, err := store.Collect(context.Background(), store.ScanPages(s, store.Filter{}), 0)
	require.NoError(t, err)
	assert.Equal(t, records, res)
	require.Len(t, s.ScanCalls(), 3)
	assert.Empty(t, s.ScanCalls()[0].Cursor)
	assert.Equal(t, "10", s.ScanCalls()[1].Cursor)
	assert.Equal(t, "20", s.ScanCalls()[2].Cursor)

	limited, err := store.Collect(context.Background(), store.ScanPages(s, store.Filter{}), 12)
	require.NoError(t, err)
	assert.Equal(t, records[:12], limited)
}

func TestEach_Errors(t *testing.T) {
	t.Run("fetch error", func(t *testing.T) {
		s := &mocks.StoreMock{QueryFunc: func(context.Context, store.Query, string) (store.Page, error) {
			return store.Page{}, errors.New("boom")
		}}
		err := store.Each(context.Background(), store.QueryPages(s, store.BySource("x", "")),
			func(domain.Record) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("callback error", func(t *testing.T) {
		s := &mocks.StoreMock{ScanFunc: pagedScan(testRecords(5), 2)}
		calls := 0
		err := store.Each(context.Background(), store.ScanPages(s, store.Filter{}), func(domain.Record) error {
			calls++
			return errors.New("stop here")
		})
		require.EqualError(t, err, "stop here")
		assert.Equal(t, 1, calls)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := &mocks.StoreMock{ScanFunc: pagedScan(testRecords(5), 2)}
		err := store.Each(ctx, store.ScanPages(s, store.Filter{}), func(domain.Record) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, s.ScanCalls())
	})

	t.Run("repeated cursor ends iteration", func(t *testing.T) {
		s := &mocks.StoreMock{ScanFunc: func(context.Context, store.Filter, string) (store.Page, error) {
			return store.Page{Records: testRecords(1), Cursor: "same"}, nil
		}}
		res, err := store.Collect(context.Background(), store.ScanPages(s, store.Filter{}), 0)
		require.NoError(t, err)
		assert.Len(t, res, 2)
	})
}

func TestSummary(t *testing.T) {
	records := testRecords(5)
	records[0].Status = domain.StatusInactive
	records[1].Category = ""
	s := &mocks.StoreMock{ScanFunc: pagedScan(records, 2)}

	res, err := store.Summary(context.Background(), store.ScanPages(s, store.Filter{}))
	require.NoError(t, err)
	assert.Equal(t, []store.StatusCount{
		{Category: "movies", Status: domain.StatusActive, Count: 2},
		{Category: "movies", Status: domain.StatusInactive, Count: 1},
		{Category: "science", Status: domain.StatusActive, Count: 1},
		{Category: "uncategorized", Status: domain.StatusActive, Count: 1},
	}, res)
}

func TestQuery(t *testing.T) {
	q := store.BySource("reddit-movies", domain.StatusActive)
	require.NoError(t, q.Validate())
	assert.Equal(t, store.IndexSourceStatus, q.Index)
	assert.Equal(t, store.DefaultPageSize, q.PageSize())

	assert.Error(t, store.Query{Index: "bad", Key: "x"}.Validate())
	assert.Error(t, store.ByCategory("", "").Validate())
	assert.Equal(t, 5, store.Filter{Limit: 5}.PageSize())
}

func TestPrepare(t *testing.T) {
	r, err := store.Prepare(domain.Record{URL: "https://www.example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, domain.RecordID("https://www.example.com/a"), r.ID)
	assert.Equal(t, "example.com", r.Domain)
	assert.Equal(t, domain.StatusActive, r.Status)

	r, err = store.Prepare(domain.Record{ID: "custom", URL: "https://example.com/b"})
	require.NoError(t, err)
	assert.Equal(t, domain.RecordID("https://example.com/b"), r.ID, "id always derived from url")

	_, err = store.Prepare(domain.Record{Title: "no url"})
	assert.ErrorIs(t, err, domain.ErrMissingURL)
}

func TestApplier_Apply(t *testing.T) {
	now := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	records := testRecords(60)

	cs := domain.ChangeSet{Policy: "test"}
	for i, r := range records {
		d := domain.Decision{ID: r.ID, Action: domain.ActionKeepActive,
			Target: domain.Target{Status: r.Status, Category: r.Category, Subcategory: r.Subcategory, Tags: r.Tags}}
		switch {
		case i < 50:
			d.Action = domain.ActionDeactivate
			d.Target.Status = domain.StatusInactive
		case i == 50:
			d.Action = domain.ActionDelete
		}
		cs.Decisions = append(cs.Decisions, d)
	}
	cs.Decisions = append(cs.Decisions, domain.Decision{ID: "unknown", Action: domain.ActionKeepActive})

	t.Run("all written", func(t *testing.T) {
		var mu sync.Mutex
		written := map[string]domain.Record{}
		s := &mocks.StoreMock{
			BatchWriteFunc: func(_ context.Context, recs []domain.Record) (store.BatchResult, error) {
				mu.Lock()
				defer mu.Unlock()
				for _, r := range recs {
					written[r.ID] = r
				}
				return store.BatchResult{Written: len(recs)}, nil
			},
			DeleteFunc: func(context.Context, string) error { return nil },
		}
		a := store.NewApplier(s, store.WithBatchSize(20), store.WithConcurrency(2),
			store.WithApplyClock(func() time.Time { return now }))

		res, err := a.Apply(context.Background(), cs, records)
		require.NoError(t, err)
		assert.Equal(t, store.ApplyResult{Updated: 50, Deleted: 1, Unchanged: 9, Missing: 1}, res)
		assert.Len(t, s.BatchWriteCalls(), 3)
		require.Len(t, s.DeleteCalls(), 1)
		assert.Equal(t, records[50].ID, s.DeleteCalls()[0].ID)

		rec := written[records[0].ID]
		assert.Equal(t, domain.StatusInactive, rec.Status)
		assert.Equal(t, now, rec.UpdatedAt)
		assert.Equal(t, domain.StatusActive, records[0].Status, "input untouched")
	})

	t.Run("partial failure", func(t *testing.T) {
		s := &mocks.StoreMock{
			BatchWriteFunc: func(_ context.Context, recs []domain.Record) (store.BatchResult, error) {
				if recs[0].ID == records[0].ID {
					return store.BatchResult{}, errors.New("throttled")
				}
				return store.BatchResult{Written: len(recs) - 1, Failed: []string{recs[len(recs)-1].ID}}, nil
			},
			DeleteFunc: func(context.Context, string) error { return store.ErrNotFound },
		}
		a := store.NewApplier(s, store.WithBatchSize(25), store.WithConcurrency(1))

		res, err := a.Apply(context.Background(), cs, records)
		require.ErrorIs(t, err, store.ErrPartialFailure)
		assert.Equal(t, 24, res.Updated)
		assert.Equal(t, 1, res.Deleted, "already deleted is fine")
		assert.Len(t, res.Failed, 26)
		assert.Contains(t, res.Failed, records[0].ID)
		assert.Contains(t, res.Failed, records[49].ID)
	})

	t.Run("nothing to do", func(t *testing.T) {
		s := &mocks.StoreMock{}
		res, err := store.NewApplier(s).Apply(context.Background(), domain.ChangeSet{}, records)
		require.NoError(t, err)
		assert.Equal(t, store.ApplyResult{}, res)
	})
}
