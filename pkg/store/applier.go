package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/yitzyh/shtell/pkg/domain"
)

// ErrPartialFailure is returned by Apply when some records were not written
var ErrPartialFailure = errors.New("change-set applied partially")

// Applier writes change-sets produced by the engine to the store.
// Every decision carries the full target state, so re-applying a change-set after a partial
// failure converges to the same result.
type Applier struct {
	store       Store
	batchSize   int
	concurrency int
	now         func() time.Time
}

// ApplierOption configures Applier
type ApplierOption func(*Applier)

// WithBatchSize sets the number of records per BatchWrite call
func WithBatchSize(n int) ApplierOption {
	return func(a *Applier) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithConcurrency sets the number of batches written in parallel
func WithConcurrency(n int) ApplierOption {
	return func(a *Applier) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithApplyClock sets the clock for updated_at stamps
func WithApplyClock(now func() time.Time) ApplierOption {
	return func(a *Applier) { a.now = now }
}

// NewApplier makes Applier for the store, 25 records per batch and 4 concurrent batches by default
func NewApplier(s Store, opts ...ApplierOption) *Applier {
	res := &Applier{store: s, batchSize: 25, concurrency: 4, now: time.Now}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// ApplyResult reports what Apply did
type ApplyResult struct {
	Updated   int      `json:"updated"`
	Deleted   int      `json:"deleted"`
	Unchanged int      `json:"unchanged"`
	Missing   int      `json:"missing"`
	Failed    []string `json:"failed,omitempty"`
}

// Apply merges decisions into the records they were made for and writes changed ones.
// Records are matched by id, decisions for unknown ids are counted as missing.
// Failed ids are reported in the result together with ErrPartialFailure, the caller may retry them.
func (a *Applier) Apply(ctx context.Context, cs domain.ChangeSet, records []domain.Record) (ApplyResult, error) {
	byID := make(map[string]domain.Record, len(records))
	for _, r := range records {
		id := r.ID
		if r.URL != "" {
			id = domain.RecordID(r.URL)
		}
		byID[id] = r
	}

	res := ApplyResult{}
	now := a.now()
	var writes []domain.Record
	var deletes []string
	for _, d := range cs.Decisions {
		rec, ok := byID[d.ID]
		if !ok {
			res.Missing++
			continue
		}
		if d.Action == domain.ActionDelete {
			deletes = append(deletes, d.ID)
			continue
		}
		updated, changed := d.Target.Apply(rec, now)
		if !changed {
			res.Unchanged++
			continue
		}
		updated.ID = d.ID
		writes = append(writes, updated)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for start := 0; start < len(writes); start += a.batchSize {
		batch := writes[start:min(start+a.batchSize, len(writes))]
		g.Go(func() error {
			br, err := a.store.BatchWrite(gctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lgr.Printf("[WARN] batch write of %d records failed: %v", len(batch), err)
				for _, r := range batch {
					res.Failed = append(res.Failed, r.ID)
				}
				return nil
			}
			res.Updated += br.Written
			res.Failed = append(res.Failed, br.Failed...)
			return nil
		})
	}

	for _, id := range deletes {
		g.Go(func() error {
			err := a.store.Delete(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && !errors.Is(err, ErrNotFound) {
				lgr.Printf("[WARN] delete %s failed: %v", id, err)
				res.Failed = append(res.Failed, id)
				return nil
			}
			res.Deleted++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("apply change-set: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("apply change-set: %w", err)
	}
	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d records failed", ErrPartialFailure, len(res.Failed), len(writes)+len(deletes))
	}
	lgr.Printf("[INFO] applied change-set %s: %d updated, %d deleted, %d unchanged",
		cs.Policy, res.Updated, res.Deleted, res.Unchanged)
	return res, nil
}
