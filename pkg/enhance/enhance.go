// Package enhance fills missing metadata of webpage records. Page text is extracted to get word
// count, thumbnail, description and language, and optional AI summaries with topics are made in
// batches. Only empty fields are filled, curated values are never replaced.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/yitzyh/shtell/pkg/content"
	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/engine"
	"github.com/yitzyh/shtell/pkg/llm"
)

//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor
//go:generate moq -out mocks/summarizer.go -pkg mocks -skip-ensure -fmt goimports . Summarizer

// Extractor retrieves a page by url
type Extractor interface {
	Extract(ctx context.Context, url string) (content.Page, error)
}

// Summarizer makes summaries of pages
type Summarizer interface {
	Summarize(ctx context.Context, pages []llm.Page) ([]llm.Summary, error)
}

// Enhancer fills missing metadata of records
type Enhancer struct {
	extractor     Extractor
	summarizer    Summarizer
	batchSize     int
	concurrency   int
	rateLimit     time.Duration
	minTextLength int
}

// Option configures Enhancer
type Option func(*Enhancer)

// WithSummarizer enables AI summaries made in batches of batchSize pages
func WithSummarizer(s Summarizer, batchSize int) Option {
	return func(e *Enhancer) {
		e.summarizer = s
		if batchSize > 0 {
			e.batchSize = batchSize
		}
	}
}

// WithConcurrency sets the number of pages extracted in parallel
func WithConcurrency(n int) Option {
	return func(e *Enhancer) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRateLimit sets the minimal interval between starts of two extractions, zero disables it
func WithRateLimit(d time.Duration) Option {
	return func(e *Enhancer) { e.rateLimit = d }
}

// WithMinTextLength sets the shortest page text sent to the summarizer
func WithMinTextLength(n int) Option {
	return func(e *Enhancer) { e.minTextLength = n }
}

// New makes Enhancer
func New(extractor Extractor, opts ...Option) *Enhancer {
	res := &Enhancer{extractor: extractor, batchSize: 5, concurrency: 5, minTextLength: 100}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Result reports an enhancement run. Records holds the changed records only, in input order.
type Result struct {
	Records    []domain.Record   `json:"records"`
	Checked    int               `json:"checked"`
	Complete   int               `json:"complete"`
	Enhanced   int               `json:"enhanced"`
	Summarized int               `json:"summarized"`
	Failed     map[string]string `json:"failed,omitempty"`
}

// NeedsEnhancement reports whether any field the enhancer fills is empty
func (e *Enhancer) NeedsEnhancement(r domain.Record) bool {
	if r.WordCount == 0 || r.ThumbnailURL == "" || r.Description == "" || r.Language == "" {
		return true
	}
	return e.summarizer != nil && r.AISummary == ""
}

// Enhance extracts pages of records with missing metadata and fills the empty fields.
// Failed extractions and summaries are reported per record and don't stop the run,
// only a canceled context does. Input records are not modified.
func (e *Enhancer) Enhance(ctx context.Context, records []domain.Record) (Result, error) {
	res := Result{Checked: len(records), Failed: map[string]string{}}

	pending := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			res.Failed[r.ID] = err.Error()
			continue
		}
		if !e.NeedsEnhancement(r) {
			res.Complete++
			continue
		}
		pending = append(pending, r.Clone())
	}
	if len(pending) == 0 {
		return res, nil
	}
	lgr.Printf("[INFO] enhancing %d of %d records", len(pending), len(records))

	pages, err := e.extract(ctx, pending, res.Failed)
	if err != nil {
		return res, err
	}

	changed := make([]bool, len(pending))
	for i, p := range pages {
		if p == nil {
			continue
		}
		changed[i] = fillFromPage(&pending[i], *p)
	}

	if e.summarizer != nil {
		summarized, err := e.summarize(ctx, pending, pages, changed, res.Failed)
		if err != nil {
			return res, err
		}
		res.Summarized = summarized
	}

	for i, r := range pending {
		if changed[i] {
			res.Records = append(res.Records, r)
		}
	}
	res.Enhanced = len(res.Records)
	return res, nil
}

// extract runs extractions with bounded concurrency, the result has nil for failed records
func (e *Enhancer) extract(ctx context.Context, records []domain.Record, failed map[string]string) ([]*content.Page, error) {
	pages := make([]*content.Page, len(records))
	var mu sync.Mutex

	var tick <-chan time.Time
	if e.rateLimit > 0 {
		ticker := time.NewTicker(e.rateLimit)
		defer ticker.Stop()
		tick = ticker.C
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, r := range records {
		if tick != nil && i > 0 {
			select {
			case <-tick:
			case <-gctx.Done():
			}
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			page, err := e.extractor.Extract(gctx, r.URL)
			if err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return ctx.Err()
				}
				lgr.Printf("[WARN] failed to extract %s: %v", r.URL, err)
				mu.Lock()
				failed[r.ID] = fmt.Sprintf("extract: %v", err)
				mu.Unlock()
				return nil
			}
			pages[i] = &page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	return pages, nil
}

// summarize sends records without summary to the summarizer in batches and returns the number of
// records summarized. A failed batch is reported for each of its records.
func (e *Enhancer) summarize(ctx context.Context, records []domain.Record, pages []*content.Page,
	changed []bool, failed map[string]string) (int, error) {

	var batch []llm.Page
	idx := map[string]int{}
	count := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		defer func() { batch = nil }()
		summaries, err := e.summarizer.Summarize(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("summarize: %w", ctx.Err())
			}
			lgr.Printf("[WARN] failed to summarize %d pages: %v", len(batch), err)
			for _, p := range batch {
				failed[p.ID] = fmt.Sprintf("summarize: %v", err)
			}
			return nil
		}
		for _, s := range summaries {
			i, ok := idx[s.ID]
			if !ok {
				continue
			}
			r := &records[i]
			r.AISummary = s.Summary
			r.Tags = engine.NormalizeTags(append(r.Tags, s.Topics...))
			changed[i] = true
			count++
		}
		return nil
	}

	for i, r := range records {
		if r.AISummary != "" || pages[i] == nil {
			continue
		}
		text := strings.TrimSpace(pages[i].Text)
		if utf8.RuneCountInString(text) < e.minTextLength {
			if r.Description == "" {
				lgr.Printf("[DEBUG] no text to summarize for %s", r.URL)
				continue
			}
			text = ""
		}
		idx[r.ID] = i
		batch = append(batch, llm.Page{ID: r.ID, Title: r.Title, Description: r.Description, Content: text})
		if len(batch) >= e.batchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}

// fillFromPage sets empty fields of the record from the page and reports if anything changed
func fillFromPage(r *domain.Record, p content.Page) bool {
	changed := false
	set := func(dst *string, val string) {
		if *dst == "" && strings.TrimSpace(val) != "" {
			*dst = strings.TrimSpace(val)
			changed = true
		}
	}
	set(&r.ThumbnailURL, p.Image)
	set(&r.Description, p.Description)
	set(&r.Language, p.Language)
	set(&r.Title, p.Title)
	if r.WordCount == 0 && p.WordCount > 0 {
		r.WordCount = p.WordCount
		changed = true
	}
	return changed
}
