package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-pkgz/lgr"

	"github.com/yitzyh/shtell/pkg/content"
	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/enhance"
	"github.com/yitzyh/shtell/pkg/llm"
	"github.com/yitzyh/shtell/pkg/source"
	"github.com/yitzyh/shtell/pkg/store"
	"github.com/yitzyh/shtell/server"
)

// curate runs cleanup policies, each on the records of its source
func (a *app) curate(ctx context.Context) error {
	policies, err := a.policies(a.opts.Curate.Policies, domain.PathCleanup)
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range policies {
		status := domain.StatusActive
		if p.Reactivate {
			status = "" // inactive records are candidates for reactivation
		}
		if err := a.runPolicy(ctx, "curate", p, store.BySource(p.Name, status)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// games runs the compatibility policy on records of the games category
func (a *app) games(ctx context.Context) error {
	policies, err := a.policies([]string{a.opts.Games.Policy}, domain.PathCompatibility)
	if err != nil {
		return err
	}
	status, err := parseStatus(a.opts.Games.Status)
	if err != nil {
		return err
	}
	return a.runPolicy(ctx, "games", policies[0], store.ByCategory(a.opts.Games.Category, status))
}

// archive runs archive policies, each on the records of its collection
func (a *app) archive(ctx context.Context) error {
	policies, err := a.policies(a.opts.Archive.Policies, domain.PathArchive)
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range policies {
		if err := a.runPolicy(ctx, "archive", p, store.BySource(p.Collection, "")); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) runPolicy(ctx context.Context, command string, p domain.Policy, q store.Query) error {
	records, err := a.load(ctx, store.QueryPages(a.store, q))
	if err != nil {
		return fmt.Errorf("policy %s: %w", p.Name, err)
	}
	lgr.Printf("[INFO] policy %s, %d records of %s", p.Name, len(records), q.Key)

	cs, err := a.engine.RunBatch(records, p, a.batchOptions(p.Name)...)
	if err != nil {
		return fmt.Errorf("policy %s: %w", p.Name, err)
	}
	return a.process(ctx, command, cs, records)
}

// categorize classifies records of sources, all sources known to rules if none given
func (a *app) categorize(ctx context.Context) error {
	sources := a.opts.Categorize.Sources
	if len(sources) == 0 {
		sources = slices.Sorted(maps.Keys(a.rules.Sources))
	}

	var errs []error
	for _, src := range sources {
		records, err := a.load(ctx, store.QueryPages(a.store, store.BySource(src, "")))
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src, err))
			continue
		}
		if len(records) == 0 {
			lgr.Printf("[DEBUG] source %s has no records", src)
			continue
		}
		lgr.Printf("[INFO] categorize %d records of %s", len(records), src)
		if err := a.process(ctx, "categorize", a.engine.Categorize(records, a.batchOptions(src)...), records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// enhance fills missing metadata of active records and writes changed records with --apply
func (a *app) enhance(ctx context.Context) error {
	filter := store.Filter{Sources: a.opts.Enhance.Sources, Categories: a.opts.Enhance.Categories,
		Statuses: []domain.Status{domain.StatusActive}}
	records, err := a.load(ctx, store.ScanPages(a.store, filter))
	if err != nil {
		return err
	}

	ext := a.cfg.Extraction
	opts := []enhance.Option{enhance.WithConcurrency(ext.MaxConcurrent), enhance.WithRateLimit(ext.RateLimit),
		enhance.WithMinTextLength(ext.MinTextLength)}
	if a.cfg.LLM.Enabled {
		opts = append(opts, enhance.WithSummarizer(llm.NewSummarizer(a.cfg.LLM), a.cfg.LLM.BatchSize))
	}
	enhancer := enhance.New(content.NewHTTPExtractor(ext.Timeout, ext.UserAgent), opts...)

	entry := runEntry{command: "enhance", started: a.now(), stats: domain.NewStats()}
	res, err := enhancer.Enhance(ctx, records)
	if err != nil {
		return fmt.Errorf("enhance: %w", err)
	}
	entry.result = res
	entry.stats.Total, entry.stats.Skipped = res.Checked, len(res.Failed)
	for _, r := range res.Records {
		entry.stats.PerSource[r.Source]++
		entry.stats.PerCategory[r.Category]++
	}

	written, failed := 0, 0
	if a.opts.Apply && len(res.Records) > 0 {
		br, werr := a.store.BatchWrite(ctx, res.Records)
		written, failed = br.Written, len(br.Failed)
		entry.applied = store.ApplyResult{Updated: br.Written, Failed: br.Failed}
		if werr != nil {
			entry.err = fmt.Errorf("write enhanced records: %w", werr)
		} else if failed > 0 {
			entry.err = fmt.Errorf("write enhanced records: %w", store.ErrPartialFailure)
		}
		a.metrics.ObserveWrite(written, failed)
	}
	a.record(ctx, entry)

	if err := a.printEnhance(res, written, failed); err != nil {
		return err
	}
	return entry.err
}

// ingest collects new feed items, classified and scored before writing
func (a *app) ingest(ctx context.Context) error {
	feeds := a.cfg.Sources
	if names := a.opts.Ingest.Feeds; len(names) > 0 {
		feeds = slices.DeleteFunc(slices.Clone(feeds), func(f source.Feed) bool { return !slices.Contains(names, f.Name) })
		if len(feeds) == 0 {
			return fmt.Errorf("no configured feeds named %v", names)
		}
	}

	opts := []source.IngestOption{source.WithConcurrency(a.cfg.Ingest.Concurrency), source.WithTransform(a.classify)}
	if a.repos != nil {
		opts = append(opts, source.WithState(a.repos.State))
	}
	ingester := source.NewIngester(source.NewFetcher(a.cfg.Ingest.Timeout, a.cfg.Ingest.UserAgent), a.store, opts...)

	entry := runEntry{command: "ingest", started: a.now(), stats: domain.NewStats()}
	res, err := ingester.Run(ctx, feeds, a.opts.Apply)
	entry.result, entry.err = res, err
	entry.stats.Total, entry.stats.Skipped = len(res.Records), res.Existing
	for _, r := range res.Records {
		entry.stats.PerSource[r.Source]++
		entry.stats.PerCategory[r.Category]++
	}
	if a.opts.Apply {
		entry.applied = store.ApplyResult{Updated: res.Written, Failed: res.Failed}
		a.metrics.ObserveWrite(res.Written, len(res.Failed))
	}
	a.record(ctx, entry)

	if perr := a.printIngest(res); perr != nil {
		return perr
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// classify sets category, subcategory, tags and quality of a new record, feed tags are kept
func (a *app) classify(r domain.Record) domain.Record {
	cls := a.engine.Classify(r, r.Tags...)
	r.Category, r.Subcategory, r.Tags = cls.Category, cls.Subcategory, cls.Tags
	r.QualityScore = a.engine.ScoreQuality(r)
	return r
}

// status prints record counts per category and status
func (a *app) status(ctx context.Context) error {
	sources, categories := a.opts.Status.Sources, a.opts.Status.Categories
	var fetch store.PageFunc
	switch {
	case len(sources) == 1 && len(categories) == 0:
		fetch = store.QueryPages(a.store, store.BySource(sources[0], ""))
	case len(categories) == 1 && len(sources) == 0:
		fetch = store.QueryPages(a.store, store.ByCategory(categories[0], ""))
	default:
		fetch = store.ScanPages(a.store, store.Filter{Sources: sources, Categories: categories})
	}

	counts, err := store.Summary(ctx, fetch)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	a.metrics.ObserveSummary(counts)
	return a.printStatus(counts)
}

// serve runs the read API until the context is canceled
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg.Server
	if a.opts.Serve.Listen != "" {
		cfg.Listen = a.opts.Serve.Listen
	}
	srv := server.New(cfg, a.store, revision, a.opts.Debug, server.WithMetrics(a.metrics.Handler()))
	return srv.Run(ctx)
}
