package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/oklog/ulid/v2"

	"github.com/yitzyh/shtell/pkg/config"
	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/dynamo"
	"github.com/yitzyh/shtell/pkg/engine"
	"github.com/yitzyh/shtell/pkg/export"
	"github.com/yitzyh/shtell/pkg/metrics"
	"github.com/yitzyh/shtell/pkg/repository"
	"github.com/yitzyh/shtell/pkg/rules"
	"github.com/yitzyh/shtell/pkg/store"
)

// app holds collaborators shared by all commands
type app struct {
	opts     Opts
	cfg      *config.Config
	rules    *rules.Rules
	engine   *engine.Engine
	store    store.Store
	repos    *repository.Repositories // sqlite backend only, keeps run journal and ingest state
	metrics  *metrics.Recorder
	exporter *export.Exporter
	out      io.Writer
	now      func() time.Time
}

// run executes the command, records run metrics and pushes them
func run(ctx context.Context, opts Opts, command string, out io.Writer) error {
	a, err := newApp(ctx, opts, out)
	if err != nil {
		return err
	}
	defer a.close()

	if command == "serve" {
		return a.serve(ctx)
	}

	started := a.now()
	switch command {
	case "curate":
		err = a.curate(ctx)
	case "games":
		err = a.games(ctx)
	case "categorize":
		err = a.categorize(ctx)
	case "archive":
		err = a.archive(ctx)
	case "enhance":
		err = a.enhance(ctx)
	case "ingest":
		err = a.ingest(ctx)
	case "status":
		err = a.status(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	a.observe(ctx, command, started, err)
	return err
}

// observe records the run result and pushes metrics of the command
func (a *app) observe(ctx context.Context, command string, started time.Time, err error) {
	a.metrics.ObserveRun(a.opts.Apply, a.now().Sub(started), err)
	if perr := a.metrics.Push(ctx, a.cfg.Metrics.PushURL, a.cfg.Metrics.Job, command); perr != nil {
		lgr.Printf("[WARN] %v", perr)
	}
}

func newApp(ctx context.Context, opts Opts, out io.Writer) (*app, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	rulesPath := cfg.Rules.Path
	if opts.Rules != "" {
		rulesPath = opts.Rules
	}
	rl, err := rules.Load(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	lgr.Printf("[DEBUG] rules version %s", rl.Version)

	exporter, err := export.NewFromConfig(ctx, cfg.Export)
	if err != nil {
		return nil, fmt.Errorf("failed to make exporter: %w", err)
	}

	a := &app{
		opts:     opts,
		cfg:      cfg,
		rules:    rl,
		engine:   engine.New(rl),
		metrics:  metrics.New(),
		exporter: exporter,
		out:      out,
		now:      time.Now,
	}

	switch cfg.Storage.Backend {
	case config.BackendDynamo:
		dc := cfg.Storage.Dynamo
		st, err := dynamo.New(ctx, dynamo.Config{Table: dc.Table, Region: dc.Region, Endpoint: dc.Endpoint,
			AccessKeyID: dc.AccessKeyID, SecretAccessKey: dc.SecretAccessKey})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to dynamodb: %w", err)
		}
		a.store = st
		lgr.Printf("[DEBUG] dynamodb table %s in %s", dc.Table, dc.Region)
	default:
		sc := cfg.Storage.SQLite
		repos, err := repository.NewRepositories(ctx, repository.Config{DSN: sc.DSN, MaxOpenConns: sc.MaxOpenConns,
			MaxIdleConns: sc.MaxIdleConns, ConnMaxLifetime: time.Duration(sc.ConnMaxLifetime) * time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.repos, a.store = repos, repos.Webpages
	}
	return a, nil
}

func (a *app) close() {
	if a.repos == nil {
		return
	}
	if err := a.repos.Close(); err != nil {
		lgr.Printf("[WARN] failed to close database: %v", err)
	}
}

// load collects records of the page function up to the --limit
func (a *app) load(ctx context.Context, fetch store.PageFunc) ([]domain.Record, error) {
	records, err := store.Collect(ctx, fetch, a.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

func (a *app) batchOptions(name string) []engine.BatchOption {
	return []engine.BatchOption{
		engine.WithChunkSize(a.cfg.Apply.ChunkSize),
		engine.WithProgress(func(done, total int) {
			lgr.Printf("[DEBUG] %s: %d/%d records", name, done, total)
		}),
	}
}

// runEntry is what a finished command leaves in the journal, export and metrics
type runEntry struct {
	command   string
	policy    string
	started   time.Time
	changeSet *domain.ChangeSet
	stats     domain.Stats
	applied   store.ApplyResult
	result    any
	err       error
}

// process applies the change-set with --apply and records the run
func (a *app) process(ctx context.Context, command string, cs domain.ChangeSet, records []domain.Record) error {
	entry := runEntry{command: command, policy: cs.Policy, started: a.now(), changeSet: &cs, stats: cs.Stats}
	if a.opts.Apply {
		applier := store.NewApplier(a.store, store.WithBatchSize(a.cfg.Apply.BatchSize),
			store.WithConcurrency(a.cfg.Apply.Concurrency))
		entry.applied, entry.err = applier.Apply(ctx, cs, records)
		entry.result = entry.applied
		a.metrics.ObserveWrite(entry.applied.Updated+entry.applied.Deleted, len(entry.applied.Failed))
	}
	a.metrics.ObserveChangeSet(cs)
	a.record(ctx, entry)

	if err := a.printChangeSet(cs, entry.applied); err != nil {
		return err
	}
	if entry.err != nil {
		return fmt.Errorf("apply %s: %w", cs.Policy, entry.err)
	}
	return nil
}

// record writes the run to the journal and exports it, failures are logged only
func (a *app) record(ctx context.Context, e runEntry) {
	run := repository.Run{Command: e.command, Policy: e.policy, RulesVersion: a.rules.Version,
		DryRun: !a.opts.Apply, StartedAt: e.started}
	if e.err != nil {
		run.Error = e.err.Error()
	}

	if a.repos != nil {
		started, err := a.repos.Runs.Start(ctx, run)
		if err != nil {
			lgr.Printf("[WARN] failed to journal run: %v", err)
		} else {
			run = started
			run.Stats, run.Applied = e.stats, e.applied
			if err := a.repos.Runs.Finish(ctx, run); err != nil {
				lgr.Printf("[WARN] failed to finish run %s: %v", run.ID, err)
			}
		}
	}
	if run.ID == "" {
		run.ID = ulid.MustNew(ulid.Timestamp(e.started), ulid.DefaultEntropy()).String()
	}

	doc := export.Document{RunID: run.ID, Command: e.command, Policy: e.policy, RulesVersion: a.rules.Version,
		DryRun: !a.opts.Apply, CreatedAt: e.started, ChangeSet: e.changeSet, Result: e.result}
	if _, err := a.exporter.Export(ctx, doc); err != nil {
		lgr.Printf("[WARN] failed to export run %s: %v", run.ID, err)
	}
}

// policies resolves names to policies of the path, all policies of the path if names are empty
func (a *app) policies(names []string, path domain.DecisionPath) ([]domain.Policy, error) {
	if len(names) == 0 {
		names = a.rules.PolicyNames(path)
	}
	res := make([]domain.Policy, 0, len(names))
	var errs []error
	for _, name := range names {
		p, ok := a.rules.Policy(name)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown policy %q, known: %s", name,
				strings.Join(a.rules.PolicyNames(path), ", ")))
			continue
		}
		if p.EffectivePath() != path {
			errs = append(errs, fmt.Errorf("policy %q is %s, not %s", name, p.EffectivePath(), path))
			continue
		}
		res = append(res, p)
	}
	return res, errors.Join(errs...)
}

// parseStatus converts the status flag, "all" and empty give no status filter
func parseStatus(s string) (domain.Status, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	return domain.ParseStatus(s)
}
