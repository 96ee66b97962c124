package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/repository"
	"github.com/yitzyh/shtell/pkg/store"
)

type testEnv struct {
	config    string
	dsn       string
	exportDir string
}

// newTestEnv writes config with a temporary sqlite database and export dir, extra yaml is appended
func newTestEnv(t *testing.T, extra string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dsn:       "file:" + filepath.Join(dir, "test.db") + "?mode=rwc&_txlock=immediate",
		exportDir: filepath.Join(dir, "export"),
		config:    filepath.Join(dir, "config.yml"),
	}
	cfg := fmt.Sprintf("storage:\n  backend: sqlite\n  sqlite:\n    dsn: %q\n    max_open_conns: 1\n"+
		"export:\n  dir: %q\n%s", env.dsn, env.exportDir, extra)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))
	return env
}

func (e testEnv) open(t *testing.T) *repository.Repositories {
	t.Helper()
	repos, err := repository.NewRepositories(context.Background(), repository.Config{DSN: e.dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return repos
}

func (e testEnv) seed(t *testing.T, records ...domain.Record) {
	t.Helper()
	repos, err := repository.NewRepositories(context.Background(), repository.Config{DSN: e.dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	defer repos.Close()
	for _, r := range records {
		require.NoError(t, repos.Webpages.Put(context.Background(), r))
	}
}

func newTestRecord(t *testing.T, url, title, src string, upvotes int) domain.Record {
	t.Helper()
	r, err := domain.NewRecord(url, title, src)
	require.NoError(t, err)
	r.Engagement.Upvotes = upvotes
	return r
}

func movieRecords(t *testing.T) []domain.Record {
	t.Helper()
	return []domain.Record{
		newTestRecord(t, "https://example.com/analysis", "Film analysis of the classic era", "reddit-movies", 120),
		newTestRecord(t, "https://example.com/trailer", "Official trailer released", "reddit-movies", 300),
		newTestRecord(t, "https://example.com/quiet", "some quiet post", "reddit-movies", 3),
	}
}

func TestRun_MissingConfig(t *testing.T) {
	opts := Opts{Config: "non-existent-config.yml"}
	err := run(context.Background(), opts, "status", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "invalid.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("invalid: yaml: content: ["), 0o600))

	err := run(context.Background(), Opts{Config: cfgFile}, "status", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_UnknownCommand(t *testing.T) {
	env := newTestEnv(t, "")
	err := run(context.Background(), Opts{Config: env.config}, "bogus", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "bogus"`)
}

func TestRun_CurateDryRunAndApply(t *testing.T) {
	env := newTestEnv(t, "")
	records := movieRecords(t)
	env.seed(t, records...)

	opts := Opts{Config: env.config}
	opts.Curate.Policies = []string{"reddit-movies"}

	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), opts, "curate", out))
	assert.Contains(t, out.String(), "reddit-movies: 3 records, 0 skipped (dry-run)")
	assert.Contains(t, out.String(), "Official trailer released")
	assert.NotContains(t, out.String(), "updated")

	repos := env.open(t)
	for _, r := range records {
		got, err := repos.Webpages.Get(context.Background(), r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, got.Status, "dry-run keeps %s", r.Title)
	}
	require.NoError(t, repos.Close())

	opts.Apply = true
	out.Reset()
	require.NoError(t, run(context.Background(), opts, "curate", out))
	assert.Contains(t, out.String(), "(applied)")
	assert.Contains(t, out.String(), "deleted 0")

	repos = env.open(t)
	want := map[string]domain.Status{
		records[0].ID: domain.StatusActive,
		records[1].ID: domain.StatusInactive,
		records[2].ID: domain.StatusInactive,
	}
	for id, status := range want {
		got, err := repos.Webpages.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status, got.Title)
		assert.Equal(t, "movies", got.Category, got.Title)
	}

	runs, err := repos.Runs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	dryRuns := 0
	for _, r := range runs {
		assert.Equal(t, "curate", r.Command)
		assert.Equal(t, "reddit-movies", r.Policy)
		assert.Equal(t, 3, r.Stats.Total)
		if r.DryRun {
			dryRuns++
		}
	}
	assert.Equal(t, 1, dryRuns)

	exported, err := filepath.Glob(filepath.Join(env.exportDir, "*", "*", "*.json"))
	require.NoError(t, err)
	assert.Len(t, exported, 2)
}

func TestRun_CurateJSON(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t, movieRecords(t)...)

	opts := Opts{Config: env.config, JSON: true}
	opts.Curate.Policies = []string{"reddit-movies"}
	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), opts, "curate", out))

	var rep changeSetReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.True(t, rep.DryRun)
	assert.Nil(t, rep.Applied)
	assert.Equal(t, "reddit-movies", rep.ChangeSet.Policy)
	assert.Len(t, rep.ChangeSet.Decisions, 3)
	assert.Equal(t, 2, rep.ChangeSet.Stats.PerAction[domain.ActionDeactivate])
}

func TestRun_PolicyErrors(t *testing.T) {
	env := newTestEnv(t, "")

	t.Run("unknown policy", func(t *testing.T) {
		opts := Opts{Config: env.config}
		opts.Curate.Policies = []string{"reddit-nope"}
		err := run(context.Background(), opts, "curate", &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown policy "reddit-nope"`)
	})

	t.Run("wrong path", func(t *testing.T) {
		opts := Opts{Config: env.config}
		opts.Games.Policy, opts.Games.Category, opts.Games.Status = "reddit-movies", "webgames", "all"
		err := run(context.Background(), opts, "games", &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not compatibility")
	})

	t.Run("bad status", func(t *testing.T) {
		opts := Opts{Config: env.config}
		opts.Games.Policy, opts.Games.Category, opts.Games.Status = "webgames", "webgames", "sleeping"
		err := run(context.Background(), opts, "games", &bytes.Buffer{})
		require.Error(t, err)
	})
}

func TestRun_Status(t *testing.T) {
	env := newTestEnv(t, "")
	records := movieRecords(t)
	records[2].Status = domain.StatusInactive
	records = append(records, newTestRecord(t, "https://example.com/space", "Galaxy formation", "reddit-space", 40))
	records[3].Category = "science"
	for i := range records[:3] {
		records[i].Category = "movies"
	}
	env.seed(t, records...)

	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), Opts{Config: env.config}, "status", out))
	assert.Contains(t, out.String(), "CATEGORY")
	assert.Regexp(t, `movies\s+active\s+2`, out.String())
	assert.Regexp(t, `movies\s+inactive\s+1`, out.String())
	assert.Regexp(t, `science\s+active\s+1`, out.String())
	assert.Regexp(t, `total\s+4`, out.String())

	opts := Opts{Config: env.config, JSON: true}
	opts.Status.Categories = []string{"movies"}
	out.Reset()
	require.NoError(t, run(context.Background(), opts, "status", out))
	var counts []store.StatusCount
	require.NoError(t, json.Unmarshal(out.Bytes(), &counts))
	assert.Equal(t, []store.StatusCount{
		{Category: "movies", Status: domain.StatusActive, Count: 2},
		{Category: "movies", Status: domain.StatusInactive, Count: 1},
	}, counts)
}

func TestRun_Categorize(t *testing.T) {
	env := newTestEnv(t, "")
	rec := newTestRecord(t, "https://example.com/black-hole", "Black hole physics research", "reddit-space", 40)
	rec.Status = domain.StatusInactive
	env.seed(t, rec)

	opts := Opts{Config: env.config, Apply: true}
	opts.Categorize.Sources = []string{"reddit-space", "reddit-movies"}
	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), opts, "categorize", out))
	assert.Contains(t, out.String(), "categorize: 1 records")

	got, err := env.open(t).Webpages.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "science", got.Category)
	assert.NotEmpty(t, got.Subcategory)
	assert.Contains(t, got.Tags, "reddit")
	assert.Equal(t, domain.StatusInactive, got.Status, "categorize keeps status")
}

func TestRun_Ingest(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>test</title>
<item><title>Go concurrency patterns</title><link>https://example.com/go</link>
<description>&lt;p&gt;channels and goroutines&lt;/p&gt;</description><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
<item><title>Rust ownership</title><link>https://example.com/rust</link>
<pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate></item>
</channel></rss>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed))
	}))
	defer ts.Close()

	env := newTestEnv(t, fmt.Sprintf("sources:\n  - name: test-feed\n    url: %q\n    category: technology\n    tags: [dev]\n", ts.URL))
	env.seed(t, newTestRecord(t, "https://example.com/rust", "Rust ownership", "test-feed", 0))

	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), Opts{Config: env.config, Apply: true}, "ingest", out))
	assert.Contains(t, out.String(), "new 1, already stored 1")
	assert.Contains(t, out.String(), "written 1, failed 0")

	repos := env.open(t)
	got, err := repos.Webpages.Get(context.Background(), "https://example.com/go")
	require.NoError(t, err)
	assert.Equal(t, "Go concurrency patterns", got.Title)
	assert.Equal(t, "technology", got.Category)
	assert.Equal(t, "channels and goroutines", got.Description)
	assert.Contains(t, got.Tags, "dev")
	assert.Positive(t, got.QualityScore)

	last, err := repos.State.LastIngest(context.Background(), "test-feed")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2006, 1, 3, 15, 4, 5, 0, time.UTC), last)
}

func TestRun_IngestUnknownFeed(t *testing.T) {
	env := newTestEnv(t, "")
	opts := Opts{Config: env.config}
	opts.Ingest.Feeds = []string{"nope"}
	err := run(context.Background(), opts, "ingest", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configured feeds")
}

func TestRun_Enhance(t *testing.T) {
	page := `<html lang="en-US"><head><title>Deep dive</title>
<meta name="description" content="A long read about storage engines">
<meta property="og:image" content="/cover.png"></head>
<body><article><h1>Deep dive</h1><p>Storage engines keep data on disk in pages and logs.</p></article></body></html>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/article" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer ts.Close()

	env := newTestEnv(t, "extraction:\n  rate_limit: 1ms\n  timeout: 5s\n")
	ok := newTestRecord(t, ts.URL+"/article", "Deep dive", "hackernews", 10)
	missing := newTestRecord(t, ts.URL+"/missing", "Gone", "hackernews", 10)
	env.seed(t, ok, missing)

	opts := Opts{Config: env.config, Apply: true}
	opts.Enhance.Sources = []string{"hackernews"}
	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), opts, "enhance", out))
	assert.Contains(t, out.String(), "checked 2, complete 0, enhanced 1")
	assert.Contains(t, out.String(), "failed "+missing.ID)

	got, err := env.open(t).Webpages.Get(context.Background(), ok.ID)
	require.NoError(t, err)
	assert.Equal(t, "A long read about storage engines", got.Description)
	assert.Equal(t, ts.URL+"/cover.png", got.ThumbnailURL)
	assert.Equal(t, "en", got.Language)
}

func TestRun_Serve(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t, movieRecords(t)...)

	port := freePort(t)
	opts := Opts{Config: env.config}
	opts.Serve.Listen = fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, opts, "serve", &bytes.Buffer{}) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get(base + "/api/v1/webpages?source=reddit-movies")
	require.NoError(t, err)
	var list struct {
		Webpages []domain.Record `json:"webpages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Len(t, list.Webpages, 3)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
