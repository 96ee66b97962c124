package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/source"
	"github.com/yitzyh/shtell/pkg/store"
)

func TestApp_printChangeSet_Order(t *testing.T) {
	buf := &bytes.Buffer{}
	a := &app{out: buf}

	cs := domain.ChangeSet{Policy: "webgames", Stats: domain.NewStats()}
	cs.Stats.Total = 3
	cs.Stats.PerAction[domain.ActionNeedsReview] = 2
	cs.Stats.PerAction[domain.ActionDeactivate] = 1
	cs.Stats.PerCategory["webgames"] = 2
	cs.Stats.PerCategory["art"] = 1
	cs.Stats.PerReview[domain.ReviewTestRecommended] = 2
	cs.Stats.PerReview[domain.ReviewKeepDesktopOnly] = 1
	require.NoError(t, a.printChangeSet(cs, store.ApplyResult{}))

	out := buf.String()
	assert.Contains(t, out, "webgames: 3 records, 0 skipped (dry-run)")
	ordered := []string{"category art", "category webgames", "review keep-desktop-only", "review test-recommended"}
	prev := -1
	for _, s := range ordered {
		idx := strings.Index(out, s)
		require.NotEqual(t, -1, idx, s)
		assert.Greater(t, idx, prev, s)
		prev = idx
	}
}

func TestApp_printIngest_Order(t *testing.T) {
	buf := &bytes.Buffer{}
	a := &app{out: buf}
	res := source.IngestResult{PerFeed: map[string]int{"reddit-space": 2, "designboom": 1, "medium-design": 0}}
	require.NoError(t, a.printIngest(res))

	out := buf.String()
	d, m, r := strings.Index(out, "designboom"), strings.Index(out, "medium-design"), strings.Index(out, "reddit-space")
	assert.True(t, d < m && m < r, out)
}
