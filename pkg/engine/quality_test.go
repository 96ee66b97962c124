package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/rules"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	r, err := rules.Default()
	require.NoError(t, err)
	return New(r, opts...)
}

func TestEngine_ScoreQuality(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		rec  domain.Record
		want int
	}{
		{name: "empty record", rec: domain.Record{}, want: 50},
		{name: "title only", rec: domain.Record{Title: "something"}, want: 55},
		{name: "blank title ignored", rec: domain.Record{Title: "   "}, want: 50},
		{name: "upvotes 15", rec: domain.Record{Engagement: domain.Engagement{Upvotes: 15}}, want: 55},
		{name: "upvotes 60", rec: domain.Record{Engagement: domain.Engagement{Upvotes: 60}}, want: 60},
		{name: "upvotes 150", rec: domain.Record{Engagement: domain.Engagement{Upvotes: 150}}, want: 70},
		{name: "upvotes 1000 same bracket", rec: domain.Record{Engagement: domain.Engagement{Upvotes: 1000}}, want: 70},
		{name: "upvotes on boundary", rec: domain.Record{Engagement: domain.Engagement{Upvotes: 100}}, want: 60},
		{name: "downloads 5000", rec: domain.Record{Engagement: domain.Engagement{Downloads: 5000}}, want: 60},
		{name: "larger of upvotes and downloads",
			rec: domain.Record{Engagement: domain.Engagement{Upvotes: 20, Downloads: 20000}}, want: 70},
		{name: "interactions", rec: domain.Record{Engagement: domain.Engagement{Interactions: 51}}, want: 55},
		{name: "words", rec: domain.Record{WordCount: 2500}, want: 60},
		{name: "everything", rec: domain.Record{
			Title: "t", ThumbnailURL: "http://img", AISummary: "summary", Tags: []string{"a"}, WordCount: 600,
			Engagement: domain.Engagement{Upvotes: 500, Interactions: 100},
		}, want: 95},
		{name: "capped at 100", rec: domain.Record{
			Title: "t", ThumbnailURL: "http://img", AISummary: "summary", Tags: []string{"a"}, WordCount: 3000,
			Engagement: domain.Engagement{Upvotes: 500, Interactions: 100},
		}, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ScoreQuality(tt.rec)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, e.ScoreQuality(tt.rec), "deterministic")
		})
	}
}

func TestScoreQuality_Bounds(t *testing.T) {
	q := rules.QualityRules{
		Base:    -20,
		Upvotes: rules.Brackets{{Above: 0, Bonus: 500}},
	}
	assert.Equal(t, 0, ScoreQuality(domain.Record{}, q))
	assert.Equal(t, 100, ScoreQuality(domain.Record{Engagement: domain.Engagement{Upvotes: 1}}, q))
}

func TestScaleConversion(t *testing.T) {
	assert.Equal(t, 70, FromTen(7))
	assert.Equal(t, 65, FromTen(6.5))
	assert.Equal(t, 100, FromTen(12))
	assert.Equal(t, 0, FromTen(-1))

	assert.Equal(t, 7, ToTen(70))
	assert.Equal(t, 1, ToTen(0))
	assert.Equal(t, 10, ToTen(100))
	assert.Equal(t, 7, ToTen(FromTen(7)))
}
