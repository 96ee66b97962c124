package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/rules"
)

func TestEngine_Classify(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name  string
		rec   domain.Record
		extra []string
		want  Classification
	}{
		{
			name: "reddit source with category table",
			rec:  domain.Record{Title: "iPhone 15 Review and First Look", Source: "reddit-gadgets"},
			want: Classification{Category: "technology", Subcategory: "gadgets", Tags: []string{"reddit", "gadgets"}},
		},
		{
			name: "webgames",
			rec:  domain.Record{Title: "Lichess - Free Online Chess", Source: "webgames"},
			want: Classification{Category: "webgames", Subcategory: "chess", Tags: []string{"webgames"}},
		},
		{
			name: "source table and enhance tags",
			rec:  domain.Record{Title: "A Field Guide to Birds", Source: "google-books-to-goodreads"},
			want: Classification{Category: "books", Subcategory: "education",
				Tags: []string{"google-books-to-goodreads", "educational", "goodreads", "books"}},
		},
		{
			name: "existing subcategory kept",
			rec:  domain.Record{Title: "Casablanca", Source: "tmdb-to-imdb", Subcategory: "drama"},
			want: Classification{Category: "movies", Subcategory: "drama",
				Tags: []string{"tmdb-to-imdb", "imdb", "movies", "film"}},
		},
		{
			name: "existing subcategory missing",
			rec:  domain.Record{Title: "Casablanca", Source: "tmdb-to-imdb"},
			want: Classification{Category: "movies", Subcategory: rules.General,
				Tags: []string{"tmdb-to-imdb", "imdb", "movies", "film"}},
		},
		{
			name: "unknown source keeps existing category",
			rec:  domain.Record{Title: "whatever", Source: "blog", Category: "misc"},
			want: Classification{Category: "misc", Subcategory: rules.General, Tags: []string{"blog"}},
		},
		{
			name: "nothing known",
			rec:  domain.Record{},
			want: Classification{Category: rules.Uncategorized, Subcategory: rules.General, Tags: []string{}},
		},
		{
			name:  "extra tags normalized",
			rec:   domain.Record{Title: "whatever", Source: "blog"},
			extra: []string{" Summarized ", "BLOG", ""},
			want:  Classification{Category: rules.Uncategorized, Subcategory: rules.General, Tags: []string{"blog", "summarized"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Classify(tt.rec, tt.extra...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_Classify_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	rec := domain.Record{
		Title:  "Comprehensive history of Japanese computer art and design in New York",
		Source: "reddit-technology",
		Tags:   []string{"old", "stale"},
	}

	first := e.Classify(rec)
	rec.Category, rec.Subcategory, rec.Tags = first.Category, first.Subcategory, first.Tags
	second := e.Classify(rec)
	assert.Equal(t, first, second)
	assert.LessOrEqual(t, len(first.Tags), domain.MaxTags)
	assert.NotContains(t, first.Tags, "stale")
}

func TestEngine_Classify_TagCap(t *testing.T) {
	e := newTestEngine(t)
	rec := domain.Record{
		Title: "retro guide to american japanese software art research history politics business health " +
			"education analysis",
		Source: "reddit-technology",
	}
	got := e.Classify(rec, "extra1", "extra2")
	assert.Len(t, got.Tags, domain.MaxTags)
	assert.Equal(t, []string{"reddit", "technology"}, got.Tags[:2])
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeTags([]string{" A", "b", "a", "", "  "}))
	assert.Empty(t, NormalizeTags(nil))

	many := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}
	assert.Equal(t, many[:domain.MaxTags], NormalizeTags(many))
}
