package engine

import (
	"math"
	"strings"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/rules"
)

// ScoreQuality returns quality of the record in 0-100
func (e *Engine) ScoreQuality(r domain.Record) int {
	return ScoreQuality(r, e.rules.Quality)
}

// ScoreQuality calculates quality from engagement, metadata completeness and text length.
// Engagement brackets are exclusive, upvotes and downloads compete and the larger bonus counts.
// Missing fields count as zero, the result is always in 0-100.
func ScoreQuality(r domain.Record, q rules.QualityRules) int {
	score := q.Base

	score += max(q.Upvotes.Bonus(r.Engagement.Upvotes), q.Downloads.Bonus(r.Engagement.Downloads))
	score += q.Interactions.Bonus(r.Engagement.Interactions)

	if strings.TrimSpace(r.Title) != "" {
		score += q.Completeness.Title
	}
	if strings.TrimSpace(r.ThumbnailURL) != "" {
		score += q.Completeness.Thumbnail
	}
	if strings.TrimSpace(r.AISummary) != "" {
		score += q.Completeness.Summary
	}
	if len(r.Tags) > 0 {
		score += q.Completeness.Tags
	}

	score += q.Words.Bonus(r.WordCount)

	return clampPct(score)
}

// FromTen converts a 1-10 score to 0-100 scale
func FromTen(v float64) int {
	return clampPct(int(math.Round(v * 10)))
}

// ToTen converts a 0-100 score to 1-10 scale
func ToTen(v int) int {
	return min(max(int(math.Round(float64(v)/10)), 1), 10)
}

func clampPct(v int) int {
	return min(max(v, 0), 100)
}
