package engine

import (
	"strings"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/rules"
)

// Classification is category, subcategory and tags resolved for a record
type Classification struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Tags        []string `json:"tags"`
}

// Classify resolves category, subcategory and tags of the record. Extra tags are appended
// after source and content tags. Existing tags of the record are not used, so classification
// of an unchanged record is stable across runs. Unknown inputs resolve to sentinels.
func (e *Engine) Classify(r domain.Record, extraTags ...string) Classification {
	return Classify(r, e.rules, extraTags...)
}

// Classify is the rules-driven classifier, see Engine.Classify
func Classify(r domain.Record, rl *rules.Rules, extraTags ...string) Classification {
	title := strings.ToLower(r.Title)
	src, hasSource := rl.Source(r.Source)

	res := Classification{Category: rules.Uncategorized, Subcategory: rules.General}
	switch {
	case hasSource:
		res.Category = src.Category
	case strings.TrimSpace(r.Category) != "":
		res.Category = strings.TrimSpace(r.Category)
	}

	switch {
	case hasSource && src.UseExistingSubcategory && strings.TrimSpace(r.Subcategory) != "":
		res.Subcategory = strings.TrimSpace(r.Subcategory)
	default:
		if e, ok := rl.SubcategoryTable(r.Source, res.Category).First(title); ok {
			res.Subcategory = e.Value
		}
	}

	var tags []string
	if family, feed := rl.Family(r.Source); family != "" {
		tags = append(tags, family, feed)
	} else if r.Source != "" {
		tags = append(tags, r.Source)
	}
	tags = append(tags, rl.TagTable().All(title)...)
	if hasSource {
		tags = append(tags, src.EnhanceTags...)
	}
	tags = append(tags, extraTags...)
	res.Tags = NormalizeTags(tags)

	return res
}

// NormalizeTags lowercases and trims tags, drops empty and duplicate ones and caps at MaxTags.
// Order of first appearance is kept.
func NormalizeTags(tags []string) []string {
	res := make([]string, 0, min(len(tags), domain.MaxTags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		res = append(res, t)
		if len(res) == domain.MaxTags {
			break
		}
	}
	return res
}
