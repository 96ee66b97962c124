// Package rules holds the versioned lookup tables driving classification, scoring and curation.
// Tables are loaded from YAML, the default set is embedded into the binary.
package rules

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yitzyh/shtell/pkg/domain"
)

//go:embed default.yml
var defaultRules []byte

// Uncategorized and General are sentinels for unresolved category and subcategory
const (
	Uncategorized = "uncategorized"
	General       = "general"
)

// Rules is the full set of lookup tables. It is immutable after Load/Parse.
type Rules struct {
	Version       string                         `yaml:"version"`
	Sources       map[string]SourceRule          `yaml:"sources"`
	Subcategories map[string]map[string][]string `yaml:"subcategories"` // category -> subcategory -> keywords
	Tags          TagRules                       `yaml:"tags"`
	Quality       QualityRules                   `yaml:"quality"`
	Profiles      map[string]*Profile            `yaml:"profiles"`
	Policies      map[string]domain.Policy       `yaml:"policies"`
	Archive       ArchiveRules                   `yaml:"archive"`

	subcategoryTables map[string]KeywordTable
	sourceTables      map[string]KeywordTable
	tagTable          KeywordTable
}

// SourceRule maps a source to its primary category and tag enhancements
type SourceRule struct {
	Category               string              `yaml:"category"`
	Subcategories          map[string][]string `yaml:"subcategories"` // overrides the category table
	UseExistingSubcategory bool                `yaml:"use_existing_subcategory"`
	EnhanceTags            []string            `yaml:"enhance_tags"`
}

// TagRules defines source families and the content tag dictionary
type TagRules struct {
	Families []string            `yaml:"families"` // source prefixes like "reddit" for "reddit-movies"
	Keywords map[string][]string `yaml:"keywords"` // tag -> keywords
}

// Load reads rules from a YAML file, empty path loads embedded defaults
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // rules path comes from config
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return res, nil
}

// Default returns embedded rules
func Default() (*Rules, error) {
	return Parse(defaultRules)
}

// Parse decodes and validates rules from YAML
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

// compile validates tables and builds the inverted keyword indexes
func (r *Rules) compile() error {
	if r.Version == "" {
		return fmt.Errorf("rules version is required")
	}

	r.subcategoryTables = make(map[string]KeywordTable, len(r.Subcategories))
	for category, subs := range r.Subcategories {
		r.subcategoryTables[strings.ToLower(category)] = NewKeywordTable(subs)
	}

	r.sourceTables = map[string]KeywordTable{}
	for name, src := range r.Sources {
		if src.Category == "" {
			return fmt.Errorf("source %q: category is required", name)
		}
		if len(src.Subcategories) > 0 {
			r.sourceTables[name] = NewKeywordTable(src.Subcategories)
		}
	}

	r.tagTable = NewKeywordTable(r.Tags.Keywords)

	if err := r.Quality.validate(); err != nil {
		return fmt.Errorf("quality: %w", err)
	}

	for name, p := range r.Profiles {
		if p == nil {
			return fmt.Errorf("profile %q is empty", name)
		}
		if err := p.compile(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}

	for name, c := range r.Archive.Collections {
		if c.MinDownloads < 0 {
			return fmt.Errorf("collection %q: min_downloads must be non-negative", name)
		}
	}
	if len(r.Archive.Collections) > 0 {
		if err := r.Archive.Weights.validate(); err != nil {
			return fmt.Errorf("archive weights: %w", err)
		}
	}

	for name, p := range r.Policies {
		p.Name = name
		if err := p.Validate(); err != nil {
			return err
		}
		if p.EffectivePath() == domain.PathCompatibility {
			if _, ok := r.Profiles[p.Profile]; !ok {
				return fmt.Errorf("policy %q: unknown profile %q", name, p.Profile)
			}
		}
		if p.EffectivePath() == domain.PathArchive {
			if _, ok := r.Archive.Collections[p.Collection]; !ok {
				return fmt.Errorf("policy %q: unknown collection %q", name, p.Collection)
			}
		}
		r.Policies[name] = p
	}
	return nil
}

// Source returns the rule for the source, exact match
func (r *Rules) Source(name string) (SourceRule, bool) {
	s, ok := r.Sources[name]
	return s, ok
}

// SubcategoryTable returns the keyword table for the source if it has its own,
// otherwise the table of the category. Unknown categories give an empty table.
func (r *Rules) SubcategoryTable(source, category string) KeywordTable {
	if t, ok := r.sourceTables[source]; ok {
		return t
	}
	return r.subcategoryTables[strings.ToLower(category)]
}

// TagTable returns the keyword -> tag dictionary
func (r *Rules) TagTable() KeywordTable {
	return r.tagTable
}

// Policy returns policy by name
func (r *Rules) Policy(name string) (domain.Policy, bool) {
	p, ok := r.Policies[name]
	return p, ok
}

// PolicyNames returns sorted names of all policies, optionally limited to one path
func (r *Rules) PolicyNames(path domain.DecisionPath) []string {
	res := make([]string, 0, len(r.Policies))
	for _, name := range slices.Sorted(maps.Keys(r.Policies)) {
		if path == "" || r.Policies[name].EffectivePath() == path {
			res = append(res, name)
		}
	}
	return res
}

// Profile returns compatibility profile by name
func (r *Rules) Profile(name string) (*Profile, bool) {
	p, ok := r.Profiles[name]
	return p, ok
}

// Collection returns archive collection rule by name
func (r *Rules) Collection(name string) (Collection, bool) {
	c, ok := r.Archive.Collections[name]
	return c, ok
}

// Family returns the family and sub-feed of a source, like "reddit" and "movies" for "reddit-movies".
// Sources outside of known families give empty strings.
func (r *Rules) Family(source string) (family, feed string) {
	for _, f := range r.Tags.Families {
		if strings.HasPrefix(source, f+"-") && len(source) > len(f)+1 {
			return f, source[len(f)+1:]
		}
	}
	return "", ""
}
