package rules

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/yitzyh/shtell/pkg/domain"
)

// KeywordEntry maps one lowercased keyword to a value (subcategory or tag)
type KeywordEntry struct {
	Keyword string
	Value   string
}

// KeywordTable is an inverted keyword index sorted by keyword, then by value.
// Iteration order is fixed so lookups are reproducible.
type KeywordTable []KeywordEntry

// NewKeywordTable inverts value -> keywords into a sorted keyword table
func NewKeywordTable(src map[string][]string) KeywordTable {
	seen := map[KeywordEntry]bool{}
	res := KeywordTable{}
	for value, keywords := range src {
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			e := KeywordEntry{Keyword: kw, Value: value}
			if seen[e] {
				continue
			}
			seen[e] = true
			res = append(res, e)
		}
	}
	slices.SortFunc(res, func(a, b KeywordEntry) int {
		if c := cmp.Compare(a.Keyword, b.Keyword); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return res
}

// First returns the value of the first keyword found in text, text expected lowercased
func (t KeywordTable) First(text string) (KeywordEntry, bool) {
	for _, e := range t {
		if strings.Contains(text, e.Keyword) {
			return e, true
		}
	}
	return KeywordEntry{}, false
}

// All returns distinct values of all keywords found in text, in table order
func (t KeywordTable) All(text string) []string {
	var res []string
	for _, e := range t {
		if strings.Contains(text, e.Keyword) && !slices.Contains(res, e.Value) {
			res = append(res, e.Value)
		}
	}
	return res
}

// Bracket is an exclusive tier, a value above the threshold gets the bonus
type Bracket struct {
	Above int `yaml:"above"`
	Bonus int `yaml:"bonus"`
}

// Brackets is a set of exclusive tiers, only the highest matching one applies
type Brackets []Bracket

// Bonus returns the bonus of the highest bracket the value exceeds, zero if none
func (b Brackets) Bonus(v int) int {
	best, res := math.MinInt, 0
	for _, br := range b {
		if v > br.Above && br.Above > best {
			best, res = br.Above, br.Bonus
		}
	}
	return res
}

// LengthTier gives a bonus for lengths up to Max, inclusive
type LengthTier struct {
	Max   int `yaml:"max"`
	Bonus int `yaml:"bonus"`
}

// LengthTiers is a set of exclusive tiers, the tightest matching one applies
type LengthTiers []LengthTier

// Bonus returns the bonus of the smallest tier fitting n, zero if none
func (l LengthTiers) Bonus(n int) int {
	best, res := math.MaxInt, 0
	for _, t := range l {
		if n <= t.Max && t.Max < best {
			best, res = t.Max, t.Bonus
		}
	}
	return res
}

// QualityRules configures the quality scorer, all scores on 0-100 scale
type QualityRules struct {
	Base         int      `yaml:"base"`
	Upvotes      Brackets `yaml:"upvotes"`
	Downloads    Brackets `yaml:"downloads"`
	Interactions Brackets `yaml:"interactions"`
	Words        Brackets `yaml:"words"`
	Completeness struct {
		Title     int `yaml:"title"`
		Thumbnail int `yaml:"thumbnail"`
		Summary   int `yaml:"summary"`
		Tags      int `yaml:"tags"`
	} `yaml:"completeness"`
}

func (q QualityRules) validate() error {
	if q.Base < 0 || q.Base > 100 {
		return fmt.Errorf("base %d out of 0-100", q.Base)
	}
	return nil
}

// DomainInfo describes a known domain of a compatibility profile
type DomainInfo struct {
	Confidence float64 `yaml:"confidence"`
	Category   string  `yaml:"category"`
	Notes      string  `yaml:"notes"`
}

// PlatformPenalty is a structural penalty for unknown domains hosted on complex platforms
type PlatformPenalty struct {
	Patterns []string `yaml:"patterns"`
	Penalty  int      `yaml:"penalty"`
	Reason   string   `yaml:"reason"`
}

// WeightedKeyword is a keyword with its score delta
type WeightedKeyword struct {
	Keyword string
	Weight  int
}

// ReviewBand maps composite score and red flag count to a review outcome
type ReviewBand struct {
	Outcome      string  `yaml:"outcome"`
	Priority     string  `yaml:"priority"`
	MinComposite float64 `yaml:"min_composite"`
	MaxRedFlags  int     `yaml:"max_red_flags"`
	Notes        string  `yaml:"notes"`
}

// ReviewRules configures the composite of compatibility and quality
type ReviewRules struct {
	CompatibilityWeight float64 `yaml:"compatibility_weight"`
	QualityWeight       float64 `yaml:"quality_weight"`
	// raw compatibility is rescaled to 0-100 as offset + raw*factor
	RescaleOffset float64      `yaml:"rescale_offset"`
	RescaleFactor float64      `yaml:"rescale_factor"`
	Bands         []ReviewBand `yaml:"bands"` // checked in order, first match wins
	Fallback      ReviewBand   `yaml:"fallback"`
}

// Profile is a compatibility scoring strategy for one target platform
type Profile struct {
	Description      string                `yaml:"description"`
	Base             int                   `yaml:"base"`
	DomainWeight     float64               `yaml:"domain_weight"`
	Domains          map[string]DomainInfo `yaml:"domains"`
	Compatible       map[string]int        `yaml:"compatible"`   // positive weights
	Incompatible     map[string]int        `yaml:"incompatible"` // negative weights, matches are red flags
	ShortDomain      LengthTiers           `yaml:"short_domain"`
	ComplexPlatforms []PlatformPenalty     `yaml:"complex_platforms"`
	TitleLength      LengthTiers           `yaml:"title_length"`
	Clamp            struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"clamp"`
	Review ReviewRules `yaml:"review"`

	compatible   []WeightedKeyword
	incompatible []WeightedKeyword
}

// CompatibleKeywords returns compatible keywords sorted lexicographically
func (p *Profile) CompatibleKeywords() []WeightedKeyword { return p.compatible }

// IncompatibleKeywords returns incompatible keywords sorted lexicographically
func (p *Profile) IncompatibleKeywords() []WeightedKeyword { return p.incompatible }

// ClampScore bounds a raw score to the profile range
func (p *Profile) ClampScore(v int) int {
	return min(max(v, p.Clamp.Min), p.Clamp.Max)
}

// compile validates the profile and sorts keyword tables
func (p *Profile) compile() error {
	if p.Clamp.Min >= p.Clamp.Max {
		return fmt.Errorf("clamp min %d must be below max %d", p.Clamp.Min, p.Clamp.Max)
	}
	for d, info := range p.Domains {
		if info.Confidence < 0 || info.Confidence > 1 {
			return fmt.Errorf("domain %q confidence %v out of 0-1", d, info.Confidence)
		}
	}

	lowered := func(m map[string]int) map[string]int {
		res := make(map[string]int, len(m))
		for k, v := range m {
			res[strings.ToLower(strings.TrimSpace(k))] = v
		}
		return res
	}
	compatible, incompatible := lowered(p.Compatible), lowered(p.Incompatible)

	p.compatible = make([]WeightedKeyword, 0, len(compatible))
	for _, kw := range slices.Sorted(maps.Keys(compatible)) {
		if compatible[kw] <= 0 {
			return fmt.Errorf("compatible keyword %q must have positive weight", kw)
		}
		if _, dup := incompatible[kw]; dup {
			return fmt.Errorf("keyword %q is both compatible and incompatible", kw)
		}
		p.compatible = append(p.compatible, WeightedKeyword{Keyword: kw, Weight: compatible[kw]})
	}
	p.incompatible = make([]WeightedKeyword, 0, len(incompatible))
	for _, kw := range slices.Sorted(maps.Keys(incompatible)) {
		if incompatible[kw] >= 0 {
			return fmt.Errorf("incompatible keyword %q must have negative weight", kw)
		}
		p.incompatible = append(p.incompatible, WeightedKeyword{Keyword: kw, Weight: incompatible[kw]})
	}

	r := p.Review
	if r.CompatibilityWeight < 0 || r.QualityWeight < 0 || math.Abs(r.CompatibilityWeight+r.QualityWeight-1) > 1e-9 {
		return fmt.Errorf("review weights must be non-negative and sum to 1")
	}
	if r.Fallback.Outcome == "" {
		return fmt.Errorf("review fallback outcome is required")
	}
	for _, b := range append(slices.Clone(r.Bands), r.Fallback) {
		switch domain.ReviewOutcome(b.Outcome) {
		case domain.ReviewActivateHighPriority, domain.ReviewTestRecommended, domain.ReviewTestConditional, domain.ReviewKeepDesktopOnly:
		default:
			return fmt.Errorf("unknown review outcome %q", b.Outcome)
		}
	}
	return nil
}

// ArchiveWeights are weights of the archive sub-scores, they sum to 1
type ArchiveWeights struct {
	Description   float64 `yaml:"description"`
	Relevance     float64 `yaml:"relevance"`
	Accessibility float64 `yaml:"accessibility"`
	Cultural      float64 `yaml:"cultural"`
}

func (w ArchiveWeights) validate() error {
	sum := w.Description + w.Relevance + w.Accessibility + w.Cultural
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights sum to %v, expected 1", sum)
	}
	return nil
}

// Collection holds quality rules of one archive collection
type Collection struct {
	Description          string   `yaml:"description"`
	MinDownloads         int      `yaml:"min_downloads"`
	PreferredMediaTypes  []string `yaml:"preferred_media_types"`
	QualityKeywords      []string `yaml:"quality_keywords"`
	ExcludeKeywords      []string `yaml:"exclude_keywords"`
	LanguagePreferences  []string `yaml:"language_preferences"`
	MinDescriptionLength int      `yaml:"min_description_length"`
	TargetSubjects       []string `yaml:"target_subjects"`
	BonusKeywords        []string `yaml:"bonus_keywords"` // collection specific cultural bonus
}

// ArchiveRules configures the archive assessment
type ArchiveRules struct {
	Weights               ArchiveWeights        `yaml:"weights"`
	CreativeKeywords      []string              `yaml:"creative_keywords"`
	EducationalIndicators []string              `yaml:"educational_indicators"`
	HighValueKeywords     []string              `yaml:"high_value_keywords"`
	InstitutionKeywords   []string              `yaml:"institution_keywords"`
	TitleQualityWords     []string              `yaml:"title_quality_words"`
	AccessibleMediaTypes  []string              `yaml:"accessible_media_types"`
	Collections           map[string]Collection `yaml:"collections"`
}
