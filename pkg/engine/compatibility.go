package engine

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/rules"
)

// Compatibility is the result of compatibility scoring
type Compatibility struct {
	Score            int      // raw signed score, clamp before use in decisions
	Clamped          int      // score bounded to the profile range
	Reasons          []string // human-readable contributions
	RedFlags         []string // matched incompatible keywords
	DomainConfidence float64
	DomainCategory   string
}

// ScoreCompatibility scores url and title with the named profile
func (e *Engine) ScoreCompatibility(rawURL, title, profile string) (Compatibility, error) {
	p, ok := e.rules.Profile(profile)
	if !ok {
		return Compatibility{}, fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
	}
	return ScoreCompatibility(rawURL, title, p), nil
}

// ScoreCompatibility calculates fitness for a target platform. Known domains add a bonus
// proportional to their confidence, unknown ones fall back to structural heuristics.
// Every matched keyword adds its weight, incompatible matches are also reported as red flags.
func ScoreCompatibility(rawURL, title string, p *rules.Profile) Compatibility {
	res := Compatibility{Score: p.Base}
	dom := domain.DomainOf(rawURL)
	text := strings.ToLower(title + " " + rawURL)

	if info, ok := p.Domains[dom]; ok {
		bonus := int(info.Confidence * p.DomainWeight)
		res.Score += bonus
		res.DomainConfidence = info.Confidence
		res.DomainCategory = info.Category
		res.Reasons = append(res.Reasons, fmt.Sprintf("known domain %s (%s) %+d", dom, info.Category, bonus))
	} else {
		res.Score += unknownDomain(dom, p, &res.Reasons)
	}

	for _, kw := range p.CompatibleKeywords() {
		if strings.Contains(text, kw.Keyword) {
			res.Score += kw.Weight
			res.Reasons = append(res.Reasons, fmt.Sprintf("compatible keyword %q %+d", kw.Keyword, kw.Weight))
		}
	}
	for _, kw := range p.IncompatibleKeywords() {
		if strings.Contains(text, kw.Keyword) {
			res.Score += kw.Weight
			res.RedFlags = append(res.RedFlags, kw.Keyword)
			res.Reasons = append(res.Reasons, fmt.Sprintf("incompatible keyword %q %+d", kw.Keyword, kw.Weight))
		}
	}

	if t := strings.TrimSpace(title); t != "" {
		if bonus := p.TitleLength.Bonus(utf8.RuneCountInString(t)); bonus != 0 {
			res.Score += bonus
			res.Reasons = append(res.Reasons, fmt.Sprintf("short title %+d", bonus))
		}
	}

	res.Clamped = p.ClampScore(res.Score)
	return res
}

// unknownDomain scores the structure of a domain missing in the profile table.
// Short main labels get a bonus, complex hosting platforms a penalty, both can apply.
func unknownDomain(dom string, p *rules.Profile, reasons *[]string) int {
	score := 0
	if main, _, found := strings.Cut(dom, "."); found && main != "" {
		if bonus := p.ShortDomain.Bonus(utf8.RuneCountInString(main)); bonus != 0 {
			score += bonus
			*reasons = append(*reasons, fmt.Sprintf("short domain name %q %+d", main, bonus))
		}
	}
	for _, pp := range p.ComplexPlatforms {
		if containsAny(dom, pp.Patterns) {
			score += pp.Penalty
			*reasons = append(*reasons, fmt.Sprintf("%s %+d", pp.Reason, pp.Penalty))
			break
		}
	}
	return score
}

// Review combines compatibility and quality into a composite and maps it to a review outcome.
// Clamped compatibility is rescaled to 0-100 before weighting, so both inputs share one scale.
func Review(c Compatibility, quality int, p *rules.Profile) domain.Review {
	rr := p.Review
	pct := clampPct(int(math.Round(rr.RescaleOffset + rr.RescaleFactor*float64(c.Clamped))))
	composite := rr.CompatibilityWeight*float64(pct) + rr.QualityWeight*float64(clampPct(quality))
	composite = math.Round(composite*100) / 100

	band := rr.Fallback
	for _, b := range rr.Bands {
		if composite >= b.MinComposite && len(c.RedFlags) <= b.MaxRedFlags {
			band = b
			break
		}
	}

	return domain.Review{
		Outcome:          domain.ReviewOutcome(band.Outcome),
		Priority:         domain.Priority(band.Priority),
		Composite:        composite,
		Compatibility:    c.Score,
		CompatibilityPct: pct,
		Quality:          clampPct(quality),
		RedFlags:         append([]string(nil), c.RedFlags...),
		DomainConfidence: c.DomainConfidence,
		TestNotes:        band.Notes,
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
