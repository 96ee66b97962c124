package engine

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/rules"
)

const (
	defaultMinDownloads      = 100
	defaultMinDescriptionLen = 50
)

// AssessArchive scores an archive record on four 1-10 dimensions and picks an action.
// Description, media type, language and subjects come from the record metadata.
func AssessArchive(r domain.Record, c rules.Collection, ar rules.ArchiveRules) domain.ArchiveAssessment {
	res := domain.ArchiveAssessment{
		Description:   descriptionScore(r, c, ar),
		Relevance:     relevanceScore(r, c, ar),
		Accessibility: accessibilityScore(r, ar),
		Cultural:      culturalScore(r, c, ar),
	}
	w := ar.Weights
	overall := float64(res.Description)*w.Description + float64(res.Relevance)*w.Relevance +
		float64(res.Accessibility)*w.Accessibility + float64(res.Cultural)*w.Cultural
	res.Overall = math.Round(overall*100) / 100
	res.Action, res.Reasons = archiveAction(res.Overall, r.Engagement.Downloads, res.Relevance, c)
	return res
}

func archiveAction(overall float64, downloads, relevance int, c rules.Collection) (domain.Action, []string) {
	minDownloads := c.MinDownloads
	if minDownloads == 0 {
		minDownloads = defaultMinDownloads
	}

	if overall >= 8.0 && downloads >= minDownloads {
		return domain.ActionKeepActive, []string{"high overall quality", "good download metrics"}
	}
	if overall >= 6.5 && relevance >= 7 {
		return domain.ActionKeepActive, []string{"good quality and relevance"}
	}
	if overall >= 5.0 && overall < 6.5 {
		var reasons []string
		if downloads < minDownloads {
			reasons = append(reasons, "low download count")
		}
		if relevance < 6 {
			reasons = append(reasons, "low relevance score")
		}
		return domain.ActionNeedsReview, append(reasons, "marginal quality")
	}
	if overall < 5.0 {
		reasons := []string{"low overall quality score"}
		if downloads < 50 {
			reasons = append(reasons, "very low engagement")
		}
		return domain.ActionDeactivate, reasons
	}
	if downloads < minDownloads/2 {
		return domain.ActionDeactivate, []string{"downloads below threshold"}
	}
	return domain.ActionKeepActive, []string{"meets minimum criteria"}
}

func descriptionScore(r domain.Record, c rules.Collection, ar rules.ArchiveRules) int {
	score := 5
	title, desc := strings.ToLower(r.Title), strings.ToLower(r.Description)

	minLen := c.MinDescriptionLength
	if minLen == 0 {
		minLen = defaultMinDescriptionLen
	}
	switch n := utf8.RuneCountInString(r.Description); {
	case n >= minLen:
		score += 2
	case n < 20:
		score -= 2
	}

	score += min(3, countIn(c.QualityKeywords, title, desc))
	score -= min(4, 2*countIn(c.ExcludeKeywords, title, desc))

	if utf8.RuneCountInString(r.Title) > 10 && !isUpper(r.Title) {
		score++
	}
	if countIn(ar.TitleQualityWords, title) > 0 {
		score++
	}
	return clampTen(score)
}

func relevanceScore(r domain.Record, c rules.Collection, ar rules.ArchiveRules) int {
	score := 5
	text := strings.ToLower(r.Title + " " + r.Description)
	subjects := lowerAll(r.Subjects)

	matches := 0
	for _, s := range c.TargetSubjects {
		s = strings.ToLower(s)
		if strings.Contains(text, s) || slices.ContainsFunc(subjects, func(subj string) bool { return strings.Contains(subj, s) }) {
			matches++
		}
	}
	score += min(4, matches)

	switch creative := countIn(ar.CreativeKeywords, text); {
	case creative >= 2:
		score += 2
	case creative == 1:
		score++
	}
	score += min(2, countIn(ar.EducationalIndicators, text))
	return clampTen(score)
}

func accessibilityScore(r domain.Record, ar rules.ArchiveRules) int {
	score := 5
	media := strings.ToLower(r.MediaType)
	switch {
	case slices.Contains(ar.AccessibleMediaTypes, media):
		score += 2
	case media == "movies":
		score++
	}

	switch strings.ToLower(r.Language) {
	case "english", "eng", "en":
		score += 2
	case "multiple", "multilingual":
		score++
	}

	switch d := r.Engagement.Downloads; {
	case d > 10000:
		score += 3
	case d > 1000:
		score += 2
	case d > 100:
		score++
	case d < 10:
		score -= 2
	}
	return clampTen(score)
}

func culturalScore(r domain.Record, c rules.Collection, ar rules.ArchiveRules) int {
	score := 5
	text := strings.ToLower(r.Title + " " + r.Description + " " + strings.Join(r.Subjects, " "))

	score += min(3, countIn(ar.HighValueKeywords, text))
	if countIn(ar.InstitutionKeywords, text) > 0 {
		score += 2
	}
	if countIn(c.BonusKeywords, text) > 0 {
		score++
	}
	return clampTen(score)
}

// countIn counts keywords found in any of the texts, texts expected lowercased
func countIn(keywords []string, texts ...string) int {
	res := 0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		for _, t := range texts {
			if strings.Contains(t, kw) {
				res++
				break
			}
		}
	}
	return res
}

// isUpper reports whether s has cased letters and all of them are upper case
func isUpper(s string) bool {
	return s == strings.ToUpper(s) && s != strings.ToLower(s)
}

func lowerAll(ss []string) []string {
	res := make([]string, len(ss))
	for i, s := range ss {
		res[i] = strings.ToLower(s)
	}
	return res
}

func clampTen(v int) int {
	return min(max(v, 1), 10)
}
