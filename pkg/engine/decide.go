package engine

import (
	"fmt"
	"strings"

	"github.com/yitzyh/shtell/pkg/domain"
)

// evaluation is the full outcome of one record under a policy
type evaluation struct {
	action        domain.Action
	reasons       []string
	quality       int
	compatibility int
	review        *domain.Review
	archive       *domain.ArchiveAssessment
}

// Decide returns the action for a record under the policy with reasons for audit.
// The policy path selects the decision rules, cleanup is the default.
// The record is classified before scoring, as in RunBatch.
// Misconfigured policies and unknown statuses are rejected, other data issues never fail.
func (e *Engine) Decide(in domain.Record, p domain.Policy) (domain.Action, []string, error) {
	if err := e.checkPolicy(p); err != nil {
		return "", nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return "", nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, in.Status)
	}
	r, _ := e.classified(in, nil)
	ev := e.evaluate(r, p, e.ScoreQuality(r))
	return ev.action, ev.reasons, nil
}

// evaluate runs the decision path of a validated policy
func (e *Engine) evaluate(r domain.Record, p domain.Policy, quality int) evaluation {
	ev := evaluation{quality: quality, compatibility: r.CompatibilityScore}

	switch p.EffectivePath() {
	case domain.PathCompatibility:
		prof, _ := e.rules.Profile(p.Profile)
		comp := ScoreCompatibility(r.URL, r.Title, prof)
		review := Review(comp, quality, prof)
		ev.compatibility = comp.Score
		ev.review = &review
		ev.action = reviewAction(review.Outcome, p)
		ev.reasons = append([]string{fmt.Sprintf("%s, composite %.2f, red flags %d",
			review.Outcome, review.Composite, len(review.RedFlags))}, comp.Reasons...)
	case domain.PathArchive:
		coll, _ := e.rules.Collection(p.Collection)
		assessment := AssessArchive(r, coll, e.rules.Archive)
		ev.archive = &assessment
		ev.action = assessment.Action
		ev.reasons = append([]string{fmt.Sprintf("archive quality %.2f", assessment.Overall)}, assessment.Reasons...)
	default:
		ev.action, ev.reasons = e.cleanup(r, p)
	}

	switch {
	case ev.action == domain.ActionDeactivate && p.DeleteRemovals:
		ev.action = domain.ActionDelete
	case ev.action == domain.ActionKeepActive && p.Reactivate && r.Status != domain.StatusActive && r.Status != "":
		ev.action = domain.ActionActivate
		ev.reasons = append(ev.reasons, fmt.Sprintf("reactivated from %s", r.Status))
	}
	return ev
}

// cleanup applies threshold and keyword rules, the first matching rule decides
func (e *Engine) cleanup(r domain.Record, p domain.Policy) (domain.Action, []string) {
	engagement := max(r.Engagement.Upvotes, r.Engagement.Downloads)
	title := strings.ToLower(r.Title)

	if p.MinUpvotes > 0 && engagement < p.MinUpvotes {
		return domain.ActionDeactivate, []string{fmt.Sprintf("low engagement (%d < %d)", engagement, p.MinUpvotes)}
	}

	if p.MaxAgeDays > 0 {
		if created, ok := r.CreatedAt(); ok {
			if age := int(e.now().Sub(created).Hours() / 24); age > p.MaxAgeDays {
				return domain.ActionDeactivate, []string{fmt.Sprintf("stale (%d days > %d)", age, p.MaxAgeDays)}
			}
		}
	}

	for _, kw := range p.RemoveKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(title, kw) {
			return domain.ActionDeactivate, []string{fmt.Sprintf("matched removal keyword %q", kw)}
		}
	}

	var kept []string
	for _, kw := range p.KeepKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(title, kw) {
			kept = append(kept, kw)
		}
	}
	if len(kept) > 0 {
		return domain.ActionKeepActive, []string{fmt.Sprintf("matched quality keyword %q", strings.Join(kept, ", "))}
	}

	switch p.EffectiveAggressiveness() {
	case domain.AggressivenessAggressive:
		return domain.ActionDeactivate, []string{"aggressive cleanup, default remove"}
	case domain.AggressivenessModerate:
		// engagement has to exceed 1.5x of the minimum, compared in integers as 2*e > 3*min
		if 2*engagement > 3*p.MinUpvotes {
			return domain.ActionKeepActive, []string{fmt.Sprintf("moderate cleanup, engagement %d above 1.5x minimum", engagement)}
		}
		return domain.ActionDeactivate, []string{fmt.Sprintf("moderate cleanup, engagement %d not above 1.5x minimum", engagement)}
	default:
		return domain.ActionKeepActive, []string{"light cleanup, default keep"}
	}
}

// reviewAction maps a review outcome to the automated action.
// Only high priority candidates may be activated, and only if the policy allows it.
func reviewAction(outcome domain.ReviewOutcome, p domain.Policy) domain.Action {
	switch outcome {
	case domain.ReviewActivateHighPriority:
		if p.AutoActivate {
			return domain.ActionActivate
		}
		return domain.ActionNeedsReview
	case domain.ReviewTestRecommended, domain.ReviewTestConditional:
		return domain.ActionNeedsReview
	default:
		return domain.ActionDeactivate
	}
}

// targetStatus is the status a record gets for the action
func targetStatus(r domain.Record, action domain.Action, p domain.Policy) domain.Status {
	switch action {
	case domain.ActionActivate:
		return domain.StatusActive
	case domain.ActionDeactivate:
		return p.DeactivatedStatus()
	case domain.ActionNeedsReview:
		return domain.StatusPendingReview
	default:
		if r.Status == "" {
			return domain.StatusActive
		}
		return r.Status
	}
}
