package domain

import (
	"slices"
	"time"
)

// Action is the outcome of the automated decision path
type Action string

// actions
const (
	ActionKeepActive  Action = "keep-active"
	ActionDeactivate  Action = "deactivate"
	ActionActivate    Action = "activate"
	ActionDelete      Action = "delete"
	ActionNeedsReview Action = "needs-review"
)

// Actions lists all known actions in a stable order
var Actions = []Action{ActionKeepActive, ActionDeactivate, ActionActivate, ActionDelete, ActionNeedsReview}

// Valid reports whether the action is one of the known values
func (a Action) Valid() bool {
	return slices.Contains(Actions, a)
}

// ReviewOutcome is the four-way output of the compatibility path, used for human review queues
type ReviewOutcome string

// review outcomes
const (
	ReviewActivateHighPriority ReviewOutcome = "activate-high-priority"
	ReviewTestRecommended      ReviewOutcome = "test-recommended"
	ReviewTestConditional      ReviewOutcome = "test-conditional"
	ReviewKeepDesktopOnly      ReviewOutcome = "keep-desktop-only"
)

// Priority of a review outcome
type Priority string

// priorities
const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
	PriorityNone   Priority = "NONE"
)

// Review is the result of the compatibility path for one record
type Review struct {
	Outcome          ReviewOutcome `json:"outcome"`
	Priority         Priority      `json:"priority"`
	Composite        float64       `json:"composite"`
	Compatibility    int           `json:"compatibility"`     // raw signed score
	CompatibilityPct int           `json:"compatibility_pct"` // rescaled to 0-100
	Quality          int           `json:"quality"`
	RedFlags         []string      `json:"red_flags,omitempty"`
	DomainConfidence float64       `json:"domain_confidence"`
	TestNotes        string        `json:"test_notes"`
}

// ArchiveAssessment is the result of the archive path, sub-scores are on 1-10 scale
type ArchiveAssessment struct {
	Description   int      `json:"description"`
	Relevance     int      `json:"relevance"`
	Accessibility int      `json:"accessibility"`
	Cultural      int      `json:"cultural"`
	Overall       float64  `json:"overall"`
	Action        Action   `json:"action"`
	Reasons       []string `json:"reasons,omitempty"`
}

// Target is the full state a decision sets on a record.
// Applying the same target twice gives the same record.
type Target struct {
	Status             Status   `json:"status"`
	Category           string   `json:"category"`
	Subcategory        string   `json:"subcategory"`
	Tags               []string `json:"tags"`
	QualityScore       int      `json:"quality_score"`
	CompatibilityScore int      `json:"compatibility_score"`
}

// Apply merges target into a copy of the record, the bool is true if anything changed
func (t Target) Apply(r Record, now time.Time) (Record, bool) {
	res := r.Clone()
	changed := res.Status != t.Status || res.Category != t.Category || res.Subcategory != t.Subcategory ||
		res.QualityScore != t.QualityScore || res.CompatibilityScore != t.CompatibilityScore ||
		!slices.Equal(res.Tags, t.Tags)
	if !changed {
		return res, false
	}
	res.Status = t.Status
	res.Category = t.Category
	res.Subcategory = t.Subcategory
	res.Tags = append([]string(nil), t.Tags...)
	res.QualityScore = t.QualityScore
	res.CompatibilityScore = t.CompatibilityScore
	res.UpdatedAt = now
	return res, true
}

// Decision is the engine verdict for one record
type Decision struct {
	ID      string             `json:"id"`
	URL     string             `json:"url"`
	Title   string             `json:"title"`
	Source  string             `json:"source"`
	Action  Action             `json:"action"`
	Reasons []string           `json:"reasons"`
	Target  Target             `json:"target"`
	Review  *Review            `json:"review,omitempty"`
	Archive *ArchiveAssessment `json:"archive,omitempty"`
}

// Skip describes an input record rejected before entering the engine
type Skip struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Stats aggregates a batch run
type Stats struct {
	Total       int                   `json:"total"`
	Skipped     int                   `json:"skipped"`
	PerAction   map[Action]int        `json:"per_action"`
	PerCategory map[string]int        `json:"per_category"`
	PerSource   map[string]int        `json:"per_source"`
	PerReview   map[ReviewOutcome]int `json:"per_review,omitempty"`
}

// NewStats makes empty stats with initialized maps
func NewStats() Stats {
	return Stats{
		PerAction:   map[Action]int{},
		PerCategory: map[string]int{},
		PerSource:   map[string]int{},
		PerReview:   map[ReviewOutcome]int{},
	}
}

// ChangeSet is the output of a batch run, prior to being applied to storage
type ChangeSet struct {
	Policy    string     `json:"policy"`
	Decisions []Decision `json:"decisions"`
	Skipped   []Skip     `json:"skipped,omitempty"`
	Stats     Stats      `json:"stats"`
}

// Changed returns decisions whose target differs from the given records, keyed by record id.
// Deletes are always included.
func (c ChangeSet) Changed(records map[string]Record) []Decision {
	res := make([]Decision, 0, len(c.Decisions))
	for _, d := range c.Decisions {
		if d.Action == ActionDelete {
			res = append(res, d)
			continue
		}
		rec, ok := records[d.ID]
		if !ok {
			continue
		}
		if _, changed := d.Target.Apply(rec, time.Time{}); changed {
			res = append(res, d)
		}
	}
	return res
}
