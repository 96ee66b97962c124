package engine

import (
	"strings"

	"github.com/yitzyh/shtell/pkg/domain"
)

const defaultChunkSize = 100

type batchOptions struct {
	chunkSize int
	progress  func(done, total int)
	extraTags []string
}

// BatchOption configures RunBatch
type BatchOption func(*batchOptions)

// WithChunkSize sets how many records are processed between progress reports
func WithChunkSize(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithProgress sets a callback invoked after each chunk
func WithProgress(fn func(done, total int)) BatchOption {
	return func(o *batchOptions) { o.progress = fn }
}

// WithExtraTags adds enhancement tags to every classified record
func WithExtraTags(tags ...string) BatchOption {
	return func(o *batchOptions) { o.extraTags = append(o.extraTags, tags...) }
}

// RunBatch classifies, scores and decides every record under the policy and collects
// decisions into a change-set. Input records are not modified and no storage is touched.
// Records without url or with an unknown status are skipped with a reason.
// Chunks only drive progress reporting, the result doesn't depend on the chunk size.
func (e *Engine) RunBatch(records []domain.Record, p domain.Policy, opts ...BatchOption) (domain.ChangeSet, error) {
	if err := e.checkPolicy(p); err != nil {
		return domain.ChangeSet{}, err
	}

	o := batchOptions{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}

	res := domain.ChangeSet{Policy: p.Name, Decisions: make([]domain.Decision, 0, len(records)), Stats: domain.NewStats()}
	for start := 0; start < len(records); start += o.chunkSize {
		end := min(start+o.chunkSize, len(records))
		for i := start; i < end; i++ {
			d, skip := e.decideRecord(records[i], p, o.extraTags)
			if skip != "" {
				res.Skipped = append(res.Skipped, domain.Skip{Index: i, Title: records[i].Title, Reason: skip})
				res.Stats.Skipped++
				continue
			}
			res.Decisions = append(res.Decisions, d)
			res.Stats.Total++
			res.Stats.PerAction[d.Action]++
			res.Stats.PerCategory[d.Target.Category]++
			res.Stats.PerSource[d.Source]++
			if d.Review != nil {
				res.Stats.PerReview[d.Review.Outcome]++
			}
		}
		if o.progress != nil {
			o.progress(end, len(records))
		}
	}
	return res, nil
}

// decideRecord makes the decision for one record, a non-empty string is the skip reason
func (e *Engine) decideRecord(in domain.Record, p domain.Policy, extraTags []string) (domain.Decision, string) {
	if strings.TrimSpace(in.URL) == "" {
		return domain.Decision{}, "missing url"
	}
	if in.Status != "" && !in.Status.Valid() {
		return domain.Decision{}, "invalid status " + string(in.Status)
	}

	r, cls := e.classified(in, extraTags)
	ev := e.evaluate(r, p, e.ScoreQuality(r))
	return domain.Decision{
		ID:      r.ID,
		URL:     r.URL,
		Title:   r.Title,
		Source:  r.Source,
		Action:  ev.action,
		Reasons: ev.reasons,
		Review:  ev.review,
		Archive: ev.archive,
		Target: domain.Target{
			Status:             targetStatus(r, ev.action, p),
			Category:           cls.Category,
			Subcategory:        cls.Subcategory,
			Tags:               cls.Tags,
			QualityScore:       ev.quality,
			CompatibilityScore: ev.compatibility,
		},
	}, ""
}

// categorizePolicy is the change-set name of classification-only runs
const categorizePolicy = "categorize"

// Categorize classifies and scores records without a policy. Status of every record is kept,
// decisions carry keep-active with new category, subcategory, tags and quality score.
// Compatibility score is carried over unchanged.
func (e *Engine) Categorize(records []domain.Record, opts ...BatchOption) domain.ChangeSet {
	o := batchOptions{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}

	res := domain.ChangeSet{Policy: categorizePolicy, Decisions: make([]domain.Decision, 0, len(records)), Stats: domain.NewStats()}
	for start := 0; start < len(records); start += o.chunkSize {
		end := min(start+o.chunkSize, len(records))
		for i := start; i < end; i++ {
			in := records[i]
			if strings.TrimSpace(in.URL) == "" {
				res.Skipped = append(res.Skipped, domain.Skip{Index: i, Title: in.Title, Reason: "missing url"})
				res.Stats.Skipped++
				continue
			}
			if in.Status != "" && !in.Status.Valid() {
				res.Skipped = append(res.Skipped, domain.Skip{Index: i, Title: in.Title, Reason: "invalid status " + string(in.Status)})
				res.Stats.Skipped++
				continue
			}
			r, cls := e.classified(in, o.extraTags)
			if r.Status == "" {
				r.Status = domain.StatusActive
			}

			d := domain.Decision{
				ID:      r.ID,
				URL:     r.URL,
				Title:   r.Title,
				Source:  r.Source,
				Action:  domain.ActionKeepActive,
				Reasons: []string{"categorized as " + cls.Category + "/" + cls.Subcategory},
				Target: domain.Target{
					Status:             r.Status,
					Category:           cls.Category,
					Subcategory:        cls.Subcategory,
					Tags:               cls.Tags,
					QualityScore:       e.ScoreQuality(r),
					CompatibilityScore: r.CompatibilityScore,
				},
			}
			res.Decisions = append(res.Decisions, d)
			res.Stats.Total++
			res.Stats.PerAction[d.Action]++
			res.Stats.PerCategory[d.Target.Category]++
			res.Stats.PerSource[d.Source]++
		}
		if o.progress != nil {
			o.progress(end, len(records))
		}
	}
	return res
}

// classified returns a copy of the record with id and domain derived from url and
// classification applied, the same input for every decision contract
func (e *Engine) classified(in domain.Record, extraTags []string) (domain.Record, Classification) {
	r := in.Clone()
	if r.URL != "" {
		r.ID = domain.RecordID(r.URL)
	}
	if r.Domain == "" {
		r.Domain = domain.DomainOf(r.URL)
	}
	cls := e.Classify(r, extraTags...)
	r.Category, r.Subcategory, r.Tags = cls.Category, cls.Subcategory, cls.Tags
	return r, cls
}
