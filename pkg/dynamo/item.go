package dynamo

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/yitzyh/shtell/pkg/domain"
)

// item is the stored shape of a record, attribute names follow the existing table
type item struct {
	URL                string   `dynamodbav:"url"`
	ID                 string   `dynamodbav:"id,omitempty"`
	Title              string   `dynamodbav:"title,omitempty"`
	Domain             string   `dynamodbav:"domain,omitempty"`
	Source             string   `dynamodbav:"source,omitempty"`
	Category           string   `dynamodbav:"bfCategory,omitempty"`
	Subcategory        string   `dynamodbav:"bfSubcategory,omitempty"`
	Tags               []string `dynamodbav:"tags,omitempty"`
	Upvotes            int      `dynamodbav:"upvotes"`
	Interactions       int      `dynamodbav:"interactions"`
	Downloads          int      `dynamodbav:"downloads,omitempty"`
	QualityScore       int      `dynamodbav:"qualityScore"`
	CompatibilityScore int      `dynamodbav:"compatibilityScore,omitempty"`
	Status             string   `dynamodbav:"status"`
	IsActive           bool     `dynamodbav:"isActive"`
	CreatedDate        string   `dynamodbav:"createdDate,omitempty"`
	UpdatedAt          string   `dynamodbav:"updatedAt,omitempty"`
	ThumbnailURL       string   `dynamodbav:"thumbnailUrl,omitempty"`
	AISummary          string   `dynamodbav:"aiSummary,omitempty"`
	Description        string   `dynamodbav:"description,omitempty"`
	WordCount          int      `dynamodbav:"wordCount,omitempty"`
	MediaType          string   `dynamodbav:"mediatype,omitempty"`
	Language           string   `dynamodbav:"language,omitempty"`
	Subjects           []string `dynamodbav:"subject,omitempty"`
}

// the table spells multi-word statuses in camel case
var legacyStatuses = map[domain.Status]string{
	domain.StatusDesktopOnly:   "desktopOnly",
	domain.StatusPendingReview: "pendingReview",
}

func toLegacyStatus(s domain.Status) string {
	if v, ok := legacyStatuses[s]; ok {
		return v
	}
	return string(s)
}

func fromLegacyStatus(s string) domain.Status {
	for st, v := range legacyStatuses {
		if v == s {
			return st
		}
	}
	return domain.Status(s)
}

func encode(r domain.Record) (map[string]types.AttributeValue, error) {
	it := item{
		URL:                r.URL,
		ID:                 r.ID,
		Title:              r.Title,
		Domain:             r.Domain,
		Source:             r.Source,
		Category:           r.Category,
		Subcategory:        r.Subcategory,
		Tags:               r.Tags,
		Upvotes:            r.Engagement.Upvotes,
		Interactions:       r.Engagement.Interactions,
		Downloads:          r.Engagement.Downloads,
		QualityScore:       r.QualityScore,
		CompatibilityScore: r.CompatibilityScore,
		Status:             toLegacyStatus(r.Status),
		IsActive:           r.Status == domain.StatusActive,
		CreatedDate:        r.CreatedDate,
		ThumbnailURL:       r.ThumbnailURL,
		AISummary:          r.AISummary,
		Description:        r.Description,
		WordCount:          r.WordCount,
		MediaType:          r.MediaType,
		Language:           r.Language,
		Subjects:           r.Subjects,
	}
	if !r.UpdatedAt.IsZero() {
		it.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	res, err := attributevalue.MarshalMap(it)
	if err != nil {
		return nil, fmt.Errorf("marshal item %s: %w", r.URL, err)
	}
	return res, nil
}

func decode(av map[string]types.AttributeValue) (domain.Record, error) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return domain.Record{}, fmt.Errorf("unmarshal item: %w", err)
	}
	if it.URL == "" {
		return domain.Record{}, domain.ErrMissingURL
	}
	res := domain.Record{
		ID:                 it.ID,
		URL:                it.URL,
		Title:              it.Title,
		Domain:             it.Domain,
		Source:             it.Source,
		Category:           it.Category,
		Subcategory:        it.Subcategory,
		Tags:               it.Tags,
		Engagement:         domain.Engagement{Upvotes: it.Upvotes, Interactions: it.Interactions, Downloads: it.Downloads},
		QualityScore:       it.QualityScore,
		CompatibilityScore: it.CompatibilityScore,
		Status:             fromLegacyStatus(it.Status),
		CreatedDate:        it.CreatedDate,
		ThumbnailURL:       it.ThumbnailURL,
		AISummary:          it.AISummary,
		Description:        it.Description,
		WordCount:          it.WordCount,
		MediaType:          it.MediaType,
		Language:           it.Language,
		Subjects:           it.Subjects,
	}
	if res.ID == "" {
		res.ID = domain.RecordID(res.URL)
	}
	if res.Domain == "" {
		res.Domain = domain.DomainOf(res.URL)
	}
	if res.Status == "" {
		// older items carry only the isActive flag
		res.Status = domain.StatusInactive
		if it.IsActive {
			res.Status = domain.StatusActive
		}
	}
	if it.UpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, it.UpdatedAt); err == nil {
			res.UpdatedAt = ts
		}
	}
	return res, nil
}
