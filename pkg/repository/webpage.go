package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
)

// WebpageRepository handles webpage records, implements store.Store
type WebpageRepository struct {
	db *sqlx.DB
}

// webpageSQL represents a webpage for SQL operations
type webpageSQL struct {
	ID                 string     `db:"id"`
	URL                string     `db:"url"`
	Title              string     `db:"title"`
	Domain             string     `db:"domain"`
	Source             string     `db:"source"`
	Category           string     `db:"category"`
	Subcategory        string     `db:"subcategory"`
	Tags               stringsSQL `db:"tags"`
	Upvotes            int        `db:"upvotes"`
	Interactions       int        `db:"interactions"`
	Downloads          int        `db:"downloads"`
	QualityScore       int        `db:"quality_score"`
	CompatibilityScore int        `db:"compatibility_score"`
	Status             string     `db:"status"`
	CreatedDate        string     `db:"created_date"`
	UpdatedAt          *time.Time `db:"updated_at"`

	// metadata
	ThumbnailURL string     `db:"thumbnail_url"`
	AISummary    string     `db:"ai_summary"`
	Description  string     `db:"description"`
	WordCount    int        `db:"word_count"`
	MediaType    string     `db:"media_type"`
	Language     string     `db:"language"`
	Subjects     stringsSQL `db:"subjects"`
}

// stringsSQL is a JSON array of strings for SQL operations
type stringsSQL []string

// Value implements driver.Valuer for database storage
func (t stringsSQL) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval
func (t *stringsSQL) Scan(value any) error {
	if value == nil {
		*t = stringsSQL{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return json.Unmarshal([]byte("[]"), t)
	}

	return json.Unmarshal(data, t)
}

// NewWebpageRepository creates a new webpage repository
func NewWebpageRepository(db *sqlx.DB) *WebpageRepository {
	return &WebpageRepository{db: db}
}

const upsertWebpage = `
	INSERT INTO webpages (
		id, url, title, domain, source, category, subcategory, tags,
		upvotes, interactions, downloads, quality_score, compatibility_score,
		status, created_date, updated_at,
		thumbnail_url, ai_summary, description, word_count, media_type, language, subjects
	) VALUES (
		:id, :url, :title, :domain, :source, :category, :subcategory, :tags,
		:upvotes, :interactions, :downloads, :quality_score, :compatibility_score,
		:status, :created_date, :updated_at,
		:thumbnail_url, :ai_summary, :description, :word_count, :media_type, :language, :subjects
	)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title, domain = excluded.domain, source = excluded.source,
		category = excluded.category, subcategory = excluded.subcategory, tags = excluded.tags,
		upvotes = excluded.upvotes, interactions = excluded.interactions, downloads = excluded.downloads,
		quality_score = excluded.quality_score, compatibility_score = excluded.compatibility_score,
		status = excluded.status, created_date = excluded.created_date, updated_at = excluded.updated_at,
		thumbnail_url = excluded.thumbnail_url, ai_summary = excluded.ai_summary,
		description = excluded.description, word_count = excluded.word_count,
		media_type = excluded.media_type, language = excluded.language, subjects = excluded.subjects
`

// Get retrieves a webpage by id or url
func (r *WebpageRepository) Get(ctx context.Context, id string) (domain.Record, error) {
	var row webpageSQL
	err := r.db.GetContext(ctx, &row, "SELECT * FROM webpages WHERE id = ? OR url = ?", id, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("get webpage: %w", err)
	}
	return row.toRecord(), nil
}

// Put inserts or updates a webpage, url is the identity
func (r *WebpageRepository) Put(ctx context.Context, rec domain.Record) error {
	rec, err := store.Prepare(rec)
	if err != nil {
		return fmt.Errorf("put webpage: %w", err)
	}
	row := fromRecord(rec)

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err = retrier.Do(ctx, func() error {
		if _, err := r.db.NamedExecContext(ctx, upsertWebpage, row); err != nil {
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("put webpage: %w", err)}
		}
		return nil
	})
	return unwrapCritical(err)
}

// BatchWrite upserts records in one transaction, invalid records are reported as failed
func (r *WebpageRepository) BatchWrite(ctx context.Context, records []domain.Record) (store.BatchResult, error) {
	res := store.BatchResult{}
	rows := make([]webpageSQL, 0, len(records))
	for _, rec := range records {
		prepared, err := store.Prepare(rec)
		if err != nil {
			res.Failed = append(res.Failed, rec.ID)
			continue
		}
		rows = append(rows, fromRecord(prepared))
	}
	if len(rows) == 0 {
		return res, nil
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			if isLockError(err) {
				return err
			}
			return &criticalError{err: fmt.Errorf("begin transaction: %w", err)}
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, upsertWebpage, row); err != nil {
				if isLockError(err) {
					return err
				}
				return &criticalError{err: fmt.Errorf("upsert %s: %w", row.URL, err)}
			}
		}
		if err := tx.Commit(); err != nil {
			if isLockError(err) {
				return err
			}
			return &criticalError{err: fmt.Errorf("commit: %w", err)}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("batch write webpages: %w", unwrapCritical(err))
	}
	res.Written = len(rows)
	return res, nil
}

// Delete removes a webpage by id
func (r *WebpageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM webpages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete webpage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Query retrieves a page of webpages by source or category, keyset paginated on id
func (r *WebpageRepository) Query(ctx context.Context, q store.Query, cursor string) (store.Page, error) {
	if err := q.Validate(); err != nil {
		return store.Page{}, fmt.Errorf("query webpages: %w", err)
	}
	col := "source"
	if q.Index == store.IndexCategoryStatus {
		col = "category"
	}
	qb := sq.Select("*").From("webpages").Where(sq.Eq{col: q.Key})
	if q.Status != "" {
		qb = qb.Where(sq.Eq{"status": string(q.Status)})
	}
	return r.page(ctx, qb, cursor, q.PageSize())
}

// Scan retrieves a page of webpages matching the filter, keyset paginated on id
func (r *WebpageRepository) Scan(ctx context.Context, f store.Filter, cursor string) (store.Page, error) {
	qb := sq.Select("*").From("webpages")
	if len(f.Sources) > 0 {
		qb = qb.Where(sq.Eq{"source": f.Sources})
	}
	if len(f.Categories) > 0 {
		qb = qb.Where(sq.Eq{"category": f.Categories})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		qb = qb.Where(sq.Eq{"status": statuses})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		qb = qb.Where(sq.Like{"LOWER(title)": "%" + strings.ToLower(s) + "%"})
	}
	return r.page(ctx, qb, cursor, f.PageSize())
}

// ExistsByURL checks if a webpage with the url is stored
func (r *WebpageRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM webpages WHERE url = ?)", url)
	if err != nil {
		return false, fmt.Errorf("check webpage exists: %w", err)
	}
	return exists, nil
}

// page runs the select with keyset pagination, one extra row tells if there is a next page
func (r *WebpageRepository) page(ctx context.Context, qb sq.SelectBuilder, cursor string, size int) (store.Page, error) {
	if cursor != "" {
		qb = qb.Where(sq.Gt{"id": cursor})
	}
	query, args, err := qb.OrderBy("id").Limit(uint64(size + 1)).ToSql() //nolint:gosec // size is positive
	if err != nil {
		return store.Page{}, fmt.Errorf("build query: %w", err)
	}

	var rows []webpageSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return store.Page{}, fmt.Errorf("select webpages: %w", err)
	}

	res := store.Page{}
	if len(rows) > size {
		rows = rows[:size]
		res.Cursor = rows[size-1].ID
	}
	res.Records = make([]domain.Record, len(rows))
	for i := range rows {
		res.Records[i] = rows[i].toRecord()
	}
	return res, nil
}

func fromRecord(rec domain.Record) webpageSQL {
	res := webpageSQL{
		ID:                 rec.ID,
		URL:                rec.URL,
		Title:              rec.Title,
		Domain:             rec.Domain,
		Source:             rec.Source,
		Category:           rec.Category,
		Subcategory:        rec.Subcategory,
		Tags:               stringsSQL(rec.Tags),
		Upvotes:            rec.Engagement.Upvotes,
		Interactions:       rec.Engagement.Interactions,
		Downloads:          rec.Engagement.Downloads,
		QualityScore:       rec.QualityScore,
		CompatibilityScore: rec.CompatibilityScore,
		Status:             string(rec.Status),
		CreatedDate:        rec.CreatedDate,
		ThumbnailURL:       rec.ThumbnailURL,
		AISummary:          rec.AISummary,
		Description:        rec.Description,
		WordCount:          rec.WordCount,
		MediaType:          rec.MediaType,
		Language:           rec.Language,
		Subjects:           stringsSQL(rec.Subjects),
	}
	if !rec.UpdatedAt.IsZero() {
		ts := rec.UpdatedAt.UTC()
		res.UpdatedAt = &ts
	}
	return res
}

func (w *webpageSQL) toRecord() domain.Record {
	res := domain.Record{
		ID:          w.ID,
		URL:         w.URL,
		Title:       w.Title,
		Domain:      w.Domain,
		Source:      w.Source,
		Category:    w.Category,
		Subcategory: w.Subcategory,
		Engagement: domain.Engagement{
			Upvotes:      w.Upvotes,
			Interactions: w.Interactions,
			Downloads:    w.Downloads,
		},
		QualityScore:       w.QualityScore,
		CompatibilityScore: w.CompatibilityScore,
		Status:             domain.Status(w.Status),
		CreatedDate:        w.CreatedDate,
		ThumbnailURL:       w.ThumbnailURL,
		AISummary:          w.AISummary,
		Description:        w.Description,
		WordCount:          w.WordCount,
		MediaType:          w.MediaType,
		Language:           w.Language,
	}
	if len(w.Tags) > 0 {
		res.Tags = []string(w.Tags)
	}
	if len(w.Subjects) > 0 {
		res.Subjects = []string(w.Subjects)
	}
	if w.UpdatedAt != nil {
		res.UpdatedAt = w.UpdatedAt.UTC()
	}
	return res
}
