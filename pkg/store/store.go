// Package store defines the storage collaborator of the curation engine. Implementations live in
// pkg/repository (sqlite) and pkg/dynamo (DynamoDB), callers never see pagination tokens directly,
// they iterate with Each and Collect.
package store

import (
	"context"
	"errors"

	"github.com/yitzyh/shtell/pkg/domain"
)

//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store

// ErrNotFound is returned by Get for unknown ids
var ErrNotFound = errors.New("record not found")

// secondary indexes of the webpages table
const (
	IndexSourceStatus   = "source-status-index"
	IndexCategoryStatus = "category-status-index"
)

// DefaultPageSize is used when a query has no limit set
const DefaultPageSize = 100

// Store is the storage of webpage records
type Store interface {
	// Get retrieves a record by id, url works as id too
	Get(ctx context.Context, id string) (domain.Record, error)
	Put(ctx context.Context, r domain.Record) error
	Query(ctx context.Context, q Query, cursor string) (Page, error)
	Scan(ctx context.Context, f Filter, cursor string) (Page, error)
	BatchWrite(ctx context.Context, records []domain.Record) (BatchResult, error)
	Delete(ctx context.Context, id string) error
}

// Query selects records by one of the secondary indexes
type Query struct {
	Index  string        // IndexSourceStatus or IndexCategoryStatus
	Key    string        // source or category, depending on the index
	Status domain.Status // optional, all statuses if empty
	Limit  int           // page size
}

// Filter selects records with a full scan, empty fields match everything
type Filter struct {
	Sources    []string
	Categories []string
	Statuses   []domain.Status
	Search     string // case-insensitive substring of title
	Limit      int    // page size
}

// Page is one page of results, empty Cursor means no more pages
type Page struct {
	Records []domain.Record
	Cursor  string
}

// BatchResult reports a batch write, Failed lists ids not written
type BatchResult struct {
	Written int
	Failed  []string
}

// PageSize returns the query limit or the default one
func (q Query) PageSize() int {
	if q.Limit <= 0 {
		return DefaultPageSize
	}
	return q.Limit
}

// Validate checks the index is known and key is set
func (q Query) Validate() error {
	if q.Index != IndexSourceStatus && q.Index != IndexCategoryStatus {
		return errors.New("unknown index " + q.Index)
	}
	if q.Key == "" {
		return errors.New("empty query key")
	}
	return nil
}

// PageSize returns the filter limit or the default one
func (f Filter) PageSize() int {
	if f.Limit <= 0 {
		return DefaultPageSize
	}
	return f.Limit
}

// BySource makes query of records from the source, optionally with the status
func BySource(source string, status domain.Status) Query {
	return Query{Index: IndexSourceStatus, Key: source, Status: status}
}

// ByCategory makes query of records in the category, optionally with the status
func ByCategory(category string, status domain.Status) Query {
	return Query{Index: IndexCategoryStatus, Key: category, Status: status}
}

// Prepare sets id from url and fills domain and status of a record before writing, url is required
func Prepare(r domain.Record) (domain.Record, error) {
	if err := r.Validate(); err != nil {
		return domain.Record{}, err
	}
	r.ID = domain.RecordID(r.URL)
	if r.Domain == "" {
		r.Domain = domain.DomainOf(r.URL)
	}
	if r.Status == "" {
		r.Status = domain.StatusActive
	}
	return r, nil
}
