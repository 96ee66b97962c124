package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/yitzyh/shtell/pkg/domain"
)

// ErrStop can be returned from Each callback to end iteration without error
var ErrStop = errors.New("stop iteration")

// PageFunc fetches the page starting at cursor, empty cursor is the first page
type PageFunc func(ctx context.Context, cursor string) (Page, error)

// QueryPages iterates a secondary index query
func QueryPages(s Store, q Query) PageFunc {
	return func(ctx context.Context, cursor string) (Page, error) {
		return s.Query(ctx, q, cursor)
	}
}

// ScanPages iterates a filtered scan
func ScanPages(s Store, f Filter) PageFunc {
	return func(ctx context.Context, cursor string) (Page, error) {
		return s.Scan(ctx, f, cursor)
	}
}

// Each calls fn for every record of every page, stops on the first error
func Each(ctx context.Context, fetch PageFunc, fn func(domain.Record) error) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, cursor)
		if err != nil {
			return fmt.Errorf("fetch page: %w", err)
		}
		for _, r := range page.Records {
			if err := fn(r); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
		if page.Cursor == "" || page.Cursor == cursor {
			return nil
		}
		cursor = page.Cursor
	}
}

// Collect loads all records, limit > 0 caps the number of records returned
func Collect(ctx context.Context, fetch PageFunc, limit int) ([]domain.Record, error) {
	var res []domain.Record
	err := Each(ctx, fetch, func(r domain.Record) error {
		res = append(res, r)
		if limit > 0 && len(res) >= limit {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// StatusCount is a number of records in one category with one status
type StatusCount struct {
	Category string        `json:"category"`
	Status   domain.Status `json:"status"`
	Count    int           `json:"count"`
}

// Summary counts records per category and status, sorted by category then status
func Summary(ctx context.Context, fetch PageFunc) ([]StatusCount, error) {
	type key struct {
		category string
		status   domain.Status
	}
	counts := map[key]int{}
	err := Each(ctx, fetch, func(r domain.Record) error {
		cat := r.Category
		if cat == "" {
			cat = "uncategorized"
		}
		counts[key{category: cat, status: r.Status}]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := slices.SortedFunc(maps.Keys(counts), func(a, b key) int {
		return cmp.Or(cmp.Compare(a.category, b.category), cmp.Compare(a.status, b.status))
	})
	res := make([]StatusCount, 0, len(keys))
	for _, k := range keys {
		res = append(res, StatusCount{Category: k.category, Status: k.status, Count: counts[k]})
	}
	return res, nil
}
