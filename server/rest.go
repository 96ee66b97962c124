package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
)

// statusAll in the status parameter selects records with any status
const statusAll = "all"

type webpage struct {
	domain.Record
	ReadingMinutes int `json:"reading_minutes,omitempty"`
}

type listResponse struct {
	Webpages []webpage `json:"webpages"`
	Cursor   string    `json:"cursor,omitempty"`
}

type categoriesResponse struct {
	Categories []string            `json:"categories"`
	Counts     []store.StatusCount `json:"counts"`
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": s.version,
		"time":    s.now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// listHandler returns one page of records. Single source or category without search uses
// the secondary index, anything else is a filtered scan. Only active records are listed
// unless status is set, status=all lists everything.
func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := s.config.PageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			renderError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = min(n, maxPageSize)
	}

	var statuses []domain.Status
	switch v := strings.TrimSpace(q.Get("status")); v {
	case "":
		statuses = []domain.Status{domain.StatusActive}
	case statusAll:
	default:
		for _, sv := range strings.Split(v, ",") {
			st, err := domain.ParseStatus(sv)
			if err != nil {
				renderError(w, r, err, http.StatusBadRequest)
				return
			}
			statuses = append(statuses, st)
		}
	}

	sources, categories := splitParam(q.Get("source")), splitParam(q.Get("category"))
	search := strings.TrimSpace(q.Get("q"))
	cursor := q.Get("cursor")

	var page store.Page
	var err error
	switch {
	case search == "" && len(statuses) <= 1 && len(sources) == 1 && len(categories) == 0:
		page, err = s.store.Query(r.Context(), store.Query{Index: store.IndexSourceStatus, Key: sources[0],
			Status: firstStatus(statuses), Limit: limit}, cursor)
	case search == "" && len(statuses) <= 1 && len(categories) == 1 && len(sources) == 0:
		page, err = s.store.Query(r.Context(), store.Query{Index: store.IndexCategoryStatus, Key: categories[0],
			Status: firstStatus(statuses), Limit: limit}, cursor)
	default:
		page, err = s.store.Scan(r.Context(), store.Filter{Sources: sources, Categories: categories,
			Statuses: statuses, Search: search, Limit: limit}, cursor)
	}
	if err != nil {
		lgr.Printf("[WARN] failed to list webpages: %v", err)
		renderError(w, r, errors.New("can't list webpages"), http.StatusInternalServerError)
		return
	}

	resp := listResponse{Webpages: make([]webpage, 0, len(page.Records)), Cursor: page.Cursor}
	for _, rec := range page.Records {
		resp.Webpages = append(resp.Webpages, webpage{Record: rec, ReadingMinutes: rec.ReadingMinutes()})
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// getHandler returns a record by id or url
func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		renderError(w, r, fmt.Errorf("webpage %s not found", id), http.StatusNotFound)
		return
	}
	if err != nil {
		lgr.Printf("[WARN] failed to get webpage %s: %v", id, err)
		renderError(w, r, errors.New("can't get webpage"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, webpage{Record: rec, ReadingMinutes: rec.ReadingMinutes()})
}

// categoriesHandler returns categories with active records and counts per category and status.
// The result needs a full scan, so it is cached for an hour.
func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	s.cacheLock.Lock()
	cached := s.categories
	s.cacheLock.Unlock()
	if cached != nil && s.now().Before(cached.expires) {
		renderJSON(w, r, http.StatusOK, cached.resp)
		return
	}

	// scan runs unlocked, concurrent misses may scan twice and the last one wins
	counts, err := store.Summary(r.Context(), store.ScanPages(s.store, store.Filter{Limit: maxPageSize}))
	if err != nil {
		lgr.Printf("[WARN] failed to count categories: %v", err)
		renderError(w, r, errors.New("can't get categories"), http.StatusInternalServerError)
		return
	}

	resp := categoriesResponse{Categories: []string{}, Counts: counts}
	for _, c := range counts {
		if c.Status == domain.StatusActive && c.Count > 0 && !slices.Contains(resp.Categories, c.Category) {
			resp.Categories = append(resp.Categories, c.Category)
		}
	}
	s.cacheLock.Lock()
	s.categories = &categoriesCache{resp: resp, expires: s.now().Add(categoriesTTL)}
	s.cacheLock.Unlock()
	renderJSON(w, r, http.StatusOK, resp)
}

func splitParam(v string) []string {
	var res []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

func firstStatus(statuses []domain.Status) domain.Status {
	if len(statuses) == 0 {
		return ""
	}
	return statuses[0]
}
