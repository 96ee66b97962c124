package server

import (
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
)

// rssFeed is the RSS 2.0 root element
type rssFeed struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	Channel *rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *atomLink  `xml:"http://www.w3.org/2005/Atom link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Categories  []string `xml:"category"`
}

// rssHandler returns active records of the category as RSS, best quality first
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	limit := s.config.PageSize
	records, err := store.Collect(r.Context(),
		store.QueryPages(s.store, store.ByCategory(category, domain.StatusActive)), maxPageSize)
	if err != nil {
		lgr.Printf("[WARN] failed to load records of %s: %v", category, err)
		http.Error(w, "can't load records", http.StatusInternalServerError)
		return
	}
	slices.SortStableFunc(records, func(a, b domain.Record) int { return cmp.Compare(b.QualityScore, a.QualityScore) })
	if len(records) > limit {
		records = records[:limit]
	}

	base := "http://" + r.Host
	if r.TLS != nil {
		base = "https://" + r.Host
	}
	data, err := s.renderRSS(records, category, base)
	if err != nil {
		lgr.Printf("[WARN] failed to render rss of %s: %v", category, err)
		http.Error(w, "can't render rss", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) renderRSS(records []domain.Record, category, base string) ([]byte, error) {
	if category == "" {
		return nil, errors.New("empty category")
	}
	items := make([]*rssItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toRSSItem(rec))
	}

	feed := &rssFeed{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &rssChannel{
			Title:         "shtell - " + category,
			Link:          base + "/api/v1/webpages?category=" + category,
			Description:   fmt.Sprintf("curated %s reading, best quality first", category),
			AtomLink:      &atomLink{Href: base + "/rss/" + category, Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: s.now().Format(time.RFC1123Z),
			Items:         items,
		},
	}
	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss: %w", err)
	}
	return append([]byte(xml.Header), output...), nil
}

func toRSSItem(rec domain.Record) *rssItem {
	desc := rec.AISummary
	if desc == "" {
		desc = rec.Description
	}
	if m := rec.ReadingMinutes(); m > 0 {
		desc = strings.TrimSpace(fmt.Sprintf("%s\n\n%d min read", desc, m))
	}

	res := &rssItem{
		Title:       rec.Title,
		Link:        rec.URL,
		GUID:        rec.ID,
		Description: desc,
		Categories:  rec.Tags,
	}
	if created, ok := rec.CreatedAt(); ok {
		res.PubDate = created.Format(time.RFC1123Z)
	}
	return res
}
