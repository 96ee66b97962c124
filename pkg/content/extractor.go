// Package content fetches web pages and extracts their text and metadata
package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html/charset"
)

const maxBodySize = 5 << 20

// Page is the extracted content of a web page
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Language    string `json:"language,omitempty"`
	Text        string `json:"text,omitempty"`
	WordCount   int    `json:"word_count"`
}

// HTTPExtractor extracts article content from URLs using trafilatura, meta tags are read with goquery
type HTTPExtractor struct {
	timeout   time.Duration
	client    *http.Client
	userAgent string
}

// NewHTTPExtractor creates a new content extractor
func NewHTTPExtractor(timeout time.Duration, userAgent string) *HTTPExtractor {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; shtell/1.0)"
	}
	return &HTTPExtractor{
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Extract retrieves the page and extracts its text and metadata.
// A page without extractable text is not an error, Text is empty then.
func (e *HTTPExtractor) Extract(ctx context.Context, urlStr string) (Page, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return Page{}, fmt.Errorf("parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Page{}, fmt.Errorf("invalid URL: %s", urlStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	// some publishers refuse requests not looking like page navigation
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	resp, err := e.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch URL %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, urlStr)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return Page{}, fmt.Errorf("decode charset of %s: %w", urlStr, err)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return Page{}, fmt.Errorf("read body of %s: %w", urlStr, err)
	}

	return Parse(raw, parsedURL)
}

// Parse extracts text and metadata from html of the page at pageURL
func Parse(raw []byte, pageURL *url.URL) (Page, error) {
	res := Page{URL: pageURL.String()}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Page{}, fmt.Errorf("parse html of %s: %w", pageURL, err)
	}
	res.Title = strings.TrimSpace(firstNonEmpty(metaContent(doc, "og:title"), doc.Find("title").First().Text()))
	res.Description = strings.TrimSpace(firstNonEmpty(metaContent(doc, "og:description"), metaContent(doc, "description")))
	res.Image = resolve(pageURL, firstNonEmpty(metaContent(doc, "og:image"), metaContent(doc, "twitter:image")))
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		res.Language = normalizeLanguage(lang)
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		IncludeImages:   false,
		IncludeLinks:    false,
		Deduplicate:     true,
		OriginalURL:     pageURL,
	}
	result, err := trafilatura.Extract(bytes.NewReader(raw), opts)
	if err != nil || result == nil {
		return res, nil //nolint:nilerr // pages without main content still carry metadata
	}
	res.Text = strings.TrimSpace(result.ContentText)
	res.WordCount = len(strings.Fields(res.Text))

	md := result.Metadata
	res.Title = firstNonEmpty(res.Title, md.Title)
	res.Description = firstNonEmpty(res.Description, md.Description)
	res.Image = firstNonEmpty(res.Image, resolve(pageURL, md.Image))
	res.Language = firstNonEmpty(res.Language, normalizeLanguage(md.Language))
	return res, nil
}

// metaContent returns content of meta tag with the given property or name
func metaContent(doc *goquery.Document, key string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// normalizeLanguage reduces "en-US" and "en_us" to "en"
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
