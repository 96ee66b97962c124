package domain

import (
	"crypto/md5" //nolint:gosec // md5 is the id scheme of the webpages table, not a security primitive
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// MaxTags is the upper bound on the number of tags a record carries
const MaxTags = 10

// ErrMissingURL is returned when a record has no url, the identity field
var ErrMissingURL = errors.New("record has no url")

// ErrInvalidStatus is returned for status values outside of the known set
var ErrInvalidStatus = errors.New("invalid status")

// Status controls visibility of a record to downstream consumers
type Status string

// record statuses
const (
	StatusActive        Status = "active"
	StatusInactive      Status = "inactive"
	StatusDesktopOnly   Status = "desktop-only"
	StatusPendingReview Status = "pending-review"
)

// Valid reports whether the status is one of the known values
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDesktopOnly, StatusPendingReview:
		return true
	}
	return false
}

// ParseStatus converts string to Status, any unknown value is a data error
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Engagement holds counters reported by the source of a record
type Engagement struct {
	Upvotes      int `json:"upvotes"`
	Interactions int `json:"interactions"`
	Downloads    int `json:"downloads"`
}

// Record is one content item tracked by the system, identified by its url
type Record struct {
	ID                 string     `json:"id"`
	URL                string     `json:"url"`
	Title              string     `json:"title"`
	Domain             string     `json:"domain"`
	Source             string     `json:"source"`
	Category           string     `json:"category"`
	Subcategory        string     `json:"subcategory"`
	Tags               []string   `json:"tags"`
	Engagement         Engagement `json:"engagement"`
	QualityScore       int        `json:"quality_score"`
	CompatibilityScore int        `json:"compatibility_score"`
	Status             Status     `json:"status"`
	CreatedDate        string     `json:"created_date,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// optional metadata filled by ingestion and enhancement
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	AISummary    string   `json:"ai_summary,omitempty"`
	Description  string   `json:"description,omitempty"`
	WordCount    int      `json:"word_count,omitempty"`
	MediaType    string   `json:"media_type,omitempty"`
	Language     string   `json:"language,omitempty"`
	Subjects     []string `json:"subjects,omitempty"`
}

// NewRecord makes a record for the given url with derived id and domain.
// New records start active.
func NewRecord(rawURL, title, source string) (Record, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Record{}, ErrMissingURL
	}
	return Record{
		ID:     RecordID(rawURL),
		URL:    rawURL,
		Title:  strings.TrimSpace(title),
		Domain: DomainOf(rawURL),
		Source: source,
		Status: StatusActive,
	}, nil
}

// RecordID returns the stable identifier of a url, md5 hex of the url string
func RecordID(rawURL string) string {
	sum := md5.Sum([]byte(rawURL)) //nolint:gosec // see import comment
	return hex.EncodeToString(sum[:])
}

// DomainOf returns lowercased host of the url without port and "www." prefix.
// Unparseable urls give an empty string.
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := u.Host
	if host == "" && u.Scheme == "" {
		// bare "example.com/path" parses as a path
		if u2, err := url.Parse("http://" + rawURL); err == nil {
			host = u2.Host
		}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

// Validate checks the identity of the record and its status
func (r Record) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrMissingURL
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	return nil
}

// Clone returns a deep copy of the record
func (r Record) Clone() Record {
	res := r
	if r.Tags != nil {
		res.Tags = append([]string(nil), r.Tags...)
	}
	if r.Subjects != nil {
		res.Subjects = append([]string(nil), r.Subjects...)
	}
	return res
}

// Text returns lowercased title and url, the haystack for keyword matching
func (r Record) Text() string {
	return strings.ToLower(r.Title + " " + r.URL)
}

// CreatedAt parses CreatedDate, the second value is false for missing or unparseable dates
func (r Record) CreatedAt() (time.Time, bool) {
	s := strings.TrimSpace(r.CreatedDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ReadingMinutes estimates reading time at 200 words per minute, at least one minute for any text
func (r Record) ReadingMinutes() int {
	if r.WordCount <= 0 {
		return 0
	}
	return max(1, r.WordCount/200)
}
