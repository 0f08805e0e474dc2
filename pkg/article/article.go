package article

import (
	"net/url"
	"strings"
	"time"
)

// ContentUnavailable marks a record whose full-text fetch was attempted and
// produced nothing usable. An empty Content means no fetch was attempted.
const ContentUnavailable = "[content unavailable]"

type Record struct {
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	DisplayedURL string    `json:"displayed_url,omitempty"`
	Snippet      string    `json:"snippet,omitempty"`
	Date         string    `json:"date,omitempty"`
	Source       string    `json:"source"`
	Content      string    `json:"content,omitempty"`
	Position     int       `json:"position"`
	IsAd         bool      `json:"is_ad"`
	Featured     bool      `json:"featured"`
	IsVideo      bool      `json:"is_video"`
	IsNews       bool      `json:"is_news"`
	Query        string    `json:"query,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

func (r Record) ContentAttempted() bool {
	return r.Content != ""
}

func (r Record) HasContent() bool {
	return r.Content != "" && r.Content != ContentUnavailable
}

// PublishedAt resolves the free-text Date against the discovery time.
func (r Record) PublishedAt() (time.Time, bool) {
	ref := r.DiscoveredAt
	if ref.IsZero() {
		ref = time.Now()
	}
	return ParseDate(r.Date, ref)
}

// SourceFromURL returns the host of raw without a leading "www.".
func SourceFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
