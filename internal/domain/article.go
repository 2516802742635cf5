package domain

import (
	"image"
	"strings"
	"time"
)

// Feed describes one configured syndication feed.
type Feed struct {
	Outlet        string `json:"outlet"`
	URL           string `json:"url"`
	DelicateURLs  bool   `json:"delicateURLs"`
	RedirectLinks bool   `json:"redirectLinks"`
}

// Entry is a raw item as yielded by a feed source.
type Entry struct {
	Outlet string
	Title  string
	Link   string
}

// Article is the per-entry value threaded through a pipeline pass.
// Stage transitions return copies; an Article is never mutated in place.
type Article struct {
	Outlet         string
	Title          string
	URL            string
	Delicate       bool
	Redirects      bool
	Paragraphs     []string
	Notified       bool
	NotificationID string
}

// NewArticle builds an Article for an entry whose link is already canonical.
func NewArticle(feed Feed, entry Entry, canonicalURL string) Article {
	return Article{
		Outlet:    entry.Outlet,
		Title:     entry.Title,
		URL:       canonicalURL,
		Delicate:  feed.DelicateURLs,
		Redirects: feed.RedirectLinks,
	}
}

// WithParagraphs returns a copy carrying the evaluated matching paragraphs.
func (a Article) WithParagraphs(paragraphs []string) Article {
	a.Paragraphs = append([]string(nil), paragraphs...)
	return a
}

// WithNotification returns a copy marked as notified under id.
func (a Article) WithNotification(id string) Article {
	a.Notified = true
	a.NotificationID = id
	return a
}

// Matched reports whether any paragraph matched.
func (a Article) Matched() bool {
	return len(a.Paragraphs) > 0
}

// Status renders the notification text: "<outlet>: <title> <url>".
func (a Article) Status() string {
	source := ""
	if a.Outlet != "" {
		source = a.Outlet + ": "
	}
	return source + a.Title + " " + a.URL
}

// Record converts the article outcome into a dedup record stamped at now.
func (a Article) Record(now time.Time) Record {
	return Record{
		Title:          a.Title,
		Outlet:         a.Outlet,
		URL:            a.URL,
		Notified:       a.Notified,
		RecordedAt:     now.UTC(),
		NotificationID: a.NotificationID,
	}
}

// Document is readable plaintext produced by the extractor.
type Document struct {
	Plaintext string
}

// LooksBroken reports whether the fetch identity marker leaked into the text,
// which happens when a site serves an error or consent page instead of the article.
func (d Document) LooksBroken(marker string) bool {
	return marker != "" && strings.Contains(d.Plaintext, marker)
}

// Candidate is what a block-list classifier gets to look at.
type Candidate struct {
	Outlet    string
	Title     string
	URL       string
	Plaintext string
}

// Record is one row of the append-only dedup log.
type Record struct {
	ID             int64
	Title          string
	Outlet         string
	URL            string
	Notified       bool
	RecordedAt     time.Time
	NotificationID string
}

// Thread is the outcome of the threading decision.
type Thread struct {
	ReplyTo string
}

// Standalone reports whether the notification starts a new thread.
func (t Thread) Standalone() bool {
	return t.ReplyTo == ""
}

// Notification is what gets handed to the notification transport.
type Notification struct {
	Text    string
	Images  []image.Image
	ReplyTo string
}
