package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

// Source implements ports.FeedSource on top of gofeed.
type Source struct {
	parser *gofeed.Parser
	logger zerolog.Logger
}

var _ ports.FeedSource = (*Source)(nil)

// NewSource wires an HTTP client and the identifying User-Agent into gofeed.
func NewSource(client *http.Client, userAgent string, logger zerolog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &Source{parser: parser, logger: logger}
}

// Entries fetches and parses one feed. Items without a title or link are
// dropped individually; they never fail the feed.
func (s *Source) Entries(ctx context.Context, feed domain.Feed) ([]domain.Entry, error) {
	if strings.TrimSpace(feed.URL) == "" {
		return nil, fmt.Errorf("feed %q has no url", feed.Outlet)
	}

	parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.URL, err)
	}

	entries := make([]domain.Entry, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		entry, ok := toEntry(feed.Outlet, item)
		if !ok {
			s.logger.Warn().Str("feed", feed.URL).Int("index", i).Msg("skipping malformed feed item")
			continue
		}
		entries = append(entries, entry)
	}

	s.logger.Debug().Str("outlet", feed.Outlet).Int("entries", len(entries)).Msg("feed parsed")
	return entries, nil
}

func toEntry(outlet string, item *gofeed.Item) (domain.Entry, bool) {
	if item == nil {
		return domain.Entry{}, false
	}
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}
	if title == "" || link == "" {
		return domain.Entry{}, false
	}
	return domain.Entry{Outlet: outlet, Title: title, Link: link}, true
}
