package ports

import (
	"context"
	"image"
	"time"

	"github.com/jfilter/track-the-news/internal/domain"
)

// FeedSource pulls entries from one syndication feed.
type FeedSource interface {
	Entries(ctx context.Context, feed domain.Feed) ([]domain.Entry, error)
}

// Canonicalizer turns an entry link into its dedup key.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, rawURL string, redirects, delicate bool) (string, error)
}

// Extractor fetches an article and reduces it to readable plaintext.
type Extractor interface {
	Extract(ctx context.Context, url string) (domain.Document, error)
}

// Evaluator decides which paragraphs of an article match.
type Evaluator interface {
	Evaluate(ctx context.Context, article domain.Article, doc domain.Document) ([]string, error)
}

// Blocklist suppresses whole articles; the zero implementation never blocks.
type Blocklist interface {
	Blocked(ctx context.Context, candidate domain.Candidate) (bool, error)
}

// ArticleRepository persists processed articles for deduplication and threading.
type ArticleRepository interface {
	HasSeen(ctx context.Context, url string) (bool, error)
	FindThreadParent(ctx context.Context, title string, since time.Time) (string, error)
	Record(ctx context.Context, record domain.Record) (bool, error)
}

// Renderer draws a paragraph onto a raster image.
type Renderer interface {
	Render(paragraph string, square bool) (image.Image, error)
}

// Notifier publishes a status and returns its thread-capable identifier.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) (string, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
