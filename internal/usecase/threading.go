package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

// DefaultThreadWindow is how far back a same-title notification still
// counts as the thread to reply to.
const DefaultThreadWindow = 48 * time.Hour

// ThreadResolver decides whether a notification replies to an earlier one.
type ThreadResolver struct {
	repository ports.ArticleRepository
	window     time.Duration
	now        func() time.Time
}

// NewThreadResolver builds a resolver. A non-positive window falls back to
// DefaultThreadWindow and a nil clock to time.Now.
func NewThreadResolver(repository ports.ArticleRepository, window time.Duration, now func() time.Time) *ThreadResolver {
	if window <= 0 {
		window = DefaultThreadWindow
	}
	if now == nil {
		now = time.Now
	}
	return &ThreadResolver{repository: repository, window: window, now: now}
}

// Resolve looks for the latest notified record with exactly the same title
// inside the window.
func (r *ThreadResolver) Resolve(ctx context.Context, article domain.Article) (domain.Thread, error) {
	since := r.now().Add(-r.window)
	id, err := r.repository.FindThreadParent(ctx, article.Title, since)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("find thread parent: %w", err)
	}
	return domain.Thread{ReplyTo: id}, nil
}
