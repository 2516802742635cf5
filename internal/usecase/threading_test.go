package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfilter/track-the-news/internal/domain"
)

func TestThreadResolverWindow(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
	repo := &fakeRepository{records: []domain.Record{
		{ID: 1, Title: "Day old", NotificationID: "10", RecordedAt: clock.now.Add(-24 * time.Hour)},
		{ID: 2, Title: "Three days old", NotificationID: "20", RecordedAt: clock.now.Add(-72 * time.Hour)},
		{ID: 3, Title: "Never notified", RecordedAt: clock.now.Add(-time.Hour)},
	}}
	resolver := NewThreadResolver(repo, 0, clock.Now)

	thread, err := resolver.Resolve(context.Background(), domain.Article{Title: "Day old"})
	require.NoError(t, err)
	assert.False(t, thread.Standalone())
	assert.Equal(t, "10", thread.ReplyTo)

	for _, title := range []string{"Three days old", "Never notified", "Unknown"} {
		thread, err = resolver.Resolve(context.Background(), domain.Article{Title: title})
		require.NoError(t, err)
		assert.True(t, thread.Standalone(), title)
	}
}

func TestThreadResolverCustomWindow(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
	repo := &fakeRepository{records: []domain.Record{
		{ID: 1, Title: "Story", NotificationID: "10", RecordedAt: clock.now.Add(-72 * time.Hour)},
	}}

	thread, err := NewThreadResolver(repo, 96*time.Hour, clock.Now).Resolve(context.Background(), domain.Article{Title: "Story"})
	require.NoError(t, err)
	assert.Equal(t, "10", thread.ReplyTo)
}

func TestThreadResolverPropagatesErrors(t *testing.T) {
	_, err := NewThreadResolver(&erroringRepository{&fakeRepository{}}, 0, nil).Resolve(context.Background(), domain.Article{Title: "X"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type erroringRepository struct {
	*fakeRepository
}

func (e *erroringRepository) FindThreadParent(context.Context, string, time.Time) (string, error) {
	return "", context.DeadlineExceeded
}
