package usecase

import (
	"context"
	"errors"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/jfilter/track-the-news/internal/domain"
)

type fakeSource struct {
	entries map[string][]domain.Entry
	failing map[string]bool
}

func (f *fakeSource) Entries(_ context.Context, feed domain.Feed) ([]domain.Entry, error) {
	if f.failing[feed.URL] {
		return nil, errors.New("feed down")
	}
	return f.entries[feed.URL], nil
}

type fakeExtractor struct {
	mu     sync.Mutex
	pages  map[string]string
	failed map[string]bool
	calls  []string
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.failed[url] {
		return domain.Document{}, errors.New("timeout")
	}
	return domain.Document{Plaintext: f.pages[url]}, nil
}

type fakeRepository struct {
	mu      sync.Mutex
	records []domain.Record
	nextID  int64
	failAll bool
}

func (f *fakeRepository) HasSeen(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return false, errors.New("database is locked")
	}
	for _, r := range f.records {
		if r.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) FindThreadParent(_ context.Context, title string, since time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var candidates []domain.Record
	for _, r := range f.records {
		if r.Title == title && !r.RecordedAt.Before(since) && r.NotificationID != "" {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RecordedAt.Equal(candidates[j].RecordedAt) {
			return candidates[i].ID > candidates[j].ID
		}
		return candidates[i].RecordedAt.After(candidates[j].RecordedAt)
	})
	return candidates[0].NotificationID, nil
}

func (f *fakeRepository) Record(_ context.Context, record domain.Record) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.URL == record.URL {
			return false, nil
		}
	}
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, record)
	return true, nil
}

func (f *fakeRepository) byURL(url string) (domain.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.URL == url {
			return r, true
		}
	}
	return domain.Record{}, false
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []domain.Notification
	ids   []string
	fail  bool
	count int
}

func (f *fakeNotifier) Notify(_ context.Context, n domain.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("transport down")
	}
	f.sent = append(f.sent, n)
	id := "1337"
	if f.count < len(f.ids) {
		id = f.ids[f.count]
	}
	f.count++
	return id, nil
}

type renderCall struct {
	paragraph string
	square    bool
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls []renderCall
}

func (f *fakeRenderer) Render(paragraph string, square bool) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, renderCall{paragraph: paragraph, square: square})
	if paragraph == "" {
		return nil, errors.New("empty")
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }
