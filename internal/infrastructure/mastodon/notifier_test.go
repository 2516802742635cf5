package mastodon

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfilter/track-the-news/internal/domain"
)

type fakeInstance struct {
	mu       sync.Mutex
	uploads  int
	failNth  int
	auth     []string
	statuses []map[string][]string
}

func (f *fakeInstance) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/media", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.uploads++
		n := f.uploads
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()

		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "no file", http.StatusUnprocessableEntity)
			return
		}
		if n == f.failNth {
			http.Error(w, "too large", http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"id":"m%d"}`, n)
	})
	mux.HandleFunc("/api/v1/statuses", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.statuses = append(f.statuses, r.PostForm)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"109"}`))
	})
	return mux
}

func TestNotifyUploadsAndReplies(t *testing.T) {
	instance := &fakeInstance{failNth: 2}
	server := httptest.NewServer(instance.handler())
	defer server.Close()

	n := NewNotifier(Config{BaseURL: server.URL + "/", AccessToken: "secret"}, server.Client(), zerolog.Nop())

	images := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 4, 4)),
		image.NewRGBA(image.Rect(0, 0, 4, 4)),
		image.NewRGBA(image.Rect(0, 0, 4, 4)),
	}
	id, err := n.Notify(context.Background(), domain.Notification{
		Text:    "Example: X http://ex.com/a",
		Images:  images,
		ReplyTo: "77",
	})
	require.NoError(t, err)
	assert.Equal(t, "109", id)

	instance.mu.Lock()
	defer instance.mu.Unlock()
	assert.Equal(t, 3, instance.uploads)
	require.Len(t, instance.statuses, 1)
	status := instance.statuses[0]
	assert.Equal(t, []string{"Example: X http://ex.com/a"}, status["status"])
	assert.Equal(t, []string{"m1", "m3"}, status["media_ids[]"], "failed upload is dropped")
	assert.Equal(t, []string{"77"}, status["in_reply_to_id"])
	for _, a := range instance.auth {
		assert.Equal(t, "Bearer secret", a)
	}
}

func TestNotifyStandaloneWithoutImages(t *testing.T) {
	instance := &fakeInstance{}
	server := httptest.NewServer(instance.handler())
	defer server.Close()

	n := NewNotifier(Config{BaseURL: server.URL, AccessToken: "secret", Visibility: "unlisted"}, server.Client(), zerolog.Nop())
	_, err := n.Notify(context.Background(), domain.Notification{Text: "X http://ex.com/a"})
	require.NoError(t, err)

	instance.mu.Lock()
	defer instance.mu.Unlock()
	assert.Zero(t, instance.uploads)
	require.Len(t, instance.statuses, 1)
	_, hasReply := instance.statuses[0]["in_reply_to_id"]
	assert.False(t, hasReply)
	assert.Equal(t, []string{"unlisted"}, instance.statuses[0]["visibility"])
}

func TestNotifyStatusFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	n := NewNotifier(Config{BaseURL: server.URL, AccessToken: "secret"}, server.Client(), zerolog.Nop())
	_, err := n.Notify(context.Background(), domain.Notification{Text: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewNotifier(Config{}, nil, zerolog.Nop()).Notify(context.Background(), domain.Notification{Text: "X"})
	require.Error(t, err)
}
