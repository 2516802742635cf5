package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfilter/track-the-news/internal/domain"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example</title>
    <item>
      <title>First story</title>
      <link>http://ex.com/a?utm=1</link>
    </item>
    <item>
      <title></title>
      <link>http://ex.com/untitled</link>
    </item>
    <item>
      <title>No link</title>
    </item>
    <item>
      <title>Second story</title>
      <link>http://ex.com/b</link>
    </item>
  </channel>
</rss>`

func TestEntriesSkipsMalformedItems(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer server.Close()

	src := NewSource(server.Client(), "ttn-test", zerolog.Nop())
	entries, err := src.Entries(context.Background(), domain.Feed{Outlet: "Example", URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, []domain.Entry{
		{Outlet: "Example", Title: "First story", Link: "http://ex.com/a?utm=1"},
		{Outlet: "Example", Title: "Second story", Link: "http://ex.com/b"},
	}, entries)
	assert.Equal(t, "ttn-test", gotUA)
}

func TestEntriesFeedFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewSource(server.Client(), "", zerolog.Nop())
	_, err := src.Entries(context.Background(), domain.Feed{Outlet: "Broken", URL: server.URL})
	require.Error(t, err)

	_, err = src.Entries(context.Background(), domain.Feed{Outlet: "Empty"})
	require.Error(t, err)
}
