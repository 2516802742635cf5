package canonical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecruft(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://ex.com/a?utm=1":         "http://ex.com/a",
		"http://ex.com/a#top":           "http://ex.com/a",
		"http://ex.com/a?x=1#frag":      "http://ex.com/a",
		"http://ex.com/a#frag?notquery": "http://ex.com/a",
		"http://ex.com/a":               "http://ex.com/a",
	}
	for in, want := range cases {
		assert.Equal(t, want, Decruft(in), in)
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New(nil, "")
	ctx := context.Background()
	urls := []string{
		"http://ex.com/a?utm=1",
		"https://news.example.org/story/123#comments",
		"https://news.example.org/story?id=9&ref=rss",
		"https://plain.example.org/path/",
	}

	for _, delicate := range []bool{false, true} {
		for _, u := range urls {
			once, err := c.Canonicalize(ctx, u, false, delicate)
			require.NoError(t, err)
			twice, err := c.Canonicalize(ctx, once, false, delicate)
			require.NoError(t, err)
			assert.Equal(t, once, twice, "delicate=%v url=%s", delicate, u)
		}
	}
}

func TestCanonicalizeKeepsDelicateURLs(t *testing.T) {
	t.Parallel()

	got, err := New(nil, "").Canonicalize(context.Background(), "https://ex.com/view?id=42", false, true)
	require.NoError(t, err)
	assert.Equal(t, "https://ex.com/view?id=42", got)
}

func TestCanonicalizeFollowsRedirects(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r":
			gotUA = r.Header.Get("User-Agent")
			http.Redirect(w, r, "/final?utm_source=rss", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	c := New(server.Client(), "tracker-test")
	got, err := c.Canonicalize(context.Background(), server.URL+"/r", true, false)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/final", got)
	assert.Equal(t, "tracker-test", gotUA)

	delicate, err := c.Canonicalize(context.Background(), server.URL+"/r", true, true)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/final?utm_source=rss", delicate)
}

func TestCanonicalizePrefersLocationHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/moved/story?x=1")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	got, err := New(server.Client(), "").Canonicalize(context.Background(), server.URL+"/start", true, false)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/moved/story", got)
}

func TestCanonicalizeRedirectFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL + "/gone"
	server.Close()

	_, err := New(nil, "").Canonicalize(context.Background(), target, true, false)
	require.Error(t, err)
}

func TestCanonicalizeRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "").Canonicalize(context.Background(), "  ", false, false)
	require.Error(t, err)
}
