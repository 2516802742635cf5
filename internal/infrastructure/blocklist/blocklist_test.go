package blocklist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfilter/track-the-news/internal/domain"
)

var candidate = domain.Candidate{
	Outlet:    "Example",
	Title:     "Match report",
	URL:       "http://ex.com/sports",
	Plaintext: "The police band played at half time.",
}

func TestNoneNeverBlocks(t *testing.T) {
	blocked, err := None{}.Blocked(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestClientBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		blocked := strings.Contains(payload["url"], "sports")
		_ = json.NewEncoder(w).Encode(map[string]bool{"blocked": blocked})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")

	blocked, err := c.Blocked(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, blocked)

	other := candidate
	other.URL = "http://ex.com/news"
	blocked, err = c.Blocked(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "").Blocked(context.Background(), candidate)
	require.Error(t, err)
}

func TestChatGPTClassifierVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		if !assert.Len(t, req.Messages, 2) {
			return
		}
		assert.Equal(t, defaultPrompt, req.Messages[0]["content"])
		assert.LessOrEqual(t, len(req.Messages[1]["content"]), 200)

		answer := " no"
		if strings.Contains(req.Messages[1]["content"], "Title: Match report") {
			answer = "YES."
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": answer}}},
		})
	}))
	defer server.Close()

	c := NewChatGPTClassifier(ChatGPTConfig{Endpoint: server.URL, Model: "gpt-test", APIKey: "k", MaxChars: 50})

	long := candidate
	long.Plaintext = strings.Repeat("x", 500)
	blocked, err := c.Blocked(context.Background(), long)
	require.NoError(t, err)
	assert.True(t, blocked)

	other := candidate
	other.Title = "Police report"
	blocked, err = c.Blocked(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestChatGPTClassifierMisconfigured(t *testing.T) {
	_, err := NewChatGPTClassifier(ChatGPTConfig{}).Blocked(context.Background(), candidate)
	require.Error(t, err)
}
