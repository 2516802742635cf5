package blocklist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

// None never blocks anything.
type None struct{}

var _ ports.Blocklist = None{}

func (None) Blocked(context.Context, domain.Candidate) (bool, error) {
	return false, nil
}

// Client asks an external classification service whether to suppress an article.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Blocklist = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Blocked sends the candidate to <endpoint>/classify.
func (c *Client) Blocked(ctx context.Context, candidate domain.Candidate) (bool, error) {
	payload := map[string]any{
		"outlet": candidate.Outlet,
		"title":  candidate.Title,
		"url":    candidate.URL,
		"text":   candidate.Plaintext,
	}

	var resp struct {
		Blocked bool `json:"blocked"`
	}
	if err := c.post(ctx, "/classify", payload, &resp); err != nil {
		return false, err
	}
	return resp.Blocked, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
