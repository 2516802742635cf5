package canonical

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jfilter/track-the-news/internal/ports"
)

// DefaultTimeout bounds redirect resolution.
const DefaultTimeout = 30 * time.Second

// Canonicalizer normalizes article links into dedup keys.
type Canonicalizer struct {
	client    *http.Client
	userAgent string
}

var _ ports.Canonicalizer = (*Canonicalizer)(nil)

// New builds a canonicalizer; a nil client gets DefaultTimeout.
func New(client *http.Client, userAgent string) *Canonicalizer {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Canonicalizer{client: client, userAgent: userAgent}
}

// Canonicalize resolves redirects when asked to, then strips query and
// fragment unless the outlet's links are delicate.
func (c *Canonicalizer) Canonicalize(ctx context.Context, rawURL string, redirects, delicate bool) (string, error) {
	working := strings.TrimSpace(rawURL)
	if working == "" {
		return "", fmt.Errorf("empty url")
	}

	if redirects {
		resolved, err := c.resolve(ctx, working)
		if err != nil {
			return "", fmt.Errorf("resolve redirects for %s: %w", working, err)
		}
		working = resolved
	}

	if delicate {
		return working, nil
	}
	return Decruft(working), nil
}

// Decruft drops everything from the first '?' and then from the first '#'.
func Decruft(u string) string {
	u, _, _ = strings.Cut(u, "?")
	u, _, _ = strings.Cut(u, "#")
	return u
}

func (c *Canonicalizer) resolve(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("head request: %w", err)
	}
	defer resp.Body.Close()

	final := resp.Request.URL
	if location := strings.TrimSpace(resp.Header.Get("Location")); location != "" {
		target, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("parse location header: %w", err)
		}
		return final.ResolveReference(target).String(), nil
	}
	return final.String(), nil
}
