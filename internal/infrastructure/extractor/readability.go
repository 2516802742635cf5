package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

const (
	// DefaultTimeout bounds a single article fetch.
	DefaultTimeout = 30 * time.Second
	bodyByteLimit  = 8 * 1024 * 1024
)

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Readability fetches articles and reduces them to paragraph plaintext.
type Readability struct {
	client    *http.Client
	userAgent string
}

var _ ports.Extractor = (*Readability)(nil)

// NewReadability wires an HTTP client; nil gets DefaultTimeout.
func NewReadability(client *http.Client, userAgent string) *Readability {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Readability{client: client, userAgent: userAgent}
}

// Extract downloads pageURL, keeps its readable part and flattens it to
// plaintext with one paragraph per line. Link text stays, images go.
func (r *Readability) Extract(ctx context.Context, pageURL string) (domain.Document, error) {
	body, err := r.fetch(ctx, pageURL)
	if err != nil {
		return domain.Document{}, err
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return domain.Document{}, fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return domain.Document{}, fmt.Errorf("readability parse: %w", err)
	}

	var readable bytes.Buffer
	if err := article.RenderHTML(&readable); err != nil {
		return domain.Document{}, fmt.Errorf("render readable html: %w", err)
	}

	text, err := Plaintext(&readable)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{Plaintext: text}, nil
}

func (r *Readability) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("article returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyByteLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Plaintext converts an HTML fragment into newline separated paragraphs.
func Plaintext(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	doc.Find("img, picture, figure > svg, svg, script, style, noscript, iframe, video, audio").Remove()

	w := &paragraphWriter{}
	walk(doc.Find("body").Contents(), w)
	w.flush()
	return strings.Join(w.paragraphs, "\n"), nil
}

func walk(sel *goquery.Selection, w *paragraphWriter) {
	sel.Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.Type {
		case html.TextNode:
			w.write(node.Data)
		case html.ElementNode:
			name := goquery.NodeName(s)
			if name == "br" {
				w.flush()
				return
			}
			block := blockElements[name]
			if block {
				w.flush()
			}
			walk(s.Contents(), w)
			if block {
				w.flush()
			}
		}
	})
}

type paragraphWriter struct {
	current    strings.Builder
	paragraphs []string
}

func (w *paragraphWriter) write(text string) {
	w.current.WriteString(text)
}

func (w *paragraphWriter) flush() {
	text := strings.Join(strings.Fields(w.current.String()), " ")
	w.current.Reset()
	if text != "" {
		w.paragraphs = append(w.paragraphs, text)
	}
}
