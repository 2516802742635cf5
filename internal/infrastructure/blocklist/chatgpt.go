package blocklist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

const (
	defaultPrompt = "You screen news articles for a keyword alert bot. " +
		"Answer YES if the article should be suppressed (opinion piece, sports, obituary, " +
		"advertisement or otherwise off-topic), otherwise answer NO. Reply with one word."
	defaultMaxChars = 6000
)

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
	MaxChars     int
}

// ChatGPTClassifier lets a chat model veto articles.
type ChatGPTClassifier struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	maxChars     int
	httpClient   *http.Client
}

var _ ports.Blocklist = (*ChatGPTClassifier)(nil)

// NewChatGPTClassifier builds a classifier from configuration.
func NewChatGPTClassifier(cfg ChatGPTConfig) *ChatGPTClassifier {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &ChatGPTClassifier{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		maxChars:     maxChars,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Blocked posts the article as a user message and reads a YES/NO verdict.
func (c *ChatGPTClassifier) Blocked(ctx context.Context, candidate domain.Candidate) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("chatgpt classifier is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return false, fmt.Errorf("chatgpt classifier misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": c.userMessage(candidate)},
		},
		"temperature": 0,
	})
	if err != nil {
		return false, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return false, fmt.Errorf("chatgpt returned no choices")
	}
	return verdict(decoded.Choices[0].Message.Content), nil
}

func (c *ChatGPTClassifier) userMessage(candidate domain.Candidate) string {
	text := candidate.Plaintext
	if runes := []rune(text); len(runes) > c.maxChars {
		text = string(runes[:c.maxChars])
	}
	return fmt.Sprintf("Outlet: %s\nTitle: %s\nURL: %s\n\n%s", candidate.Outlet, candidate.Title, candidate.URL, text)
}

func verdict(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return strings.HasPrefix(answer, "yes")
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultPrompt
	}
	return prompt
}
