package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/infrastructure/notify"
	"github.com/jfilter/track-the-news/internal/ports"
)

// Config locates the account the bot posts as.
type Config struct {
	BaseURL     string
	AccessToken string
	Visibility  string
}

// Notifier posts statuses with rendered paragraphs attached.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the instance URL and access token.
func NewNotifier(cfg Config, client *http.Client, logger zerolog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Notifier{cfg: cfg, client: client, logger: logger}
}

type idResponse struct {
	ID string `json:"id"`
}

// Notify uploads every image it can and posts the status. A failed upload
// only drops that image; a failed status post fails the notification.
func (n *Notifier) Notify(ctx context.Context, msg domain.Notification) (string, error) {
	if n.cfg.BaseURL == "" || n.cfg.AccessToken == "" {
		return "", fmt.Errorf("mastodon notifier misconfigured")
	}

	mediaIDs := make([]string, 0, len(msg.Images))
	for i, img := range msg.Images {
		data, err := notify.EncodeJPEG(img)
		if err != nil {
			n.logger.Warn().Err(err).Int("image", i).Msg("skipping image")
			continue
		}
		id, err := n.uploadMedia(ctx, i, data)
		if err != nil {
			n.logger.Warn().Err(err).Int("image", i).Msg("media upload failed")
			continue
		}
		mediaIDs = append(mediaIDs, id)
	}

	form := url.Values{}
	form.Set("status", msg.Text)
	for _, id := range mediaIDs {
		form.Add("media_ids[]", id)
	}
	if msg.ReplyTo != "" {
		form.Set("in_reply_to_id", msg.ReplyTo)
	}
	if n.cfg.Visibility != "" {
		form.Set("visibility", n.cfg.Visibility)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+"/api/v1/statuses", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	var status idResponse
	if err := n.do(req, &status); err != nil {
		return "", fmt.Errorf("post status: %w", err)
	}
	if status.ID == "" {
		return "", fmt.Errorf("post status: response without id")
	}
	return status.ID, nil
}

func (n *Notifier) uploadMedia(ctx context.Context, index int, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fmt.Sprintf("paragraph-%d.jpg", index+1))
	if err != nil {
		return "", fmt.Errorf("multipart file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("multipart write: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+"/api/v2/media", &body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var media idResponse
	if err := n.do(req, &media); err != nil {
		return "", err
	}
	if media.ID == "" {
		return "", fmt.Errorf("media response without id")
	}
	return media.ID, nil
}

func (n *Notifier) do(req *http.Request, v any) error {
	req.Header.Set("Authorization", "Bearer "+n.cfg.AccessToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	// media uploads answer 202 while processing
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mastodon error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
