package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/infrastructure/notify"
	"github.com/jfilter/track-the-news/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends matched articles to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
	logger   zerolog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiBase
// means the public Bot API.
func NewNotifier(botToken, chatID, apiBase string, logger zerolog.Logger) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  strings.TrimRight(apiBase, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type message struct {
	MessageID int64 `json:"message_id"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Notify posts text alone, one photo, or an album with the text as caption.
// The returned id is the message a later notification can reply to.
func (n *Notifier) Notify(ctx context.Context, msg domain.Notification) (string, error) {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return "", fmt.Errorf("telegram notifier misconfigured")
	}

	photos := make([][]byte, 0, len(msg.Images))
	for i, img := range msg.Images {
		data, err := notify.EncodeJPEG(img)
		if err != nil {
			n.logger.Warn().Err(err).Int("image", i).Msg("skipping image")
			continue
		}
		photos = append(photos, data)
	}

	switch len(photos) {
	case 0:
		return n.sendMessage(ctx, msg)
	case 1:
		return n.sendPhoto(ctx, msg, photos[0])
	default:
		return n.sendMediaGroup(ctx, msg, photos)
	}
}

func (n *Notifier) sendMessage(ctx context.Context, msg domain.Notification) (string, error) {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", msg.Text)
	if msg.ReplyTo != "" {
		form.Set("reply_to_message_id", msg.ReplyTo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var sent message
	if err := n.do(req, &sent); err != nil {
		return "", err
	}
	return strconv.FormatInt(sent.MessageID, 10), nil
}

func (n *Notifier) sendPhoto(ctx context.Context, msg domain.Notification, photo []byte) (string, error) {
	fields := map[string]string{"chat_id": n.chatID, "caption": msg.Text}
	if msg.ReplyTo != "" {
		fields["reply_to_message_id"] = msg.ReplyTo
	}

	req, err := n.multipartRequest(ctx, "sendPhoto", fields, map[string][]byte{"photo": photo})
	if err != nil {
		return "", err
	}

	var sent message
	if err := n.do(req, &sent); err != nil {
		return "", err
	}
	return strconv.FormatInt(sent.MessageID, 10), nil
}

func (n *Notifier) sendMediaGroup(ctx context.Context, msg domain.Notification, photos [][]byte) (string, error) {
	type inputMedia struct {
		Type    string `json:"type"`
		Media   string `json:"media"`
		Caption string `json:"caption,omitempty"`
	}

	media := make([]inputMedia, len(photos))
	files := make(map[string][]byte, len(photos))
	for i, photo := range photos {
		name := fmt.Sprintf("photo%d", i)
		media[i] = inputMedia{Type: "photo", Media: "attach://" + name}
		files[name] = photo
	}
	media[0].Caption = msg.Text

	encoded, err := json.Marshal(media)
	if err != nil {
		return "", fmt.Errorf("marshal media: %w", err)
	}

	fields := map[string]string{"chat_id": n.chatID, "media": string(encoded)}
	if msg.ReplyTo != "" {
		fields["reply_to_message_id"] = msg.ReplyTo
	}

	req, err := n.multipartRequest(ctx, "sendMediaGroup", fields, files)
	if err != nil {
		return "", err
	}

	var sent []message
	if err := n.do(req, &sent); err != nil {
		return "", err
	}
	if len(sent) == 0 {
		return "", fmt.Errorf("telegram returned no messages")
	}
	return strconv.FormatInt(sent[0].MessageID, 10), nil
}

func (n *Notifier) multipartRequest(ctx context.Context, method string, fields map[string]string, files map[string][]byte) (*http.Request, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("multipart field %s: %w", k, err)
		}
	}
	for name, data := range files {
		part, err := mw.CreateFormFile(name, name+".jpg")
		if err != nil {
			return nil, fmt.Errorf("multipart file %s: %w", name, err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("multipart write %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint(method), &body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func (n *Notifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.botToken, method)
}

func (n *Notifier) do(req *http.Request, result any) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK || !decoded.OK {
		return fmt.Errorf("telegram error %s: %s", resp.Status, decoded.Description)
	}
	if err := json.Unmarshal(decoded.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
