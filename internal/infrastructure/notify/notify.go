package notify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/rs/zerolog"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

// DryRunID is what DryRun hands back instead of a real status id.
const DryRunID = "1337"

const jpegQuality = 95

// EncodeJPEG serializes a rendered paragraph for upload.
func EncodeJPEG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode jpeg: nil image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DryRun logs notifications instead of sending them.
type DryRun struct {
	logger zerolog.Logger
}

var _ ports.Notifier = (*DryRun)(nil)

func NewDryRun(logger zerolog.Logger) *DryRun {
	return &DryRun{logger: logger}
}

// Notify never touches the network.
func (d *DryRun) Notify(_ context.Context, n domain.Notification) (string, error) {
	d.logger.Info().
		Str("text", n.Text).
		Int("images", len(n.Images)).
		Str("reply_to", n.ReplyTo).
		Msg("would notify")
	return DryRunID, nil
}
