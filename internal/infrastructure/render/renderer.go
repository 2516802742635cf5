package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/jfilter/track-the-news/internal/ports"
)

const (
	border    = 60
	fontSize  = 36
	spacing   = 12
	wideWidth = 60

	squareMinWidth = 20
	squareMaxWidth = 60 // exclusive

	// DefaultColor is the background used when none is configured.
	DefaultColor = "#F5F5F5"

	leadingJunk = "#>—-• "
)

// ErrEmptyParagraph is returned when nothing is left to draw.
var ErrEmptyParagraph = errors.New("render: empty paragraph")

// Renderer draws wrapped text onto a flat background.
type Renderer struct {
	mu         sync.Mutex
	face       font.Face
	background color.Color
	foreground color.Color
}

var _ ports.Renderer = (*Renderer)(nil)

// New loads the TrueType font at fontPath, falling back to Go Regular when
// the file does not exist, and parses hexColor as the background.
func New(fontPath, hexColor string) (*Renderer, error) {
	if hexColor == "" {
		hexColor = DefaultColor
	}
	bg, err := colorful.Hex(hexColor)
	if err != nil {
		return nil, fmt.Errorf("parse color %q: %w", hexColor, err)
	}

	data, err := loadFont(fontPath)
	if err != nil {
		return nil, err
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}

	return &Renderer{face: face, background: bg, foreground: color.Black}, nil
}

func loadFont(path string) ([]byte, error) {
	if path == "" {
		return goregular.TTF, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return goregular.TTF, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return data, nil
}

// Render draws paragraph. Square output picks the wrap width whose image is
// closest to square; otherwise lines wrap at a fixed wide width.
func (r *Renderer) Render(paragraph string, square bool) (image.Image, error) {
	text := strings.TrimSpace(strings.TrimLeft(paragraph, leadingJunk))
	if text == "" {
		return nil, ErrEmptyParagraph
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lines := Wrap(text, wideWidth)
	if square {
		lines = r.squarest(text)
	}
	return r.draw(lines), nil
}

func (r *Renderer) squarest(text string) []string {
	var (
		best     []string
		bestDiff = -1
	)
	for width := squareMinWidth; width < squareMaxWidth; width++ {
		lines := Wrap(text, width)
		w, h := r.measure(lines)
		diff := w - h
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = lines, diff
		}
	}
	return best
}

func (r *Renderer) measure(lines []string) (int, int) {
	width := 0
	for _, line := range lines {
		if w := font.MeasureString(r.face, line).Ceil(); w > width {
			width = w
		}
	}
	lineHeight := r.face.Metrics().Height.Ceil()
	height := len(lines)*lineHeight + (len(lines)-1)*spacing
	return width, height
}

func (r *Renderer) draw(lines []string) image.Image {
	textW, textH := r.measure(lines)
	img := image.NewRGBA(image.Rect(0, 0, textW+2*border, textH+2*border))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	metrics := r.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	step := metrics.Height.Ceil() + spacing

	drawer := font.Drawer{Dst: img, Src: image.NewUniform(r.foreground), Face: r.face}
	for i, line := range lines {
		drawer.Dot = fixed.P(border, border+ascent+i*step)
		drawer.DrawString(line)
	}
	return img
}

// Wrap greedily breaks text into lines of at most width runes. Words longer
// than width are split.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var (
		lines   []string
		current []rune
	)
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > 0 {
			switch {
			case len(current) == 0 && len(runes) <= width:
				current, runes = runes, nil
			case len(current) == 0:
				lines = append(lines, string(runes[:width]))
				runes = runes[width:]
			case len(current)+1+len(runes) <= width:
				current = append(append(current, ' '), runes...)
				runes = nil
			default:
				lines = append(lines, string(current))
				current = nil
			}
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}
