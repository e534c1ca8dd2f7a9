package document

import (
	"fmt"
	"image/color"
	"strings"

	"mockup-studio/internal/errs"
	"mockup-studio/pkg/geometry"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
)

// ParseColor parses a "#rgb" or "#rrggbb" string from a colour picker.
// A missing leading '#' is tolerated.
func ParseColor(s string) (color.NRGBA, string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s != "" && !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, "", fmt.Errorf("invalid colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, c.Hex(), nil
}

// Brush holds the current stroke colour and width. Changes apply to the next
// stroke only.
type Brush struct {
	style    StrokeStyle
	maxWidth float64
	logger   *zap.Logger
}

// NewBrush creates a brush. An invalid hex falls back to black.
func NewBrush(hex string, width, maxWidth float64, logger *zap.Logger) *Brush {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWidth < 1 {
		maxWidth = 1
	}
	b := &Brush{maxWidth: maxWidth, logger: logger}
	if err := b.SetColor(hex); err != nil {
		logger.Warn("Invalid brush colour, using black", zap.String("color", hex), zap.Error(err))
		b.style.Color = color.NRGBA{A: 0xff}
		b.style.Hex = "#000000"
	}
	b.SetWidth(width)
	return b
}

// Style returns the style the next stroke will use.
func (b *Brush) Style() StrokeStyle { return b.style }

// MaxWidth returns the largest width SetWidth accepts.
func (b *Brush) MaxWidth() float64 { return b.maxWidth }

// SetColor updates the colour. The brush is unchanged on error.
func (b *Brush) SetColor(hex string) error {
	c, norm, err := ParseColor(hex)
	if err != nil {
		return err
	}
	b.style.Color = c
	b.style.Hex = norm
	return nil
}

// SetWidth clamps w to [1, maxWidth] and returns the applied width.
func (b *Brush) SetWidth(w float64) float64 {
	clamped := geometry.Clamp(w, 1, b.maxWidth)
	if clamped != w {
		b.logger.Debug("Brush width clamped",
			zap.Error(errs.Bounds("brush width", w, 1, b.maxWidth)),
			zap.Float64("applied", clamped),
		)
	}
	b.style.Width = clamped
	return clamped
}
