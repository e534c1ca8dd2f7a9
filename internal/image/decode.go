// Package image decodes imported artwork and composites a document snapshot
// into a raster.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"mockup-studio/internal/errs"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoded is an imported bitmap normalised to RGBA.
type Decoded struct {
	Image  *image.RGBA
	Format string
	MIME   string

	// NativeWidth/NativeHeight are the dimensions before any downscale.
	NativeWidth  int
	NativeHeight int
}

// Width returns the decoded width in pixels.
func (d *Decoded) Width() int { return d.Image.Bounds().Dx() }

// Height returns the decoded height in pixels.
func (d *Decoded) Height() int { return d.Image.Bounds().Dy() }

// Decoder turns raw bytes into bitmaps.
type Decoder struct {
	maxBytes int64
	maxSide  int
	logger   *zap.Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxBytes rejects inputs larger than n bytes. Zero disables the check.
func WithMaxBytes(n int64) DecoderOption {
	return func(d *Decoder) { d.maxBytes = n }
}

// WithMaxSide downscales bitmaps whose longer side exceeds n pixels.
func WithMaxSide(n int) DecoderOption {
	return func(d *Decoder) { d.maxSide = n }
}

// WithDecoderLogger sets the decoder logger.
func WithDecoderLogger(l *zap.Logger) DecoderOption {
	return func(d *Decoder) { d.logger = l }
}

// NewDecoder creates a decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode sniffs, decodes and normalises data. Every failure is an import
// error and leaves nothing behind.
func (d *Decoder) Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, errs.Import("decode", errors.New("empty input"))
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, errs.Import("decode", fmt.Errorf("input is %d bytes, limit %d", len(data), d.maxBytes))
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
		return nil, errs.Import("decode", errors.New("content is not a recognised image"))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.logger.Debug("Decode failed", zap.String("mime", kind.MIME.Value), zap.Error(err))
		return nil, errs.Import("decode", fmt.Errorf("failed to decode %s: %w", kind.MIME.Value, err))
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errs.Import("decode", errors.New("image has no pixels"))
	}

	out := &Decoded{
		Image:        clone.AsRGBA(img),
		Format:       format,
		MIME:         kind.MIME.Value,
		NativeWidth:  b.Dx(),
		NativeHeight: b.Dy(),
	}
	if w, h, ok := fitSide(b.Dx(), b.Dy(), d.maxSide); ok {
		out.Image = transform.Resize(out.Image, w, h, transform.Linear)
		d.logger.Debug("Import downscaled",
			zap.Int("from_width", b.Dx()), zap.Int("from_height", b.Dy()),
			zap.Int("to_width", w), zap.Int("to_height", h))
	}

	d.logger.Info("Image decoded",
		zap.String("format", format),
		zap.Int("width", out.Width()),
		zap.Int("height", out.Height()),
		zap.Int("bytes", len(data)),
	)
	return out, nil
}

// DecodeFile reads and decodes the file at path.
func (d *Decoder) DecodeFile(path string) (*Decoded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Import("read "+filepath.Base(path), err)
	}
	return d.Decode(data)
}

// fitSide returns the size that brings the longer side down to limit, keeping
// the aspect ratio. ok is false when no resize is needed.
func fitSide(w, h, limit int) (int, int, bool) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h, false
	}
	if w >= h {
		return limit, max(1, h*limit/w), true
	}
	return max(1, w*limit/h), limit, true
}

// SupportedFormats returns the file extensions import accepts.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

