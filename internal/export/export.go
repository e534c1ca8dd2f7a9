// Package export renders a document snapshot at canonical resolution and
// serialises it as PNG, JPEG or a single-page PDF.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mockup-studio/internal/document"
	mimage "mockup-studio/internal/image"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts png, jpeg/jpg and pdf, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// opaque formats cannot carry alpha and are flattened onto white.
func (f Format) opaque() bool { return f != FormatPNG }

// Variant selects whether the mockup is drawn.
type Variant string

const (
	VariantMockup Variant = "mockup"
	VariantClean  Variant = "clean"
)

// FileName returns composition_<variant>.<ext>.
func FileName(v Variant, f Format) string {
	return "composition_" + string(v) + "." + f.Ext()
}

const (
	defaultJPEGQuality = 100
	// pdfDPI maps raster pixels to page inches.
	pdfDPI = 300.0
)

// Exporter renders and encodes snapshots. It holds no document state and is
// safe for concurrent use.
type Exporter struct {
	compositor  *mimage.Compositor
	format      Format
	pixelScale  float64
	jpegQuality int
	logger      *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFormat sets the output format.
func WithFormat(f Format) Option {
	return func(e *Exporter) { e.format = f }
}

// WithPixelScale sets the default pixel scale.
func WithPixelScale(s float64) Option {
	return func(e *Exporter) { e.pixelScale = s }
}

// WithJPEGQuality sets JPEG quality, 1-100.
func WithJPEGQuality(q int) Option {
	return func(e *Exporter) { e.jpegQuality = q }
}

// WithCompositor replaces the default compositor.
func WithCompositor(c *mimage.Compositor) Option {
	return func(e *Exporter) { e.compositor = c }
}

// WithLogger sets the exporter logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// New creates a PNG exporter at scale 1.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		format:      FormatPNG,
		pixelScale:  1,
		jpegQuality: defaultJPEGQuality,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.compositor == nil {
		e.compositor = mimage.NewCompositor(mimage.WithCompositorLogger(e.logger))
	}
	return e
}

// Format returns the configured output format.
func (e *Exporter) Format() Format { return e.format }

// Render draws snap at (W, H) * pixelScale. The viewport plays no part.
// A non-positive pixelScale uses the configured default.
func (e *Exporter) Render(ctx context.Context, snap document.Snapshot, includeBackground bool, pixelScale float64) (*image.RGBA, error) {
	if pixelScale <= 0 {
		pixelScale = e.pixelScale
	}
	if !includeBackground {
		snap = snap.WithoutBackground()
	}
	t := mimage.CanonicalTarget(snap.Width, snap.Height, pixelScale)
	if e.format.opaque() {
		t.Backdrop = color.White
	}
	return e.compositor.Render(ctx, snap, t)
}

// Export renders and encodes one variant.
func (e *Exporter) Export(ctx context.Context, snap document.Snapshot, includeBackground bool, pixelScale float64) ([]byte, error) {
	img, err := e.Render(ctx, snap, includeBackground, pixelScale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := e.Encode(&buf, img); err != nil {
		return nil, err
	}
	e.logger.Info("Composite exported",
		zap.String("format", string(e.format)),
		zap.Bool("background", includeBackground),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// Encode writes img in the configured format.
func (e *Exporter) Encode(w io.Writer, img *image.RGBA) error {
	var err error
	switch e.format {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: e.jpegQuality})
	case FormatPDF:
		err = e.encodePDF(w, img)
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", e.format, err)
	}
	return nil
}

// encodePDF places the flattened raster on a page sized to it at pdfDPI.
func (e *Exporter) encodePDF(w io.Writer, img *image.RGBA) error {
	var raster bytes.Buffer
	if err := jpeg.Encode(&raster, img, &jpeg.Options{Quality: e.jpegQuality}); err != nil {
		return err
	}

	b := img.Bounds()
	pw, ph := float64(b.Dx())/pdfDPI, float64(b.Dy())/pdfDPI
	// Landscape would swap the custom size, so the page is always portrait.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "in",
		Size:           gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("mockup-studio", false)
	pdf.SetTitle("composition", false)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("composite", opts, &raster)
	pdf.ImageOptions("composite", 0, 0, pw, ph, false, opts, 0, "")
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// Result is one encoded variant.
type Result struct {
	Variant  Variant
	FileName string
	Data     []byte
}

// ExportBoth renders the mockup and clean variants concurrently from the same
// snapshot. Results are ordered mockup, clean.
func (e *Exporter) ExportBoth(ctx context.Context, snap document.Snapshot, pixelScale float64) ([]Result, error) {
	results := []Result{
		{Variant: VariantMockup, FileName: FileName(VariantMockup, e.format)},
		{Variant: VariantClean, FileName: FileName(VariantClean, e.format)},
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := range results {
		r := &results[i]
		g.Go(func() error {
			data, err := e.Export(ctx, snap, r.Variant == VariantMockup, pixelScale)
			if err != nil {
				return fmt.Errorf("failed to export %s: %w", r.Variant, err)
			}
			r.Data = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("Export failed", zap.Error(err))
		return nil, err
	}
	return results, nil
}

// WriteFiles exports both variants into dir and returns the written paths.
func (e *Exporter) WriteFiles(ctx context.Context, snap document.Snapshot, dir string, pixelScale float64) ([]string, error) {
	results, err := e.ExportBoth(ctx, snap, pixelScale)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	paths := make([]string, 0, len(results))
	for _, r := range results {
		p := filepath.Join(dir, r.FileName)
		if err := os.WriteFile(p, r.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
