package image

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"mockup-studio/internal/document"
	"mockup-studio/internal/errs"
	"mockup-studio/pkg/geometry"

	"github.com/gogpu/gg"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	// DefaultMaxPixels bounds a single render target.
	DefaultMaxPixels = 200_000_000
	// DefaultTension is the stroke smoothing used when none is configured.
	DefaultTension = 0.5
	// strokePad leaves room for anti-aliasing around a stroke's buffer.
	strokePad = 2
)

// Target describes one render: the raster size and how canonical space maps
// onto it. Preview passes the viewport's forward map; export passes a
// uniform scale.
type Target struct {
	Width, Height int
	Transform     geometry.AffineTransform

	// Backdrop fills the target before anything is drawn. nil leaves it
	// transparent.
	Backdrop color.Color
	// Preview trades resampling quality for speed.
	Preview bool
}

// CanonicalTarget renders the whole document at pixelScale times its
// canonical resolution.
func CanonicalTarget(width, height int, pixelScale float64) Target {
	return Target{
		Width:     int(math.Round(float64(width) * pixelScale)),
		Height:    int(math.Round(float64(height) * pixelScale)),
		Transform: geometry.Scale(pixelScale, pixelScale),
	}
}

// Compositor draws document snapshots. Draw order is the background mockup
// stretched over the canvas, then every visible layer bottom to top.
type Compositor struct {
	tension   float64
	maxPixels int
	logger    *zap.Logger
}

// CompositorOption configures a Compositor.
type CompositorOption func(*Compositor)

// WithTension sets stroke smoothing: 0 draws straight segments, 0.5 a
// Catmull-Rom curve.
func WithTension(t float64) CompositorOption {
	return func(c *Compositor) { c.tension = geometry.Clamp(t, 0, 1) }
}

// WithMaxPixels bounds the target area.
func WithMaxPixels(n int) CompositorOption {
	return func(c *Compositor) { c.maxPixels = n }
}

// WithCompositorLogger sets the compositor logger.
func WithCompositorLogger(l *zap.Logger) CompositorOption {
	return func(c *Compositor) { c.logger = l }
}

// NewCompositor creates a compositor.
func NewCompositor(opts ...CompositorOption) *Compositor {
	c := &Compositor{
		tension:   DefaultTension,
		maxPixels: DefaultMaxPixels,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Render draws snap into a new raster. ctx is checked between layers.
func (c *Compositor) Render(ctx context.Context, snap document.Snapshot, t Target) (*image.RGBA, error) {
	if t.Width <= 0 || t.Height <= 0 {
		return nil, errs.RenderTarget("render", t.Width, t.Height, errors.New("non-positive size"))
	}
	if c.maxPixels > 0 && int64(t.Width)*int64(t.Height) > int64(c.maxPixels) {
		return nil, errs.RenderTarget("render", t.Width, t.Height,
			fmt.Errorf("exceeds %d pixels", c.maxPixels))
	}

	dst := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	if t.Backdrop != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(t.Backdrop), image.Point{}, draw.Src)
	}

	interp := draw.Interpolator(draw.BiLinear)
	if t.Preview {
		interp = draw.ApproxBiLinear
	}

	if snap.BackgroundEnabled && snap.Background != nil {
		bb := snap.Background.Bounds()
		m := t.Transform.
			Compose(geometry.Scale(float64(snap.Width)/float64(bb.Dx()), float64(snap.Height)/float64(bb.Dy()))).
			Compose(geometry.Translation(-float64(bb.Min.X), -float64(bb.Min.Y)))
		interp.Transform(dst, aff3(m), snap.Background, bb, draw.Over, nil)
	}

	for _, l := range snap.Layers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to render: %w", err)
		}
		p := l.Props()
		if !p.Visible || p.Opacity <= 0 {
			continue
		}
		switch v := l.(type) {
		case *document.ImageLayer:
			c.drawImage(dst, interp, v, t.Transform)
		case *document.StrokeLayer:
			if err := c.drawStroke(dst, v, t.Transform); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

func (c *Compositor) drawImage(dst *image.RGBA, interp draw.Interpolator, l *document.ImageLayer, t geometry.AffineTransform) {
	src := l.Bitmap()
	if src == nil {
		return
	}
	var opts *draw.Options
	if o := l.Props().Opacity; o < 1 {
		opts = &draw.Options{SrcMask: opacityMask(o)}
	}
	m := t.Compose(l.BitmapToCanonical())
	interp.Transform(dst, aff3(m), src, src.Bounds(), draw.Over, opts)
}

// drawStroke rasterises the stroke into a buffer covering just its bounds,
// then composites that buffer with the layer opacity.
func (c *Compositor) drawStroke(dst *image.RGBA, l *document.StrokeLayer, t geometry.AffineTransform) error {
	if l.Len() == 0 {
		return nil
	}
	pts := geometry.TransformPoints(t, l.Points())
	style := l.Style()
	width := math.Max(style.Width*t.ScaleFactor(), 0.5)

	box := geometry.BoundingBox(pts).Inset(width/2 + strokePad)
	r := image.Rect(
		int(math.Floor(box.X)), int(math.Floor(box.Y)),
		int(math.Ceil(box.X+box.Width)), int(math.Ceil(box.Y+box.Height)),
	).Intersect(dst.Bounds())
	if r.Empty() {
		return nil
	}

	dc := gg.NewContext(r.Dx(), r.Dy())
	defer dc.Close()
	dc.SetColor(style.Color)

	off := geometry.Point2D{X: float64(r.Min.X), Y: float64(r.Min.Y)}
	for i := range pts {
		pts[i] = pts[i].Sub(off)
	}

	if len(pts) == 1 {
		dc.DrawCircle(pts[0].X, pts[0].Y, width/2)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("failed to draw stroke dot: %w", err)
		}
	} else {
		dc.SetLineWidth(width)
		dc.SetLineCap(gg.LineCapRound)
		dc.SetLineJoin(gg.LineJoinRound)
		tracePath(dc, pts, c.tension)
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("failed to draw stroke: %w", err)
		}
	}

	var mask image.Image
	if o := l.Props().Opacity; o < 1 {
		mask = opacityMask(o)
	}
	draw.DrawMask(dst, r, dc.Image(), image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

// pathBuilder is the part of gg.Context tracePath needs.
type pathBuilder interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
}

// tracePath emits pts as one connected path. With tension > 0 each segment
// is a cardinal-spline cubic through the neighbouring points; endpoints are
// repeated so the curve starts and ends on the first and last samples.
func tracePath(pb pathBuilder, pts []geometry.Point2D, tension float64) {
	pb.MoveTo(pts[0].X, pts[0].Y)
	if tension <= 0 || len(pts) < 3 {
		for _, p := range pts[1:] {
			pb.LineTo(p.X, p.Y)
		}
		return
	}
	k := tension / 3
	for i := 0; i < len(pts)-1; i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, len(pts)-1)]
		c1 := p1.Add(p2.Sub(p0).Scale(k))
		c2 := p2.Sub(p3.Sub(p1).Scale(k))
		pb.CubicTo(c1.X, c1.Y, c2.X, c2.Y, p2.X, p2.Y)
	}
}

func opacityMask(o float64) image.Image {
	return image.NewUniform(color.Alpha{A: uint8(math.Round(geometry.Clamp(o, 0, 1) * 255))})
}

func aff3(m geometry.AffineTransform) f64.Aff3 {
	return f64.Aff3{m.A, m.B, m.TX, m.C, m.D, m.TY}
}
