// Package viewport maps between canonical document space, zoom/pan viewport
// space and on-screen display space.
//
// Canonical space is the document's fixed pixel grid (e.g. 4500x5000).
// Viewport space has the same extent; a canonical point c lands at
// zoom*c + pan. Display space is viewport space scaled uniformly so the
// canonical width fills the rendered element:
//
//	display = base * (zoom*c + pan),  base = displayWidth / canvasWidth
package viewport

import (
	"mockup-studio/internal/errs"
	"mockup-studio/pkg/geometry"

	"go.uber.org/zap"
)

const (
	defaultZoomMin  = 0.05
	defaultZoomMax  = 3.0
	defaultZoomStep = 1.2
)

// Viewport holds zoom/pan state for one document.
type Viewport struct {
	canvasW, canvasH float64
	displayW         float64

	zoom float64
	pan  geometry.Point2D

	zoomMin, zoomMax, zoomStep float64

	logger *zap.Logger
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithZoomRange sets the zoom clamp range and the step used by ZoomIn/ZoomOut.
func WithZoomRange(lo, hi, step float64) Option {
	return func(v *Viewport) {
		v.zoomMin, v.zoomMax, v.zoomStep = lo, hi, step
	}
}

// WithDisplayWidth sets the rendered element width in display pixels.
func WithDisplayWidth(w float64) Option {
	return func(v *Viewport) { v.displayW = w }
}

// WithLogger sets the logger used to report clamped values.
func WithLogger(l *zap.Logger) Option {
	return func(v *Viewport) { v.logger = l }
}

// New creates a viewport for a canvasW x canvasH document at zoom 1, no pan.
// Without WithDisplayWidth the display is the canonical size.
func New(canvasW, canvasH int, opts ...Option) *Viewport {
	v := &Viewport{
		canvasW:  float64(canvasW),
		canvasH:  float64(canvasH),
		displayW: float64(canvasW),
		zoom:     1,
		zoomMin:  defaultZoomMin,
		zoomMax:  defaultZoomMax,
		zoomStep: defaultZoomStep,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.displayW <= 0 {
		v.displayW = v.canvasW
	}
	v.zoom = v.clampZoom(v.zoom)
	return v
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 { return v.zoom }

// Pan returns the pan offset in viewport units.
func (v *Viewport) Pan() geometry.Point2D { return v.pan }

// ZoomRange returns the configured clamp range.
func (v *Viewport) ZoomRange() (lo, hi float64) { return v.zoomMin, v.zoomMax }

// Base returns the canonical-to-display scale at zoom 1.
func (v *Viewport) Base() float64 { return v.displayW / v.canvasW }

// DisplaySize returns the rendered element size in display pixels.
func (v *Viewport) DisplaySize() (w, h float64) {
	return v.displayW, v.canvasH * v.Base()
}

// SetDisplayWidth updates the rendered element width. Canonical geometry is
// unaffected; the whole scene rescales.
func (v *Viewport) SetDisplayWidth(w float64) {
	if w <= 0 {
		return
	}
	v.displayW = w
}

// Center returns the visual centre of the viewport in viewport space.
func (v *Viewport) Center() geometry.Point2D {
	return geometry.Point2D{X: v.canvasW / 2, Y: v.canvasH / 2}
}

// ZoomPan returns the canonical-to-viewport transform: zoom*c + pan.
func (v *Viewport) ZoomPan() geometry.AffineTransform {
	return geometry.Translation(v.pan.X, v.pan.Y).Compose(geometry.Scale(v.zoom, v.zoom))
}

// Forward returns the canonical-to-display transform.
func (v *Viewport) Forward() geometry.AffineTransform {
	b := v.Base()
	return geometry.Scale(b, b).Compose(v.ZoomPan())
}

// Inverse returns the display-to-canonical transform.
func (v *Viewport) Inverse() geometry.AffineTransform {
	inv, _ := v.Forward().Inverse() // zoom and base are always > 0
	return inv
}

// ToDisplay maps a canonical point to display pixels.
func (v *Viewport) ToDisplay(p geometry.Point2D) geometry.Point2D {
	b := v.Base()
	return geometry.Point2D{
		X: b * (v.zoom*p.X + v.pan.X),
		Y: b * (v.zoom*p.Y + v.pan.Y),
	}
}

// ToCanonical maps a display point back to canonical space.
func (v *Viewport) ToCanonical(p geometry.Point2D) geometry.Point2D {
	b := v.Base()
	return geometry.Point2D{
		X: (p.X/b - v.pan.X) / v.zoom,
		Y: (p.Y/b - v.pan.Y) / v.zoom,
	}
}

// ZoomCentered scales zoom by factor keeping the canonical point at the
// viewport centre fixed on screen. It returns the zoom actually applied.
func (v *Viewport) ZoomCentered(factor float64) float64 {
	return v.zoomAbout(factor, v.Center())
}

// ZoomAt scales zoom by factor keeping the point under the display position
// fixed, e.g. the cursor during wheel zoom.
func (v *Viewport) ZoomAt(factor float64, display geometry.Point2D) float64 {
	return v.zoomAbout(factor, display.Scale(1/v.Base()))
}

// SetZoomCentered sets an absolute zoom about the viewport centre.
func (v *Viewport) SetZoomCentered(zoom float64) float64 {
	return v.ZoomCentered(zoom / v.zoom)
}

// ZoomIn zooms in by one step about the centre.
func (v *Viewport) ZoomIn() float64 { return v.ZoomCentered(v.zoomStep) }

// ZoomOut zooms out by one step about the centre.
func (v *Viewport) ZoomOut() float64 { return v.ZoomCentered(1 / v.zoomStep) }

// zoomAbout applies pan' = anchor*(1-f) + pan*f where f is the effective
// ratio after clamping, so the anchor (viewport space) stays put.
func (v *Viewport) zoomAbout(factor float64, anchor geometry.Point2D) float64 {
	if factor <= 0 {
		v.logger.Debug("Ignoring non-positive zoom factor", zap.Float64("factor", factor))
		return v.zoom
	}
	target := v.clampZoom(v.zoom * factor)
	f := target / v.zoom
	v.pan = anchor.Scale(1 - f).Add(v.pan.Scale(f))
	v.zoom = target
	return v.zoom
}

// PanBy shifts the view by a display-space delta.
func (v *Viewport) PanBy(dx, dy float64) {
	b := v.Base()
	v.pan = v.pan.Add(geometry.Point2D{X: dx / b, Y: dy / b})
}

// Reset returns to zoom 1 with no pan, which shows the whole canvas.
func (v *Viewport) Reset() {
	v.zoom = v.clampZoom(1)
	v.pan = geometry.Point2D{}
}

// FitWidth sets the display width so the canvas fits a w x h area and resets
// zoom/pan. The canvas aspect ratio is kept.
func (v *Viewport) FitWidth(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	scale := w / v.canvasW
	if hs := h / v.canvasH; hs < scale {
		scale = hs
	}
	v.displayW = v.canvasW * scale
	v.Reset()
}

// State is a copy of the zoom/pan state.
type State struct {
	Zoom float64
	Pan  geometry.Point2D
}

// State returns the current zoom/pan.
func (v *Viewport) State() State { return State{Zoom: v.zoom, Pan: v.pan} }

// Restore sets zoom/pan from a saved State, clamping zoom.
func (v *Viewport) Restore(s State) {
	v.zoom = v.clampZoom(s.Zoom)
	v.pan = s.Pan
}

func (v *Viewport) clampZoom(z float64) float64 {
	c := geometry.Clamp(z, v.zoomMin, v.zoomMax)
	if c != z {
		v.logger.Debug("Zoom clamped",
			zap.Error(errs.Bounds("zoom", z, v.zoomMin, v.zoomMax)),
			zap.Float64("applied", c),
		)
	}
	return c
}
