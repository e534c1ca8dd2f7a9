package canvas

import (
	"context"
	"image"
	"image/color"

	"go.uber.org/zap"
)

// emptyFrame is returned while the widget has no area to draw into.
var emptyFrame = image.NewUniform(color.Transparent)

// draw is the raster generator. w and h are device pixels, so the preview
// is rendered at the screen's native density and the overlay on top of it.
func (ec *EditorCanvas) draw(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return emptyFrame
	}

	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.frame != nil && !ec.dirty && ec.frame.Bounds().Dx() == w && ec.frame.Bounds().Dy() == h {
		return ec.frame
	}

	frame, err := ec.state.RenderPreviewSize(context.Background(), w, h)
	if err != nil {
		ec.logger.Error("Preview render failed", zap.Int("width", w), zap.Int("height", h), zap.Error(err))
		if ec.frame != nil {
			return ec.frame
		}
		return emptyFrame
	}

	if o, ok := ec.state.Input().Overlay(); ok {
		dw, _ := ec.state.Viewport().DisplaySize()
		if err := drawOverlay(frame, o, ec.style, float64(w)/dw); err != nil {
			ec.logger.Warn("Overlay draw failed", zap.Error(err))
		}
	}

	ec.frame = frame
	ec.dirty = false
	return frame
}

// invalidate marks the cached frame stale; the next raster pass re-renders.
func (ec *EditorCanvas) invalidate() {
	ec.mu.Lock()
	ec.dirty = true
	ec.mu.Unlock()
}

