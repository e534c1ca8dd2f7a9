package canvas

import (
	"image"

	"mockup-studio/internal/input"
	"mockup-studio/pkg/geometry"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
)

// OverlayStyle controls how the selection overlay is drawn. Sizes are in
// display units and scale with the device pixel ratio.
type OverlayStyle struct {
	Outline     string
	HandleFill  string
	HandleLine  string
	LineWidth   float64
	Dash        []float64
	HandleScale float64 // drawn radius as a fraction of the hit radius
}

// DefaultOverlayStyle is a dashed blue outline with white handles.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		Outline:     "#0d6efd",
		HandleFill:  "#ffffff",
		HandleLine:  "#0d6efd",
		LineWidth:   1.5,
		Dash:        []float64{6, 4},
		HandleScale: 0.6,
	}
}

// drawOverlay paints o onto dst. Overlay coordinates are multiplied by
// scale to reach dst pixels.
func drawOverlay(dst *image.RGBA, o input.Overlay, st OverlayStyle, scale float64) error {
	b := dst.Bounds()
	if b.Empty() || len(o.Outline) < 4 {
		return nil
	}
	dc := gg.NewContext(b.Dx(), b.Dy())
	defer dc.Close()

	pt := func(p geometry.Point2D) (float64, float64) { return p.X * scale, p.Y * scale }

	dc.SetHexColor(st.Outline)
	dc.SetLineWidth(st.LineWidth * scale)
	dc.SetDash(scaled(st.Dash, scale)...)
	dc.MoveTo(pt(o.Outline[0]))
	for _, p := range o.Outline[1:] {
		dc.LineTo(pt(p))
	}
	dc.ClosePath()
	if err := dc.Stroke(); err != nil {
		return err
	}

	// Stem from the top edge to the rotate handle.
	dc.SetDash()
	dc.MoveTo(pt(o.TopCenter))
	dc.LineTo(pt(o.Rotate))
	if err := dc.Stroke(); err != nil {
		return err
	}

	r := o.Radius * st.HandleScale * scale
	for _, h := range []geometry.Point2D{o.Scale, o.Rotate} {
		x, y := pt(h)
		dc.DrawCircle(x, y, r)
		dc.SetHexColor(st.HandleFill)
		if err := dc.FillPreserve(); err != nil {
			return err
		}
		dc.SetHexColor(st.HandleLine)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}

	draw.Draw(dst, b, dc.Image(), image.Point{}, draw.Over)
	return nil
}

func scaled(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * k
	}
	return out
}
