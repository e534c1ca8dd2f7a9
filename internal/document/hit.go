package document

import (
	"mockup-studio/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

// HitTest returns the topmost visible image layer whose rotated box contains
// canonical point p. Strokes are never hit.
func (d *Document) HitTest(p geometry.Point2D) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hitTestLocked(p)
}

func (d *Document) hitTestLocked(p geometry.Point2D) (string, bool) {
	for i := len(d.layers) - 1; i >= 0; i-- {
		img, ok := d.layers[i].(*ImageLayer)
		if !ok || !img.props.Visible {
			continue
		}
		if img.Contains(p) {
			return img.id, true
		}
	}
	return "", false
}

// Contains reports whether canonical point p lies inside the layer's
// rotated box. The point is rotated back into the box's frame and tested
// against the axis-aligned box.
func (l *ImageLayer) Contains(p geometry.Point2D) bool {
	box := r2.Box{
		Min: r2.Vec{X: l.props.X, Y: l.props.Y},
		Max: r2.Vec{X: l.props.X + l.width, Y: l.props.Y + l.height},
	}
	c := l.Center()
	unrotate := r2.NewRotation(-geometry.DegToRad(l.props.Rotation), r2.Vec{X: c.X, Y: c.Y})
	return box.Contains(unrotate.Rotate(r2.Vec{X: p.X, Y: p.Y}))
}

// ToLocal maps a canonical point into the layer's unrotated box frame,
// relative to the box centre.
func (l *ImageLayer) ToLocal(p geometry.Point2D) geometry.Point2D {
	c := l.Center()
	v := r2.Rotate(r2.Vec{X: p.X - c.X, Y: p.Y - c.Y}, -geometry.DegToRad(l.props.Rotation), r2.Vec{})
	return geometry.Point2D{X: v.X, Y: v.Y}
}
