// Package document holds the layer model: an ordered stack of placed images
// and freehand strokes in canonical space, plus the current selection.
package document

import (
	"image"
	"image/color"
	"math"

	"mockup-studio/pkg/geometry"
)

// Kind identifies a layer variant.
type Kind int

const (
	KindImage Kind = iota
	KindStroke
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindStroke:
		return "stroke"
	default:
		return "unknown"
	}
}

// Props are the fields shared by every layer.
type Props struct {
	// X, Y is the top-left of the unrotated box (images) or a translation
	// applied to every point (strokes).
	X, Y float64
	// Rotation in degrees, clockwise, about the layer centre.
	Rotation float64
	Opacity  float64
	Visible  bool
}

// DefaultProps returns an opaque, visible, untransformed layer.
func DefaultProps() Props {
	return Props{Opacity: 1, Visible: true}
}

// Layer is an ImageLayer or a StrokeLayer.
type Layer interface {
	ID() string
	Kind() Kind
	Props() Props
}

// ImageLayer is a placed bitmap. Its size is in canonical units and
// independent of the bitmap's native resolution.
type ImageLayer struct {
	id     string
	props  Props
	bitmap image.Image

	width, height float64
}

func (l *ImageLayer) ID() string          { return l.id }
func (l *ImageLayer) Kind() Kind          { return KindImage }
func (l *ImageLayer) Props() Props        { return l.props }
func (l *ImageLayer) Bitmap() image.Image { return l.bitmap }
func (l *ImageLayer) Width() float64      { return l.width }
func (l *ImageLayer) Height() float64     { return l.height }

// Box returns the unrotated placement rectangle.
func (l *ImageLayer) Box() geometry.Rect {
	return geometry.Rect{X: l.props.X, Y: l.props.Y, Width: l.width, Height: l.height}
}

// Center returns the rotation pivot in canonical space.
func (l *ImageLayer) Center() geometry.Point2D {
	return l.Box().Center()
}

// LocalToCanonical maps box-local coordinates ((0,0) top-left to
// (width,height) bottom-right) to canonical space, rotation included.
func (l *ImageLayer) LocalToCanonical() geometry.AffineTransform {
	pivot := geometry.Point2D{X: l.width / 2, Y: l.height / 2}
	return geometry.Translation(l.props.X, l.props.Y).
		Compose(geometry.RotationAbout(geometry.DegToRad(l.props.Rotation), pivot))
}

// BitmapToCanonical maps bitmap pixel coordinates to canonical space.
func (l *ImageLayer) BitmapToCanonical() geometry.AffineTransform {
	b := l.bitmap.Bounds()
	sx := l.width / float64(b.Dx())
	sy := l.height / float64(b.Dy())
	return l.LocalToCanonical().
		Compose(geometry.Scale(sx, sy)).
		Compose(geometry.Translation(-float64(b.Min.X), -float64(b.Min.Y)))
}

// Outline returns the rotated corners, clockwise from the top-left.
func (l *ImageLayer) Outline() []geometry.Point2D {
	return geometry.TransformRect(l.LocalToCanonical(),
		geometry.Rect{Width: l.width, Height: l.height})
}

// Transform returns the editable placement of the layer.
func (l *ImageLayer) Transform() Transform {
	return Transform{
		X:        l.props.X,
		Y:        l.props.Y,
		Width:    l.width,
		Height:   l.height,
		Rotation: l.props.Rotation,
		Opacity:  l.props.Opacity,
	}
}

func (l *ImageLayer) clone() *ImageLayer {
	c := *l
	return &c
}

// StrokeStyle is the colour and width a stroke is drawn with.
type StrokeStyle struct {
	Color color.NRGBA
	// Hex is the colour as it was entered, kept for display.
	Hex   string
	Width float64
}

// StrokeLayer is a freehand path. Points are appended while the stroke is
// active and never rewritten; after Finalize the layer is immutable.
type StrokeLayer struct {
	id        string
	props     Props
	points    []geometry.Point2D
	style     StrokeStyle
	finalized bool
}

func (l *StrokeLayer) ID() string         { return l.id }
func (l *StrokeLayer) Kind() Kind         { return KindStroke }
func (l *StrokeLayer) Props() Props       { return l.props }
func (l *StrokeLayer) Style() StrokeStyle { return l.style }
func (l *StrokeLayer) Finalized() bool    { return l.finalized }
func (l *StrokeLayer) Len() int           { return len(l.points) }

// Points returns a copy of the stroke's points in canonical space, with the
// layer offset applied.
func (l *StrokeLayer) Points() []geometry.Point2D {
	out := make([]geometry.Point2D, len(l.points))
	for i, p := range l.points {
		out[i] = geometry.Point2D{X: p.X + l.props.X, Y: p.Y + l.props.Y}
	}
	return out
}

// Bounds returns the canonical bounding box of the path, padded by half the
// stroke width so round caps are included.
func (l *StrokeLayer) Bounds() geometry.Rect {
	return geometry.BoundingBox(l.Points()).Inset(l.style.Width / 2)
}

func (l *StrokeLayer) append(p geometry.Point2D) {
	l.points = append(l.points, p)
}

// clone copies the layer. The point slice is copied so later appends to the
// original are never visible through the clone.
func (l *StrokeLayer) clone() *StrokeLayer {
	c := *l
	c.points = append([]geometry.Point2D(nil), l.points...)
	return &c
}

// Transform is a full placement update for an image layer.
type Transform struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
	Opacity       float64
}

// normalizeDegrees maps any angle to (-180, 180].
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}
