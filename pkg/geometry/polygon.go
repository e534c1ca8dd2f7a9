package geometry

// TransformPoints applies t to every point and returns a new slice.
func TransformPoints(t AffineTransform, points []Point2D) []Point2D {
	out := make([]Point2D, len(points))
	for i, p := range points {
		out[i] = t.Apply(p)
	}
	return out
}

// TransformRect returns the corners of r mapped through t, clockwise from
// the image of r's top-left corner.
func TransformRect(t AffineTransform, r Rect) []Point2D {
	c := r.Corners()
	return TransformPoints(t, c[:])
}
