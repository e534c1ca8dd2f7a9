package document

import (
	"errors"
	"fmt"
	"image"
	"testing"

	"mockup-studio/internal/errs"
	"mockup-studio/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument() *Document {
	n := 0
	return New(4500, 5000, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("L%d", n)
	}))
}

func bitmap(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

var pink = StrokeStyle{Width: 4, Hex: "#d63384"}

func TestAddImageLayer_DefaultsToNativeSize(t *testing.T) {
	doc := newTestDocument()

	id, err := doc.AddImageLayer(bitmap(800, 600), Placement{X: 100, Y: 150})
	require.NoError(t, err)

	img, ok := doc.ImageLayer(id)
	require.True(t, ok)
	assert.Equal(t, 800.0, img.Width())
	assert.Equal(t, 600.0, img.Height())
	assert.Equal(t, 1.0, img.Props().Opacity)
	assert.True(t, img.Props().Visible)
	assert.Equal(t, geometry.Point2D{X: 500, Y: 450}, img.Center())
}

func TestAddImageLayer_EmptyBitmapIsImportError(t *testing.T) {
	doc := newTestDocument()

	_, err := doc.AddImageLayer(bitmap(0, 0), Placement{})

	assert.True(t, errors.Is(err, errs.ErrImport))
	assert.Equal(t, 0, doc.Len())
}

func TestStroke_Monotonic(t *testing.T) {
	// Arrange
	doc := newTestDocument()
	pts := []geometry.Point2D{{X: 1, Y: 1}, {X: 5, Y: 2}, {X: 9, Y: 7}, {X: 3, Y: 3}, {X: 0, Y: 10}}

	// Act
	id := doc.AddStroke(pts[0], pink)
	for _, p := range pts[1:] {
		require.True(t, doc.AppendToActiveStroke(p))
	}

	// Assert
	l, ok := doc.Layer(id)
	require.True(t, ok)
	stroke := l.(*StrokeLayer)
	assert.Equal(t, pts, stroke.Points())
	assert.False(t, stroke.Finalized())
	assert.Equal(t, id, doc.ActiveStroke())
}

func TestStroke_FinalizedNeverMutates(t *testing.T) {
	doc := newTestDocument()
	first := doc.AddStroke(geometry.Point2D{X: 1, Y: 1}, pink)
	doc.AppendToActiveStroke(geometry.Point2D{X: 2, Y: 2})
	assert.Equal(t, first, doc.FinalizeStroke())

	assert.False(t, doc.AppendToActiveStroke(geometry.Point2D{X: 99, Y: 99}), "no active stroke")

	second := doc.AddStroke(geometry.Point2D{X: 50, Y: 50}, pink)
	doc.AppendToActiveStroke(geometry.Point2D{X: 60, Y: 60})

	l, _ := doc.Layer(first)
	s := l.(*StrokeLayer)
	assert.True(t, s.Finalized())
	assert.Equal(t, []geometry.Point2D{{X: 1, Y: 1}, {X: 2, Y: 2}}, s.Points())
	assert.NotEqual(t, first, second)
}

func TestAddStroke_FinalizesPrevious(t *testing.T) {
	doc := newTestDocument()
	first := doc.AddStroke(geometry.Point2D{}, pink)
	doc.AddStroke(geometry.Point2D{X: 1}, pink)

	l, _ := doc.Layer(first)
	assert.True(t, l.(*StrokeLayer).Finalized())
}

func TestSelect(t *testing.T) {
	doc := newTestDocument()
	imgID, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})
	strokeID := doc.AddStroke(geometry.Point2D{}, pink)

	require.NoError(t, doc.Select(imgID))
	assert.Equal(t, imgID, doc.Selected())

	assert.ErrorIs(t, doc.Select(strokeID), ErrStrokeLayer)
	assert.Equal(t, imgID, doc.Selected(), "selection unchanged")

	assert.ErrorIs(t, doc.Select("missing"), errs.ErrStaleSelection)
	assert.Equal(t, imgID, doc.Selected())

	require.NoError(t, doc.Select(""))
	assert.Equal(t, "", doc.Selected())
}

func TestRemove_SelectedClearsSelection(t *testing.T) {
	doc := newTestDocument()
	id, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})
	require.NoError(t, doc.Select(id))

	require.NoError(t, doc.Remove(id))

	assert.Equal(t, "", doc.Selected())
	assert.Equal(t, 0, doc.Len())
	assert.ErrorIs(t, doc.Remove(id), errs.ErrStaleSelection)
}

func TestRemoveAll_KeepsImages(t *testing.T) {
	doc := newTestDocument()
	imgID, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})
	doc.AddStroke(geometry.Point2D{}, pink)
	doc.FinalizeStroke()
	doc.AddStroke(geometry.Point2D{X: 3}, pink) // still active
	require.NoError(t, doc.Select(imgID))

	removed := doc.RemoveAll()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, doc.Len())
	assert.Equal(t, imgID, doc.Selected())
	assert.Equal(t, "", doc.ActiveStroke())
	assert.False(t, doc.AppendToActiveStroke(geometry.Point2D{}))
}

func TestSetTransform(t *testing.T) {
	doc := newTestDocument()
	id, _ := doc.AddImageLayer(bitmap(100, 50), Placement{})

	err := doc.SetTransform(id, Transform{X: 10, Y: 20, Width: 200, Height: 100, Rotation: 450, Opacity: 1.7})
	require.NoError(t, err)

	img, _ := doc.ImageLayer(id)
	assert.Equal(t, Transform{X: 10, Y: 20, Width: 200, Height: 100, Rotation: 90, Opacity: 1}, img.Transform())
}

func TestImageLayer_SizeChangesOnlyThroughSetTransform(t *testing.T) {
	// Arrange
	doc := newTestDocument()
	id, _ := doc.AddImageLayer(bitmap(100, 50), Placement{})
	snap := doc.Snapshot()

	// Act
	err := doc.SetTransform(id, Transform{Width: -5, Height: 1e9, Opacity: 1})

	// Assert
	require.NoError(t, err)
	img, _ := doc.ImageLayer(id)
	assert.Equal(t, minLayerSide, img.Width(), "width clamped to the minimum side")
	assert.Equal(t, float64(doc.maxSide()), img.Height(), "height clamped to the maximum side")
	frozen := snap.Layers[0].(*ImageLayer)
	assert.Equal(t, 100.0, frozen.Width())
	assert.Equal(t, 50.0, frozen.Height())
}

func TestSetTransform_MissingIDIsNoOp(t *testing.T) {
	doc := newTestDocument()
	id, _ := doc.AddImageLayer(bitmap(100, 50), Placement{X: 5})
	before := doc.Snapshot()

	err := doc.SetTransform("gone", Transform{X: 999, Width: 1, Height: 1})

	assert.ErrorIs(t, err, errs.ErrStaleSelection)
	img, _ := doc.ImageLayer(id)
	assert.Equal(t, before.Layers[0].(*ImageLayer).Transform(), img.Transform())
	assert.Equal(t, before.Version, doc.Version())
}

func TestSetTransform_StrokeRejected(t *testing.T) {
	doc := newTestDocument()
	id := doc.AddStroke(geometry.Point2D{}, pink)
	assert.ErrorIs(t, doc.SetTransform(id, Transform{Width: 1, Height: 1}), ErrStrokeLayer)
}

func TestHitTest_TopmostWins(t *testing.T) {
	doc := newTestDocument()
	bottom, _ := doc.AddImageLayer(bitmap(100, 100), Placement{X: 0, Y: 0})
	top, _ := doc.AddImageLayer(bitmap(100, 100), Placement{X: 50, Y: 50})
	doc.AddStroke(geometry.Point2D{X: 75, Y: 75}, pink) // strokes are transparent to hits

	id, ok := doc.HitTest(geometry.Point2D{X: 75, Y: 75})
	assert.True(t, ok)
	assert.Equal(t, top, id)

	id, _ = doc.HitTest(geometry.Point2D{X: 25, Y: 25})
	assert.Equal(t, bottom, id)

	_, ok = doc.HitTest(geometry.Point2D{X: 500, Y: 500})
	assert.False(t, ok)
}

func TestHitTest_Rotated(t *testing.T) {
	doc := newTestDocument()
	// 200x20 bar centred at (100, 10), rotated to vertical.
	id, _ := doc.AddImageLayer(bitmap(200, 20), Placement{X: 0, Y: 0, Rotation: 90})

	hit, ok := doc.HitTest(geometry.Point2D{X: 100, Y: 90})
	assert.True(t, ok)
	assert.Equal(t, id, hit)

	_, ok = doc.HitTest(geometry.Point2D{X: 10, Y: 10})
	assert.False(t, ok, "the unrotated end is empty after rotation")
}

func TestHitTest_SkipsHidden(t *testing.T) {
	doc := newTestDocument()
	id, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})
	require.NoError(t, doc.SetVisible(id, false))

	_, ok := doc.HitTest(geometry.Point2D{X: 5, Y: 5})
	assert.False(t, ok)
}

func TestSelectAt(t *testing.T) {
	doc := newTestDocument()
	id, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})

	assert.Equal(t, id, doc.SelectAt(geometry.Point2D{X: 5, Y: 5}))
	assert.Equal(t, id, doc.Selected())

	assert.Equal(t, "", doc.SelectAt(geometry.Point2D{X: 50, Y: 50}))
	assert.Equal(t, "", doc.Selected())
}

func TestDuplicate(t *testing.T) {
	doc := newTestDocument()
	id, _ := doc.AddImageLayer(bitmap(10, 10), Placement{X: 1, Y: 2, Opacity: 0.5})

	dup, err := doc.Duplicate(id, 20)
	require.NoError(t, err)

	orig, _ := doc.ImageLayer(id)
	copyLayer, _ := doc.ImageLayer(dup)
	assert.Equal(t, 21.0, copyLayer.Props().X)
	assert.Equal(t, 22.0, copyLayer.Props().Y)
	assert.Equal(t, 0.5, copyLayer.Props().Opacity)
	assert.Same(t, orig.Bitmap(), copyLayer.Bitmap())

	layers := doc.Layers()
	assert.Equal(t, dup, layers[len(layers)-1].ID())
}

func TestSnapshot_IsolatedFromLaterEdits(t *testing.T) {
	doc := newTestDocument()
	imgID, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})
	doc.AddStroke(geometry.Point2D{X: 1, Y: 1}, pink)

	snap := doc.Snapshot()

	doc.AppendToActiveStroke(geometry.Point2D{X: 2, Y: 2})
	require.NoError(t, doc.SetTransform(imgID, Transform{X: 300, Width: 10, Height: 10, Opacity: 1}))
	doc.AddImageLayer(bitmap(5, 5), Placement{})

	require.Len(t, snap.Layers, 2)
	assert.Equal(t, 0.0, snap.Layers[0].(*ImageLayer).Props().X)
	assert.Equal(t, 1, snap.Layers[1].(*StrokeLayer).Len())
}

func TestSnapshot_WithoutBackgroundLeavesDocument(t *testing.T) {
	doc := newTestDocument()
	doc.SetBackground(bitmap(4, 4))

	clean := doc.Snapshot().WithoutBackground()

	assert.False(t, clean.BackgroundEnabled)
	assert.True(t, doc.BackgroundEnabled())
	assert.NotNil(t, doc.Background())
}

func TestRaiseToTop(t *testing.T) {
	doc := newTestDocument()
	a, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})
	b, _ := doc.AddImageLayer(bitmap(10, 10), Placement{})

	require.NoError(t, doc.RaiseToTop(a))

	layers := doc.Layers()
	assert.Equal(t, []string{b, a}, []string{layers[0].ID(), layers[1].ID()})
}

func TestNormalizeDegrees(t *testing.T) {
	tests := map[float64]float64{0: 0, 180: 180, -180: 180, 190: -170, 720: 0, -270: 90}
	for in, want := range tests {
		assert.InDelta(t, want, normalizeDegrees(in), 1e-9, "input %v", in)
	}
}
