package app

import (
	"bytes"
	"context"
	goimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mockup-studio/internal/config"
	"mockup-studio/internal/document"
	"mockup-studio/internal/errs"
	"mockup-studio/internal/export"
	"mockup-studio/internal/input"
	"mockup-studio/internal/mockup"
	"mockup-studio/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testConfig is a 1000x1000 canvas shown at 1000 display pixels, so display
// and canonical coordinates coincide.
func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Canvas.Width, cfg.Canvas.Height = 1000, 1000
	cfg.Editor.DisplayWidth = 1000
	cfg.Mockups.Dir = t.TempDir()
	return cfg
}

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState(testConfig(t), zap.NewNop())
}

func at(kind input.EventKind, x, y float64) input.Event {
	return input.Event{Kind: kind, Pos: geometry.Point2D{X: x, Y: y}}
}

func TestState_ImportPlacesAndSelects(t *testing.T) {
	// Arrange
	s := newTestState(t)
	s.SetTool(input.ToolBrush)
	var imported, selected []interface{}
	s.On(EventImported, func(d interface{}) { imported = append(imported, d) })
	s.On(EventSelectionChanged, func(d interface{}) { selected = append(selected, d) })

	// Act
	id, err := s.ImportBytes(pngBytes(t, 200, 100, color.RGBA{G: 255, A: 255}))

	// Assert
	require.NoError(t, err)
	img, ok := s.Document().ImageLayer(id)
	require.True(t, ok)
	assert.Equal(t, 100.0, img.Props().X)
	assert.Equal(t, 150.0, img.Props().Y)
	assert.Equal(t, 200.0, img.Width())
	assert.Equal(t, 100.0, img.Height())
	assert.Equal(t, id, s.Document().Selected())
	assert.Equal(t, input.ToolMove, s.Input().Tool())
	assert.Equal(t, []interface{}{id}, imported)
	assert.Equal(t, []interface{}{id}, selected)
}

func TestState_ImportRejectsGarbage(t *testing.T) {
	s := newTestState(t)

	_, err := s.ImportBytes([]byte("not an image"))

	assert.ErrorIs(t, err, errs.ErrImport)
	assert.Zero(t, s.Document().Len())
}

func TestState_ImportFile(t *testing.T) {
	s := newTestState(t)
	path := filepath.Join(t.TempDir(), "art.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 40, 30, color.Black), 0o644))

	id, err := s.ImportFile(path)

	require.NoError(t, err)
	img, _ := s.Document().ImageLayer(id)
	assert.Equal(t, 40.0, img.Width())
}

func TestState_ImportScale(t *testing.T) {
	cfg := testConfig(t)
	cfg.Import.Scale = 0.5
	s := NewState(cfg, nil)

	id, err := s.ImportBytes(pngBytes(t, 200, 100, color.Black))

	require.NoError(t, err)
	img, _ := s.Document().ImageLayer(id)
	assert.Equal(t, 100.0, img.Width())
	assert.Equal(t, 50.0, img.Height())
}

func TestState_DragImportedLayer(t *testing.T) {
	// Arrange
	s := newTestState(t)
	id, err := s.ImportBytes(pngBytes(t, 200, 100, color.Black))
	require.NoError(t, err)
	changes := 0
	s.On(EventLayersChanged, func(interface{}) { changes++ })

	// Act
	s.HandlePointer(at(input.Down, 150, 200))
	s.HandlePointer(at(input.Move, 170, 210))
	s.HandlePointer(at(input.Up, 170, 210))

	// Assert
	img, _ := s.Document().ImageLayer(id)
	assert.Equal(t, 120.0, img.Props().X)
	assert.Equal(t, 160.0, img.Props().Y)
	assert.Positive(t, changes)
}

func TestState_BrushStroke(t *testing.T) {
	s := newTestState(t)
	s.SetTool(input.ToolBrush)
	require.NoError(t, s.SetBrushColor("#00ff00"))
	assert.Equal(t, 12.0, s.SetBrushWidth(12))

	s.HandlePointer(at(input.Down, 10, 10))
	s.HandlePointer(at(input.Move, 20, 20))
	s.HandlePointer(at(input.Up, 20, 20))

	layers := s.Document().Layers()
	require.Len(t, layers, 1)
	stroke := layers[0].(*document.StrokeLayer)
	assert.True(t, stroke.Finalized())
	assert.Equal(t, "#00ff00", stroke.Style().Hex)
	assert.Equal(t, 12.0, stroke.Style().Width)
}

func TestState_BrushColorRejected(t *testing.T) {
	s := newTestState(t)
	before := s.Brush().Style()

	err := s.SetBrushColor("pink")

	assert.Error(t, err)
	assert.Equal(t, before, s.Brush().Style())
}

func TestState_SelectionOperations(t *testing.T) {
	s := newTestState(t)

	assert.ErrorIs(t, s.DeleteSelected(), ErrNoSelection)
	_, err := s.DuplicateSelected()
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.ErrorIs(t, s.SetSelectedOpacity(0.5), ErrNoSelection)

	id, err := s.ImportBytes(pngBytes(t, 10, 10, color.Black))
	require.NoError(t, err)

	require.NoError(t, s.SetSelectedOpacity(0.25))
	img, _ := s.Document().ImageLayer(id)
	assert.Equal(t, 0.25, img.Props().Opacity)

	dup, err := s.DuplicateSelected()
	require.NoError(t, err)
	assert.NotEqual(t, id, dup)
	assert.Equal(t, dup, s.Document().Selected())
	copied, _ := s.Document().ImageLayer(dup)
	assert.Equal(t, img.Props().X+20, copied.Props().X)

	require.NoError(t, s.DeleteSelected())
	assert.Equal(t, "", s.Document().Selected())
	assert.Equal(t, 1, s.Document().Len())
}

func TestState_RaiseSelected(t *testing.T) {
	// Arrange
	s := newTestState(t)
	assert.ErrorIs(t, s.RaiseSelected(), ErrNoSelection)
	bottom, err := s.ImportBytes(pngBytes(t, 10, 10, color.Black))
	require.NoError(t, err)
	_, err = s.ImportBytes(pngBytes(t, 10, 10, color.White))
	require.NoError(t, err)
	require.NoError(t, s.Document().Select(bottom))
	changed := 0
	s.On(EventLayersChanged, func(interface{}) { changed++ })

	// Act
	err = s.RaiseSelected()

	// Assert
	require.NoError(t, err)
	layers := s.Document().Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, bottom, layers[1].ID())
	assert.Equal(t, bottom, s.Document().Selected())
	assert.Equal(t, 1, changed)
}

func TestState_ClearKeepsImages(t *testing.T) {
	s := newTestState(t)
	_, err := s.ImportBytes(pngBytes(t, 10, 10, color.Black))
	require.NoError(t, err)
	s.SetTool(input.ToolBrush)
	s.HandlePointer(at(input.Down, 500, 500))
	s.HandlePointer(at(input.Up, 500, 500))

	n := s.Clear()

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Document().Len())
}

func TestState_Mockups(t *testing.T) {
	s := newTestState(t)
	var sides []interface{}
	s.On(EventMockupChanged, func(d interface{}) { sides = append(sides, d) })

	err := s.LoadMockups()

	assert.Error(t, err, "empty mockup dir falls back to placeholders")
	assert.Equal(t, mockup.Front, s.MockupSide())
	assert.NotNil(t, s.Document().Background())
	assert.Equal(t, mockup.Back, s.ToggleMockup())
	assert.Equal(t, mockup.Front, s.ToggleMockup())
	assert.Equal(t, []interface{}{mockup.Front, mockup.Back, mockup.Front}, sides)
}

func TestState_Viewport(t *testing.T) {
	s := newTestState(t)
	events := 0
	s.On(EventViewportChanged, func(interface{}) { events++ })

	assert.InDelta(t, 1.2, s.ZoomIn(), 1e-9)
	assert.InDelta(t, 1.0, s.ZoomOut(), 1e-9)
	s.PanBy(10, 0)
	s.ResetView()
	assert.Equal(t, 1.0, s.Viewport().Zoom())
	assert.Equal(t, geometry.Point2D{}, s.Viewport().Pan())
	assert.Equal(t, 4, events)
}

func TestState_RenderPreview(t *testing.T) {
	// Arrange
	s := newTestState(t)
	s.SetDisplayWidth(500)
	_, err := s.ImportBytes(pngBytes(t, 200, 100, color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)

	// Act
	img, err := s.RenderPreview(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, goimage.Rect(0, 0, 500, 500), img.Bounds())
	r, _, _, a := img.At(100, 100).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)
}

func TestState_ExportFiles(t *testing.T) {
	s := newTestState(t)
	require.Error(t, s.LoadMockups())
	_, err := s.ImportBytes(pngBytes(t, 50, 50, color.Black))
	require.NoError(t, err)
	var exported interface{}
	s.On(EventExported, func(d interface{}) { exported = d })
	dir := t.TempDir()

	paths, err := s.ExportFiles(context.Background(), s.Snapshot(), dir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "composition_mockup.png"),
		filepath.Join(dir, "composition_clean.png"),
	}, paths)
	assert.Nil(t, exported, "export runs off the UI goroutine and stays silent")
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	s.NotifyExported(paths)
	assert.Equal(t, paths, exported)
}

func TestState_ExportSingle(t *testing.T) {
	s := newTestState(t)

	data, err := s.Export(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestState_ApplyConfig(t *testing.T) {
	// Arrange
	s := newTestState(t)
	next := testConfig(t)
	next.Canvas.Width = 2000
	next.Export.Format = "jpeg"
	next.Editor.DuplicateOffset = 5
	reloaded := false
	s.On(EventConfigReloaded, func(interface{}) { reloaded = true })

	// Act
	s.ApplyConfig(next)

	// Assert
	assert.True(t, reloaded)
	assert.Equal(t, 1000, s.Config().Canvas.Width, "canvas size is fixed for the session")
	assert.Equal(t, export.FormatJPEG, s.Exporter().Format())
	id, err := s.ImportBytes(pngBytes(t, 10, 10, color.Black))
	require.NoError(t, err)
	dup, err := s.DuplicateSelected()
	require.NoError(t, err)
	a, _ := s.Document().ImageLayer(id)
	b, _ := s.Document().ImageLayer(dup)
	assert.Equal(t, a.Props().X+5, b.Props().X)
}

func TestState_SetExportFormat(t *testing.T) {
	s := newTestState(t)
	before := s.Config()

	s.SetExportFormat(export.FormatPDF)

	assert.Equal(t, export.FormatPDF, s.Exporter().Format())
	assert.Equal(t, "pdf", s.Config().Export.Format)
	assert.Equal(t, "png", before.Export.Format, "earlier config values are not mutated")
}
