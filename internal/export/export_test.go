package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mockup-studio/internal/document"
	"mockup-studio/internal/errs"
	"mockup-studio/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	mockupRed = color.RGBA{R: 255, A: 255}
	artGreen  = color.RGBA{G: 255, A: 255}
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// scenarioDocument holds an 800x600 image at the import offset and a
// five-point stroke over a red mockup.
func scenarioDocument(t *testing.T, w, h int) *document.Document {
	t.Helper()
	doc := document.New(w, h)
	doc.SetBackground(solid(8, 8, mockupRed))

	_, err := doc.AddImageLayer(solid(800, 600, artGreen), document.Placement{X: 100, Y: 150})
	require.NoError(t, err)

	c, hex, err := document.ParseColor("#d63384")
	require.NoError(t, err)
	style := document.StrokeStyle{Color: c, Hex: hex, Width: 4}
	pts := []geometry.Point2D{{X: 950, Y: 100}, {X: 1000, Y: 120}, {X: 1050, Y: 110}, {X: 1100, Y: 140}, {X: 1150, Y: 130}}
	doc.AddStroke(pts[0], style)
	for _, p := range pts[1:] {
		doc.AppendToActiveStroke(p)
	}
	doc.FinalizeStroke()
	return doc
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestExport_CleanScenario(t *testing.T) {
	// Arrange
	doc := scenarioDocument(t, 1200, 1000)
	e := New(WithLogger(zap.NewNop()))

	// Act
	data, err := e.Export(context.Background(), doc.Snapshot(), false, 1)

	// Assert
	require.NoError(t, err)
	img := decodePNG(t, data)
	assert.Equal(t, image.Rect(0, 0, 1200, 1000), img.Bounds())

	assert.Equal(t, artGreen, rgbaAt(img, 500, 450))
	assert.Equal(t, uint8(0), rgbaAt(img, 50, 50).A, "no mockup behind the artwork")
	assert.Equal(t, uint8(0), rgbaAt(img, 1100, 900).A)

	stroke := rgbaAt(img, 1000, 120)
	assert.Greater(t, stroke.A, uint8(200))
	assert.Greater(t, stroke.R, stroke.G)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 7 {
		for x := b.Min.X; x < b.Max.X; x += 7 {
			require.NotEqual(t, mockupRed, rgbaAt(img, x, y), "background pixel at %d,%d", x, y)
		}
	}
}

func TestExport_MockupVariantHasBackground(t *testing.T) {
	doc := scenarioDocument(t, 1200, 1000)

	data, err := New().Export(context.Background(), doc.Snapshot(), true, 1)

	require.NoError(t, err)
	img := decodePNG(t, data)
	assert.Equal(t, mockupRed, rgbaAt(img, 50, 50))
	assert.Equal(t, artGreen, rgbaAt(img, 500, 450))
	assert.True(t, doc.BackgroundEnabled(), "export leaves the document alone")
}

func TestExport_ScaleIsUniform(t *testing.T) {
	// Arrange
	doc := document.New(300, 200)
	doc.SetBackground(solid(3, 2, mockupRed))
	_, err := doc.AddImageLayer(solid(10, 10, artGreen), document.Placement{X: 50, Y: 50, Width: 100, Height: 80, Rotation: 30})
	require.NoError(t, err)
	doc.AddStroke(geometry.Point2D{X: 200, Y: 20}, document.StrokeStyle{Color: color.NRGBA{B: 255, A: 255}, Width: 12})
	doc.AppendToActiveStroke(geometry.Point2D{X: 280, Y: 20})
	snap := doc.Snapshot()
	e := New()

	// Act
	one, err := e.Render(context.Background(), snap, true, 1)
	require.NoError(t, err)
	two, err := e.Render(context.Background(), snap, true, 2)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, image.Rect(0, 0, 600, 400), two.Bounds())
	samples := []image.Point{
		{100, 90},  // inside the rotated image
		{20, 180},  // mockup only
		{240, 20},  // stroke core
		{280, 150}, // mockup only
	}
	for _, p := range samples {
		assert.Equal(t, one.RGBAAt(p.X, p.Y), two.RGBAAt(2*p.X, 2*p.Y), "sample %v", p)
	}
}

func TestExport_Deterministic(t *testing.T) {
	snap := scenarioDocument(t, 1200, 1000).Snapshot()
	e := New()

	a, err := e.Export(context.Background(), snap, true, 1)
	require.NoError(t, err)
	b, err := e.Export(context.Background(), snap, true, 1)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestExport_JPEGIsFlattenedOnWhite(t *testing.T) {
	doc := document.New(64, 64)
	e := New(WithFormat(FormatJPEG), WithJPEGQuality(90))

	data, err := e.Export(context.Background(), doc.Snapshot(), false, 1)

	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := img.At(32, 32).RGBA()
	assert.Greater(t, r>>8, uint32(250))
	assert.Greater(t, g>>8, uint32(250))
	assert.Greater(t, b>>8, uint32(250))
}

func TestExport_PDF(t *testing.T) {
	doc := document.New(300, 600)

	data, err := New(WithFormat(FormatPDF)).Export(context.Background(), doc.Snapshot(), false, 1)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestExport_OversizedTarget(t *testing.T) {
	doc := document.New(100, 100)

	_, err := New().Export(context.Background(), doc.Snapshot(), false, 5000)

	assert.ErrorIs(t, err, errs.ErrRenderTarget)
}

func TestExportBoth_WriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	snap := scenarioDocument(t, 1200, 1000).Snapshot()

	paths, err := New().WriteFiles(context.Background(), snap, dir, 1)

	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "composition_mockup.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "composition_clean.png"), paths[1])

	mock, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	clean, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, mockupRed, rgbaAt(decodePNG(t, mock), 50, 50))
	assert.Equal(t, uint8(0), rgbaAt(decodePNG(t, clean), 50, 50).A)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantExt string
		wantErr bool
	}{
		{in: "png", want: FormatPNG, wantExt: "png"},
		{in: "JPG", want: FormatJPEG, wantExt: "jpg"},
		{in: ".jpeg", want: FormatJPEG, wantExt: "jpg"},
		{in: "pdf", want: FormatPDF, wantExt: "pdf"},
		{in: "gif", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantExt, got.Ext())
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "composition_mockup.jpg", FileName(VariantMockup, FormatJPEG))
	assert.Equal(t, "composition_clean.pdf", FileName(VariantClean, FormatPDF))
}
