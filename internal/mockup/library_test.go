package mockup

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mockup-studio/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 10, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func testConfig(dir string) config.MockupConfig {
	return config.MockupConfig{Dir: dir, Front: "front.png", Back: "back.png", Default: "back"}
}

func TestLibrary_LoadFromDir(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "front.png"), 450, 500)
	writePNG(t, filepath.Join(dir, "back.png"), 90, 100)
	lib := NewLibrary(testConfig(dir), 4500, 5000, zap.NewNop())

	// Act
	err := lib.Load()

	// Assert
	require.NoError(t, err)
	front := lib.Get(Front)
	assert.False(t, front.Placeholder)
	assert.Equal(t, filepath.Join(dir, "front.png"), front.Path)
	assert.Equal(t, 450, front.Image.Bounds().Dx())
	assert.Equal(t, thumbnailWidth, front.Thumbnail.Bounds().Dx())
	assert.Equal(t, 90, lib.Get(Back).Thumbnail.Bounds().Dx(), "small images are their own thumbnail")
	assert.Equal(t, Back, lib.Default())
}

func TestLibrary_MissingAssetFallsBack(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "front.png"), 20, 20)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "back.png"), []byte("garbage"), 0o644))
	lib := NewLibrary(testConfig(dir), 450, 500, nil)

	err := lib.Load()

	assert.Error(t, err)
	assert.False(t, lib.Get(Front).Placeholder)
	back := lib.Get(Back)
	assert.True(t, back.Placeholder)
	assert.Equal(t, image.Rect(0, 0, 45, 50), back.Image.Bounds())
}

func TestLibrary_ReconfigureReloads(t *testing.T) {
	lib := NewLibrary(testConfig(t.TempDir()), 450, 500, nil)
	_ = lib.Load()
	require.True(t, lib.Get(Front).Placeholder)

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "front.png"), 10, 10)
	writePNG(t, filepath.Join(dir, "back.png"), 10, 10)

	require.NoError(t, lib.Reconfigure(testConfig(dir)))
	assert.False(t, lib.Get(Front).Placeholder)
	assert.Equal(t, dir, lib.Dir())
}

func TestLibrary_GetBeforeLoad(t *testing.T) {
	lib := NewLibrary(testConfig(""), 450, 500, nil)
	p := lib.Get(Front)
	assert.True(t, p.Placeholder)
	assert.NotNil(t, p.Image)
}

func TestPlaceholder_DrawsShirt(t *testing.T) {
	img := Placeholder(Front, 200, 200)

	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())
	_, _, _, a := img.At(100, 120).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	bodyR, _, _, _ := img.At(100, 120).RGBA()
	edgeR, _, _, _ := img.At(2, 198).RGBA()
	assert.NotEqual(t, bodyR, edgeR, "shirt body differs from the backdrop")
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide("back")
	require.NoError(t, err)
	assert.Equal(t, Back, s)
	assert.Equal(t, "Back", s.Label())

	_, err = ParseSide("side")
	assert.Error(t, err)
}
