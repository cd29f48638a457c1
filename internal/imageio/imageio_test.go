package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestDecodeRasterPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(1, 1, color.NRGBA{10, 20, 30, 128})
	path := writePNG(t, src)

	img, err := DecodeRaster(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.NRGBA{10, 20, 30, 128}, img.NRGBAAt(1, 1))
}

func TestDecodeRasterConvertsPalettedImages(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	pal.SetColorIndex(0, 0, 1)
	img, err := DecodeRaster(writePNG(t, pal))
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(1, 1))
}

func TestDecodeRasterErrors(t *testing.T) {
	_, err := DecodeRaster(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = DecodeRaster(path)
	assert.Error(t, err)
}

func TestFit(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	out := Fit(src, 10, 6)
	assert.Equal(t, image.Rect(0, 0, 10, 6), out.Bounds())
}
