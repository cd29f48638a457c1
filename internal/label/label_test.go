package label

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blank(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

// litBounds returns the bounding box of pixels that are not black.
func litBounds(img *image.NRGBA) image.Rectangle {
	var out image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.R == 0 && c.G == 0 && c.B == 0 {
				continue
			}
			out = out.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return out
}

func TestRenderCentersLabel(t *testing.T) {
	img := blank(320, 180)
	require.NoError(t, NewRenderer().Render(img, "17"))

	lit := litBounds(img)
	require.False(t, lit.Empty())

	cx := (lit.Min.X + lit.Max.X) / 2
	cy := (lit.Min.Y + lit.Max.Y) / 2
	assert.InDelta(t, 160, cx, 12)
	assert.InDelta(t, 90, cy, 25)
	assert.Greater(t, lit.Dy(), 20)

	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(319, 179))
}

func TestRenderTinyImageDoesNotPanic(t *testing.T) {
	img := blank(4, 4)
	assert.NoError(t, NewRenderer().Render(img, "123"))
}

func TestRenderEmptyTextIsNoop(t *testing.T) {
	img := blank(16, 16)
	require.NoError(t, NewRenderer().Render(img, ""))
	assert.True(t, litBounds(img).Empty())
}

func TestRenderNilDestination(t *testing.T) {
	assert.Error(t, NewRenderer().Render(nil, "1"))
}
