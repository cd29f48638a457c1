// Package label draws frame index labels with the built-in bitmap face from
// golang.org/x/image, scaled up to a fraction of the frame height.
package label

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultHeightRatio matches a font sized at a quarter of the frame height.
const DefaultHeightRatio = 0.25

type Renderer struct {
	Face        *basicfont.Face
	Color       color.Color
	HeightRatio float64
}

func NewRenderer() *Renderer {
	return &Renderer{
		Face:        basicfont.Face7x13,
		Color:       color.White,
		HeightRatio: DefaultHeightRatio,
	}
}

// Render draws text centered on both axes of dst.
func (r *Renderer) Render(dst *image.NRGBA, text string) error {
	if dst == nil {
		return errors.New("label: nil destination")
	}
	if text == "" {
		return nil
	}
	face := r.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	col := r.Color
	if col == nil {
		col = color.White
	}

	glyphs := rasterize(face, text, col)
	gb := glyphs.Bounds()
	bounds := dst.Bounds()

	ratio := r.HeightRatio
	if ratio <= 0 {
		ratio = DefaultHeightRatio
	}
	scale := int(float64(bounds.Dy()) * ratio / float64(gb.Dy()))
	if scale < 1 {
		scale = 1
	}
	for scale > 1 && gb.Dx()*scale > bounds.Dx() {
		scale--
	}

	w := gb.Dx() * scale
	h := gb.Dy() * scale
	x0 := bounds.Min.X + (bounds.Dx()-w)/2
	y0 := bounds.Min.Y + (bounds.Dy()-h)/2
	target := image.Rect(x0, y0, x0+w, y0+h)
	draw.NearestNeighbor.Scale(dst, target, glyphs, gb, draw.Over, nil)
	return nil
}

// rasterize draws text tightly into a transparent image one face-line high.
func rasterize(face *basicfont.Face, text string, col color.Color) *image.NRGBA {
	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(text)
	return img
}
