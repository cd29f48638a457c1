// Package colorspace converts straight-alpha RGBA rasters into the packed
// 4:2:2 layout the sender transports.
//
// Two horizontally adjacent pixels form a macropixel. Each keeps its own luma
// sample, and both share one chroma pair built by averaging their U and V.
// The output byte order is U, Y1, V, Y2.
package colorspace

import (
	"image"
	"math"

	"ndi-chaos-go/internal/types"
)

// ToUYVY converts img. The alpha plane is only allocated when withAlpha is set.
func ToUYVY(img *image.NRGBA, withAlpha bool) (types.PackedFrame, types.AlphaPlane) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	frame := types.PackedFrame{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*2),
	}
	var alpha types.AlphaPlane
	if withAlpha {
		alpha = types.AlphaPlane{
			Width:  width,
			Height: height,
			Data:   make([]byte, width*height),
		}
	}

	dst := frame.Data
	stride := width * 2
	for y := 0; y < height; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		out := dst[y*stride : (y+1)*stride]
		for x := 0; x < width; x += 2 {
			p1 := row[x*4 : x*4+4]
			y1, u1, v1 := pixelYUV(p1[0], p1[1], p1[2])

			// Odd widths pad the last macropixel with opaque black.
			var y2, u2, v2 uint8
			var a2 uint8 = 255
			hasSecond := x+1 < width
			if hasSecond {
				p2 := row[x*4+4 : x*4+8]
				y2, u2, v2 = pixelYUV(p2[0], p2[1], p2[2])
				a2 = p2[3]
			} else {
				y2, u2, v2 = pixelYUV(0, 0, 0)
			}

			u := uint8((int(u1) + int(u2)) / 2)
			v := uint8((int(v1) + int(v2)) / 2)

			i := x * 2
			out[i] = u
			out[i+1] = y1
			if hasSecond {
				out[i+2] = v
				out[i+3] = y2
			}

			if withAlpha {
				a := alpha.Data[y*width+x:]
				a[0] = p1[3]
				if hasSecond {
					a[1] = a2
				}
			}
		}
	}
	return frame, alpha
}

// pixelYUV returns the luma and unsubsampled chroma of a single pixel.
func pixelYUV(r, g, b uint8) (uint8, uint8, uint8) {
	rf := float64(r)
	gf := float64(g)
	bf := float64(b)
	y := clamp(0.299*rf + 0.587*gf + 0.114*bf)
	u := clamp(-0.14713*rf - 0.28886*gf + 0.436*bf + 128)
	v := clamp(0.615*rf - 0.51499*gf - 0.10001*bf + 128)
	return y, u, v
}

func clamp(value float64) uint8 {
	value = math.Round(value)
	if value < 0 {
		return 0
	}
	if value > 255 {
		return 255
	}
	return uint8(value)
}
