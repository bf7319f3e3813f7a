package image

import (
	"image"
	"image/color"
	"image/draw"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// createBlockImage paints a cells x cells grid of pseudo-random gray levels
// over a width x height canvas. The same seed always yields the same layout,
// whatever the canvas size.
func createBlockImage(width, height, cells int, seed uint32) *image.RGBA {
	levels := make([]uint8, cells*cells)
	state := seed
	for i := range levels {
		state = state*1664525 + 1013904223
		levels[i] = uint8(state >> 24)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := levels[(y*cells/height)*cells+x*cells/width]
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func invert(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i] = 255 - src.Pix[i]
		dst.Pix[i+1] = 255 - src.Pix[i+1]
		dst.Pix[i+2] = 255 - src.Pix[i+2]
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}
