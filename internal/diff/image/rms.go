package image

import (
	"image"
	"image/color"
	"math"
	"sync"
)

// Histogram counts absolute difference values per channel (R, G, B).
type Histogram [3][256]int64

func (h *Histogram) add(other *Histogram) {
	for c := range h {
		for i := range h[c] {
			h[c][i] += other[c][i]
		}
	}
}

// RMS returns the root-mean-square of the difference values in h,
// normalized by pixelCount.
func (h *Histogram) RMS(pixelCount int64) float64 {
	if pixelCount <= 0 {
		return 0.0
	}

	var sum float64
	for c := range h {
		for value, count := range h[c] {
			sum += float64(count) * float64(value*value)
		}
	}
	return math.Sqrt(sum / float64(pixelCount))
}

type RMSDiff struct{}

func NewRMSDiff() *RMSDiff {
	return &RMSDiff{}
}

// Calculate builds the per-channel absolute difference image over the union
// of both bounds and returns the RMS of its histogram. Pixels missing from
// one image compare against black. Two grayscale images are scored as a
// single band.
func (d *RMSDiff) Calculate(baseline image.Image, target image.Image) *DiffResult {
	bounds := unionBounds(baseline, target)
	diff := image.NewRGBA(bounds)

	if baseline == target {
		for i := 3; i < len(diff.Pix); i += 4 {
			diff.Pix[i] = 255
		}
		return &DiffResult{
			Image:      diff,
			DiffAmount: 0.0,
		}
	}

	_, baselineGray := baseline.(*image.Gray)
	_, targetGray := target.(*image.Gray)
	singleBand := baselineGray && targetGray

	var mu sync.Mutex
	var histogram Histogram

	parallelRows(bounds, func(startY int, endY int) {
		var local Histogram
		d.process(baseline, target, diff, bounds.Min.X, bounds.Max.X, startY, endY, singleBand, &local)

		mu.Lock()
		histogram.add(&local)
		mu.Unlock()
	})

	pixelCount := int64(bounds.Dx()) * int64(bounds.Dy())

	return &DiffResult{
		Image:      diff,
		DiffAmount: histogram.RMS(pixelCount),
	}
}

func (d *RMSDiff) process(baseline image.Image, target image.Image, diff *image.RGBA, minX int, maxX int, startY int, endY int, singleBand bool, histogram *Histogram) {
	for y := startY; y < endY; y++ {
		diffOffset := diff.PixOffset(minX, y)
		for x := minX; x < maxX; x++ {
			br, bg, bb := straightRGBAt(baseline, x, y)
			tr, tg, tb := straightRGBAt(target, x, y)

			dr := absDiff(br, tr)
			dg := absDiff(bg, tg)
			db := absDiff(bb, tb)

			histogram[0][dr]++
			if !singleBand {
				histogram[1][dg]++
				histogram[2][db]++
			}

			diff.Pix[diffOffset] = dr
			diff.Pix[diffOffset+1] = dg
			diff.Pix[diffOffset+2] = db
			diff.Pix[diffOffset+3] = 255
			diffOffset += 4
		}
	}
}

// straightRGBAt returns the non-premultiplied color at (x, y), or black when
// the point lies outside img.
func straightRGBAt(img image.Image, x int, y int) (uint8, uint8, uint8) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return 0, 0, 0
	}

	switch i := img.(type) {
	case *image.NRGBA:
		offset := i.PixOffset(x, y)
		return i.Pix[offset], i.Pix[offset+1], i.Pix[offset+2]
	case *image.RGBA:
		offset := i.PixOffset(x, y)
		if i.Pix[offset+3] == 255 {
			return i.Pix[offset], i.Pix[offset+1], i.Pix[offset+2]
		}
		c := color.NRGBAModel.Convert(color.RGBA{R: i.Pix[offset], G: i.Pix[offset+1], B: i.Pix[offset+2], A: i.Pix[offset+3]}).(color.NRGBA)
		return c.R, c.G, c.B
	case *image.Gray:
		v := i.Pix[i.PixOffset(x, y)]
		return v, v, v
	default:
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		return c.R, c.G, c.B
	}
}

func absDiff(a uint8, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
