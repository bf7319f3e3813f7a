package image

import (
	"image"
	"sync/atomic"
)

// Highlight renders the baseline with changed pixels painted red where the
// target got brighter and blue where it got darker. DiffAmount is the share
// of painted pixels.
type Highlight struct {
	threshold float64
}

func NewHighlight(threshold float64) *Highlight {
	return &Highlight{
		threshold,
	}
}

func (h *Highlight) Calculate(baseline image.Image, target image.Image) *DiffResult {
	if baseline == target {
		return &DiffResult{
			Image:      baseline,
			DiffAmount: 0.0,
		}
	}

	bounds := unionBounds(baseline, target)
	diff := image.NewRGBA(bounds)

	var addedPixelCount int64
	var removedPixelCount int64
	totalPixelCount := int64(bounds.Dx()) * int64(bounds.Dy())

	parallelRows(bounds, func(startY int, endY int) {
		h.process(baseline, target, diff, bounds.Min.X, bounds.Max.X, startY, endY, &addedPixelCount, &removedPixelCount)
	})

	diffAmount := 0.0
	if totalPixelCount > 0 {
		diffAmount = float64(addedPixelCount+removedPixelCount) / float64(totalPixelCount)
	}

	return &DiffResult{
		Image:      diff,
		DiffAmount: diffAmount,
	}
}

func (h *Highlight) process(baseline image.Image, target image.Image, diff *image.RGBA, minX int, maxX int, startY int, endY int, addedCount *int64, removedCount *int64) {
	var localAdded int64
	var localRemoved int64

	for y := startY; y < endY; y++ {
		diffOffset := diff.PixOffset(minX, y)
		for x := minX; x < maxX; x++ {
			br, bg, bb, ba := h.colorAt(baseline, x, y)
			tr, tg, tb, ta := h.colorAt(target, x, y)

			dr, dg, db, da := br, bg, bb, ba
			if br != tr || bg != tg || bb != tb || ba != ta {
				dr, dg, db, da = h.diffColor(br, bg, bb, ba, tr, tg, tb)
				if dr == 255 && dg == 0 && db == 0 {
					localAdded++
				} else if dr == 0 && dg == 0 && db == 255 {
					localRemoved++
				}
			}

			diff.Pix[diffOffset] = dr
			diff.Pix[diffOffset+1] = dg
			diff.Pix[diffOffset+2] = db
			diff.Pix[diffOffset+3] = da
			diffOffset += 4
		}
	}

	atomic.AddInt64(addedCount, localAdded)
	atomic.AddInt64(removedCount, localRemoved)
}

// colorAt treats points outside img as opaque white.
func (h *Highlight) colorAt(img image.Image, x int, y int) (uint8, uint8, uint8, uint8) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return 255, 255, 255, 255
	}
	if rgba, ok := img.(*image.RGBA); ok {
		offset := rgba.PixOffset(x, y)
		return rgba.Pix[offset], rgba.Pix[offset+1], rgba.Pix[offset+2], rgba.Pix[offset+3]
	}
	r, g, b, a := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)
}

func (h *Highlight) diffColor(br uint8, bg uint8, bb uint8, ba uint8, tr uint8, tg uint8, tb uint8) (uint8, uint8, uint8, uint8) {
	baselineBrightness := int(br) + int(bg) + int(bb)
	targetBrightness := int(tr) + int(tg) + int(tb)
	normalizedDiff := float64(targetBrightness-baselineBrightness) / (255.0 * 3.0)

	if normalizedDiff > h.threshold {
		return 255, 0, 0, 255
	} else if normalizedDiff < -h.threshold {
		return 0, 0, 255, 255
	}
	return br, bg, bb, ba
}
