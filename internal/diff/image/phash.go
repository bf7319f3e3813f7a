package image

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"math/bits"
	"sort"

	"github.com/nfnt/resize"
)

const (
	// hashSize is the side of the low-frequency block kept from the DCT.
	hashSize = 8
	// sampleSize is the side of the grayscale thumbnail the DCT runs on.
	sampleSize = hashSize * 4
)

// Hash is a 64-bit perceptual fingerprint. The most significant bit holds
// the top-left (DC) coefficient.
type Hash uint64

func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Distance returns the number of differing bits between a and b.
func Distance(a Hash, b Hash) int {
	return bits.OnesCount64(uint64(a ^ b))
}

var dctCosines = func() [sampleSize][sampleSize]float64 {
	var table [sampleSize][sampleSize]float64
	for k := 0; k < sampleSize; k++ {
		for n := 0; n < sampleSize; n++ {
			table[k][n] = math.Cos(math.Pi * float64(k) * float64(2*n+1) / float64(2*sampleSize))
		}
	}
	return table
}()

// PerceptualHash computes the DCT-based hash of img: grayscale, downsample to
// 32x32, 2D DCT-II, keep the 8x8 lowest frequencies and set one bit per
// coefficient above their median.
func PerceptualHash(img image.Image) Hash {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0
	}

	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(bounds)
		draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	}

	thumbnail := resize.Resize(sampleSize, sampleSize, gray, resize.Lanczos3)
	thumbBounds := thumbnail.Bounds()

	var pixels [sampleSize][sampleSize]float64
	if g, ok := thumbnail.(*image.Gray); ok {
		for y := 0; y < sampleSize; y++ {
			for x := 0; x < sampleSize; x++ {
				pixels[y][x] = float64(g.Pix[g.PixOffset(thumbBounds.Min.X+x, thumbBounds.Min.Y+y)])
			}
		}
	} else {
		for y := 0; y < sampleSize; y++ {
			for x := 0; x < sampleSize; x++ {
				r, _, _, _ := thumbnail.At(thumbBounds.Min.X+x, thumbBounds.Min.Y+y).RGBA()
				pixels[y][x] = float64(r >> 8)
			}
		}
	}

	// Columns first, then rows.
	var columns [sampleSize][sampleSize]float64
	for k := 0; k < sampleSize; k++ {
		for x := 0; x < sampleSize; x++ {
			var sum float64
			for n := 0; n < sampleSize; n++ {
				sum += pixels[n][x] * dctCosines[k][n]
			}
			columns[k][x] = 2 * sum
		}
	}

	var lowFrequencies [hashSize * hashSize]float64
	for v := 0; v < hashSize; v++ {
		for u := 0; u < hashSize; u++ {
			var sum float64
			for n := 0; n < sampleSize; n++ {
				sum += columns[v][n] * dctCosines[u][n]
			}
			lowFrequencies[v*hashSize+u] = 2 * sum
		}
	}

	// Flat regions leave the AC terms at rounding noise; pin them to zero so
	// that noise never decides a bit.
	for i, c := range lowFrequencies {
		if math.Abs(c) < 1e-6 {
			lowFrequencies[i] = 0
		}
	}

	median := medianOf(lowFrequencies[:])

	var hash Hash
	for i, c := range lowFrequencies {
		if c > median {
			hash |= 1 << uint(len(lowFrequencies)-1-i)
		}
	}
	return hash
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	middle := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[middle-1] + sorted[middle]) / 2
	}
	return sorted[middle]
}

type PHashDiff struct{}

func NewPHashDiff() *PHashDiff {
	return &PHashDiff{}
}

// Calculate reports the Hamming distance between the perceptual hashes of
// baseline and target. It does not produce a diff image.
func (p *PHashDiff) Calculate(baseline image.Image, target image.Image) *DiffResult {
	if baseline == target {
		return &DiffResult{
			DiffAmount: 0.0,
		}
	}

	return &DiffResult{
		DiffAmount: float64(Distance(PerceptualHash(baseline), PerceptualHash(target))),
	}
}
