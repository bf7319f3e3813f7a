package image

import (
	"image"
	"runtime"
	"sync"
)

// DiffResult is the outcome of comparing two images. Image is a
// visualisation of the difference and may be nil for metrics that do not
// produce one.
type DiffResult struct {
	Image      image.Image
	DiffAmount float64
}

type Differ interface {
	Calculate(baseline image.Image, target image.Image) *DiffResult
}

func unionBounds(baseline image.Image, target image.Image) image.Rectangle {
	return baseline.Bounds().Union(target.Bounds())
}

// parallelRows splits the rows of bounds between workers and blocks until
// every worker returned. fn receives its [startY, endY) row range.
func parallelRows(bounds image.Rectangle, fn func(startY int, endY int)) {
	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := runtime.GOMAXPROCS(0)

	height := bounds.Dy()
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = bounds.Max.Y
		}

		go func(startY int, endY int) {
			defer wg.Done()
			fn(startY, endY)
		}(startY, endY)
	}

	wg.Wait()
}
