package detections

import (
	"image"
	"runtime"
	"sync"
)

// fillTensor writes img into dst as planar RGB scaled to [0,1]
// (CHW layout, one channel after the other). img must be size x size.
func fillTensor(dst []float32, img *image.NRGBA, size int) {
	channelSize := size * size
	numWorkers := min(runtime.GOMAXPROCS(0), size)
	rowsPerWorker := size / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if w == numWorkers-1 {
			endRow = size
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				row := img.Pix[y*img.Stride : y*img.Stride+size*4]
				offset := y * size
				for x := 0; x < size; x++ {
					i := offset + x
					p := row[x*4 : x*4+3 : x*4+3]
					dst[i] = float32(p[0]) / 255.0
					dst[channelSize+i] = float32(p[1]) / 255.0
					dst[channelSize*2+i] = float32(p[2]) / 255.0
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
}
