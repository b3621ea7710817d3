package detections

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Tutortoise/object-detection-service/models"
)

// decodeOutput scans a YOLOv8 output tensor laid out as [channels, anchors]
// (4 box rows of cx, cy, w, h followed by one score row per class) and
// returns every anchor whose best class score exceeds conf. Candidates keep
// anchor order.
func decodeOutput(predictions []float32, channels, anchors int, conf float32) ([]candidate, error) {
	if channels <= 4 || anchors <= 0 {
		return nil, fmt.Errorf("invalid output shape: %d x %d", channels, anchors)
	}
	if expected := channels * anchors; len(predictions) != expected {
		return nil, fmt.Errorf("unexpected predictions length: got %d, want %d", len(predictions), expected)
	}

	numClasses := channels - 4
	numChunks := (anchors + chunkSize - 1) / chunkSize
	chunks := make([][]candidate, numChunks)

	numWorkers := min(runtime.NumCPU(), numChunks)
	jobs := make(chan int, numChunks)
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				start := c * chunkSize
				end := min(start+chunkSize, anchors)

				var local []candidate
				for i := start; i < end; i++ {
					classID, score := 0, predictions[4*anchors+i]
					for k := 1; k < numClasses; k++ {
						if s := predictions[(4+k)*anchors+i]; s > score {
							classID, score = k, s
						}
					}
					if score <= conf {
						continue
					}

					cx := predictions[i]
					cy := predictions[anchors+i]
					w := predictions[2*anchors+i]
					h := predictions[3*anchors+i]
					local = append(local, candidate{
						box:     [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
						score:   score,
						classID: classID,
					})
				}
				chunks[c] = local
			}
		}()
	}

	for c := 0; c < numChunks; c++ {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	var out []candidate
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	return out, nil
}

type postprocessOptions struct {
	confThreshold float32
	iouThreshold  float32
	maxDetections int
}

func postprocess(predictions []float32, spec modelSpec, lb Letterbox, opts postprocessOptions) ([]models.RawDetection, error) {
	cands, err := decodeOutput(predictions, spec.Channels, spec.Anchors, opts.confThreshold)
	if err != nil {
		return nil, err
	}

	kept := nonMaxSuppression(cands, opts.iouThreshold, opts.maxDetections)
	out := make([]models.RawDetection, 0, len(kept))
	for _, c := range kept {
		out = append(out, models.RawDetection{
			ClassID:    c.classID,
			Confidence: c.score,
			Box:        lb.Restore(c.box),
		})
	}
	return out, nil
}
