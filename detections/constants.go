package detections

import "time"

const (
	DefaultInputSize      = 640
	DefaultConfThreshold  = 0.25
	DefaultIoUThreshold   = 0.7
	DefaultMaxDetections  = 300
	DefaultPoolSize       = 4
	DefaultAcquireTimeout = 5 * time.Second

	// PadValue is the gray level used to fill the letterbox border.
	PadValue = 114

	// Candidates considered by NMS after sorting by score.
	maxNMSCandidates = 30000
	chunkSize        = 512
)

// Strides of the three YOLOv8 detection heads.
var strides = []int{8, 16, 32}
