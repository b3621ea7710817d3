package models

import "time"

// RawDetection is a single model prediction in source-image pixels, before
// rounding and label resolution.
type RawDetection struct {
	ClassID    int
	Confidence float32
	Box        [4]float32 // x1, y1, x2, y2
}

type BoundingBox struct {
	X1 int `json:"x1" msgpack:"x1"`
	Y1 int `json:"y1" msgpack:"y1"`
	X2 int `json:"x2" msgpack:"x2"`
	Y2 int `json:"y2" msgpack:"y2"`
}

type Detection struct {
	Class      string      `json:"class" msgpack:"class"`
	Confidence float64     `json:"confidence" msgpack:"confidence"`
	Box        BoundingBox `json:"box" msgpack:"box"`
}

type DetectionResponse struct {
	Success        bool        `json:"success" msgpack:"success"`
	ProcessingTime float64     `json:"processing_time" msgpack:"processing_time"`
	Detections     []Detection `json:"detections" msgpack:"detections"`
}

// DetectionRequest carries one uploaded file for the lifetime of a request.
type DetectionRequest struct {
	ImageData   []byte
	ContentType string
	Filename    string
}

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Total       time.Duration
}

type PoolStats struct {
	Loaded          bool  `json:"model_loaded" msgpack:"model_loaded"`
	PoolSize        int   `json:"pool_size" msgpack:"pool_size"`
	SessionsInUse   int   `json:"sessions_in_use" msgpack:"sessions_in_use"`
	TotalAcquired   int64 `json:"total_acquired" msgpack:"total_acquired"`
	TotalReleased   int64 `json:"total_released" msgpack:"total_released"`
	AcquireFailures int64 `json:"acquire_failures" msgpack:"acquire_failures"`

	// Total time callers spent waiting for a session.
	AcquireWaitSeconds float64 `json:"acquire_wait_seconds" msgpack:"acquire_wait_seconds"`
}
