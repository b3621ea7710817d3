package service

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Tutortoise/object-detection-service/decoder"
	"github.com/Tutortoise/object-detection-service/logger"
	"github.com/Tutortoise/object-detection-service/models"
)

// ModelProvider is the model the service runs uploads through.
type ModelProvider interface {
	Infer(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]models.RawDetection, error)
	Label(classID int) string
}

type ProcessingError struct {
	Stage string
	Cause error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

type DetectionService struct {
	model ModelProvider
	log   *zap.Logger
}

func NewDetectionService(model ModelProvider, log *zap.Logger) *DetectionService {
	return &DetectionService{model: model, log: log}
}

// Detect decodes the uploaded image, runs it through the model and formats
// the result. Boxes are rounded to whole pixels; confidence and processing
// time are rounded to three decimals, ties to even.
func (s *DetectionService) Detect(ctx context.Context, req models.DetectionRequest) (*models.DetectionResponse, error) {
	start := time.Now()
	timings := &models.ProcessingTimings{RequestID: logger.RequestID(ctx)}

	img, format, err := decoder.Decode(req.ImageData)
	timings.ImageDecode = time.Since(start)
	if err != nil {
		return nil, &ProcessingError{Stage: "decode", Cause: err}
	}

	raw, err := s.model.Infer(ctx, img, timings)
	if err != nil {
		return nil, &ProcessingError{Stage: "inference", Cause: err}
	}

	dets := make([]models.Detection, 0, len(raw))
	for _, r := range raw {
		dets = append(dets, models.Detection{
			Class:      s.model.Label(r.ClassID),
			Confidence: round3(float64(r.Confidence)),
			Box: models.BoundingBox{
				X1: roundInt(r.Box[0]),
				Y1: roundInt(r.Box[1]),
				X2: roundInt(r.Box[2]),
				Y2: roundInt(r.Box[3]),
			},
		})
	}

	timings.Total = time.Since(start)
	s.logTimings(timings, format, len(dets))

	return &models.DetectionResponse{
		Success:        true,
		ProcessingTime: round3(timings.Total.Seconds()),
		Detections:     dets,
	}, nil
}

func (s *DetectionService) logTimings(t *models.ProcessingTimings, format string, count int) {
	s.log.Debug("processing times",
		zap.String("request_id", t.RequestID),
		zap.String("format", format),
		zap.Int("detections", count),
		zap.Duration("image_decode", t.ImageDecode),
		zap.Duration("preprocess", t.Preprocess),
		zap.Duration("inference", t.Inference),
		zap.Duration("postprocess", t.Postprocess),
		zap.Duration("total", t.Total),
	)
}

func roundInt(v float32) int {
	return int(math.RoundToEven(float64(v)))
}

func round3(v float64) float64 {
	return math.RoundToEven(v*1000) / 1000
}
