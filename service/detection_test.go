package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Tutortoise/object-detection-service/decoder"
	"github.com/Tutortoise/object-detection-service/logger"
	"github.com/Tutortoise/object-detection-service/models"
)

type fakeModel struct {
	infer func(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]models.RawDetection, error)
	calls int
}

func (f *fakeModel) Infer(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]models.RawDetection, error) {
	f.calls++
	return f.infer(ctx, img, timings)
}

func (f *fakeModel) Label(classID int) string {
	return map[int]string{0: "person", 2: "car"}[classID]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	model := &fakeModel{
		infer: func(_ context.Context, img image.Image, _ *models.ProcessingTimings) ([]models.RawDetection, error) {
			assert.Equal(t, 64, img.Bounds().Dx())
			assert.Equal(t, 48, img.Bounds().Dy())
			return []models.RawDetection{
				{ClassID: 0, Confidence: 0.91234, Box: [4]float32{10.4, 20.5, 30.5, 40.6}},
				{ClassID: 2, Confidence: 0.5, Box: [4]float32{0, 1.5, 63.49, 47}},
			}, nil
		},
	}
	svc := NewDetectionService(model, zaptest.NewLogger(t))

	resp, err := svc.Detect(context.Background(), models.DetectionRequest{
		ImageData:   pngBytes(t, 64, 48),
		ContentType: "image/png",
		Filename:    "frame.png",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.GreaterOrEqual(t, resp.ProcessingTime, 0.0)
	require.Len(t, resp.Detections, 2)

	assert.Equal(t, models.Detection{
		Class:      "person",
		Confidence: 0.912,
		Box:        models.BoundingBox{X1: 10, Y1: 20, X2: 30, Y2: 41},
	}, resp.Detections[0])
	assert.Equal(t, models.Detection{
		Class:      "car",
		Confidence: 0.5,
		Box:        models.BoundingBox{X1: 0, Y1: 2, X2: 63, Y2: 47},
	}, resp.Detections[1])

	for _, d := range resp.Detections {
		assert.GreaterOrEqual(t, d.Confidence, 0.0)
		assert.LessOrEqual(t, d.Confidence, 1.0)
		assert.LessOrEqual(t, d.Box.X1, d.Box.X2)
		assert.LessOrEqual(t, d.Box.Y1, d.Box.Y2)
	}
}

func TestDetect_NoDetections(t *testing.T) {
	model := &fakeModel{
		infer: func(context.Context, image.Image, *models.ProcessingTimings) ([]models.RawDetection, error) {
			return nil, nil
		},
	}
	svc := NewDetectionService(model, zaptest.NewLogger(t))

	resp, err := svc.Detect(context.Background(), models.DetectionRequest{ImageData: pngBytes(t, 8, 8)})
	require.NoError(t, err)
	assert.NotNil(t, resp.Detections)
	assert.Empty(t, resp.Detections)
}

func TestDetect_DecodeError(t *testing.T) {
	model := &fakeModel{
		infer: func(context.Context, image.Image, *models.ProcessingTimings) ([]models.RawDetection, error) {
			return nil, nil
		},
	}
	svc := NewDetectionService(model, zaptest.NewLogger(t))

	_, err := svc.Detect(context.Background(), models.DetectionRequest{
		ImageData:   []byte("definitely not a png"),
		ContentType: "image/png",
	})
	require.Error(t, err)

	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "decode", perr.Stage)
	assert.Zero(t, model.calls, "model must not run on undecodable input")

	_, err = svc.Detect(context.Background(), models.DetectionRequest{})
	assert.ErrorIs(t, err, decoder.ErrEmptyImage)
}

func TestDetect_InferenceError(t *testing.T) {
	cause := errors.New("acquire session: timed out waiting for a session")
	model := &fakeModel{
		infer: func(context.Context, image.Image, *models.ProcessingTimings) ([]models.RawDetection, error) {
			return nil, cause
		},
	}
	svc := NewDetectionService(model, zaptest.NewLogger(t))

	_, err := svc.Detect(context.Background(), models.DetectionRequest{ImageData: pngBytes(t, 8, 8)})
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "inference: acquire session: timed out waiting for a session", err.Error())
}

func TestDetect_PassesRequestID(t *testing.T) {
	model := &fakeModel{
		infer: func(_ context.Context, _ image.Image, timings *models.ProcessingTimings) ([]models.RawDetection, error) {
			assert.Equal(t, "req-42", timings.RequestID)
			return nil, nil
		},
	}
	svc := NewDetectionService(model, zaptest.NewLogger(t))

	ctx := logger.WithRequestID(context.Background(), "req-42")
	_, err := svc.Detect(ctx, models.DetectionRequest{ImageData: pngBytes(t, 8, 8)})
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 2, roundInt(2.5))
	assert.Equal(t, 4, roundInt(3.5))
	assert.Equal(t, 3, roundInt(2.51))
	assert.Equal(t, 0.125, round3(0.1245001))
	assert.Equal(t, 1.0, round3(0.9996))
}
