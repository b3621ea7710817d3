package detections

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLetterbox(t *testing.T) {
	tests := []struct {
		name             string
		srcW, srcH, size int
		gain             float64
		scaledW, scaledH int
		padX, padY       int
	}{
		{name: "landscape vga", srcW: 640, srcH: 480, size: 640, gain: 1, scaledW: 640, scaledH: 480, padX: 0, padY: 80},
		{name: "portrait", srcW: 240, srcH: 320, size: 640, gain: 2, scaledW: 480, scaledH: 640, padX: 80, padY: 0},
		{name: "square downscale", srcW: 1280, srcH: 1280, size: 640, gain: 0.5, scaledW: 640, scaledH: 640},
		{name: "uxga", srcW: 1600, srcH: 1200, size: 640, gain: 0.4, scaledW: 640, scaledH: 480, padY: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb := NewLetterbox(tt.srcW, tt.srcH, tt.size)
			assert.InDelta(t, tt.gain, lb.Gain, 1e-9)
			assert.Equal(t, tt.scaledW, lb.ScaledW)
			assert.Equal(t, tt.scaledH, lb.ScaledH)
			assert.Equal(t, tt.padX, lb.PadX)
			assert.Equal(t, tt.padY, lb.PadY)
		})
	}
}

func TestLetterbox_Apply(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	lb := NewLetterbox(64, 32, 64)
	out := lb.Apply(src)

	require.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())
	assert.Equal(t, color.NRGBA{R: PadValue, G: PadValue, B: PadValue, A: 255}, out.NRGBAAt(10, 5))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(10, 32))
	assert.Equal(t, color.NRGBA{R: PadValue, G: PadValue, B: PadValue, A: 255}, out.NRGBAAt(10, 60))
}

func TestLetterbox_Restore(t *testing.T) {
	lb := NewLetterbox(1600, 1200, 640)

	got := lb.Restore([4]float32{100, 180, 300, 380})
	assert.InDelta(t, 250, got[0], 1e-3)
	assert.InDelta(t, 250, got[1], 1e-3)
	assert.InDelta(t, 750, got[2], 1e-3)
	assert.InDelta(t, 750, got[3], 1e-3)
}

func TestLetterbox_RestoreClipsToImage(t *testing.T) {
	lb := NewLetterbox(640, 480, 640)

	got := lb.Restore([4]float32{-20, 50, 700, 600})
	assert.Equal(t, [4]float32{0, 0, 640, 480}, got)
	assert.LessOrEqual(t, got[0], got[2])
	assert.LessOrEqual(t, got[1], got[3])
}
