package detections

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Letterbox maps a source image into a square model input by an aspect
// preserving resize and a centered gray border, and maps boxes back.
type Letterbox struct {
	Size             int
	Gain             float64
	ScaledW, ScaledH int
	PadX, PadY       int
	SrcW, SrcH       int
}

func NewLetterbox(srcW, srcH, size int) Letterbox {
	gain := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	w := max(1, int(math.Round(float64(srcW)*gain)))
	h := max(1, int(math.Round(float64(srcH)*gain)))
	return Letterbox{
		Size:    size,
		Gain:    gain,
		ScaledW: w,
		ScaledH: h,
		PadX:    (size - w) / 2,
		PadY:    (size - h) / 2,
		SrcW:    srcW,
		SrcH:    srcH,
	}
}

func (l Letterbox) Apply(img image.Image) *image.NRGBA {
	resized := imaging.Resize(img, l.ScaledW, l.ScaledH, imaging.Linear)
	canvas := imaging.New(l.Size, l.Size, color.NRGBA{R: PadValue, G: PadValue, B: PadValue, A: 255})
	return imaging.Paste(canvas, resized, image.Pt(l.PadX, l.PadY))
}

// Restore converts an x1,y1,x2,y2 box from model input space to source pixels,
// clipped to the source bounds.
func (l Letterbox) Restore(box [4]float32) [4]float32 {
	x1 := (float64(box[0]) - float64(l.PadX)) / l.Gain
	y1 := (float64(box[1]) - float64(l.PadY)) / l.Gain
	x2 := (float64(box[2]) - float64(l.PadX)) / l.Gain
	y2 := (float64(box[3]) - float64(l.PadY)) / l.Gain

	w, h := float64(l.SrcW), float64(l.SrcH)
	return [4]float32{
		float32(clamp(x1, 0, w)),
		float32(clamp(y1, 0, h)),
		float32(clamp(x2, 0, w)),
		float32(clamp(y2, 0, h)),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
