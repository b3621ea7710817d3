package decoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	return img
}

func TestDecode(t *testing.T) {
	var pngBuf, jpegBuf, bmpBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, testImage()))
	require.NoError(t, jpeg.Encode(&jpegBuf, testImage(), &jpeg.Options{Quality: 90}))
	require.NoError(t, bmp.Encode(&bmpBuf, testImage()))

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{name: "png", data: pngBuf.Bytes(), format: "png"},
		{name: "jpeg", data: jpegBuf.Bytes(), format: "jpeg"},
		{name: "bmp", data: bmpBuf.Bytes(), format: "bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, 16, img.Bounds().Dx())
			assert.Equal(t, 8, img.Bounds().Dy())
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, testImage()))
	truncated := pngBuf.Bytes()[:pngBuf.Len()/2]

	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{name: "empty", data: nil, wantErr: "empty image data"},
		{name: "text", data: []byte("hello, this is not an image"), wantErr: "detected text/plain"},
		{name: "garbage", data: []byte{0x00, 0x01, 0x02, 0x03}, wantErr: "image: unknown format"},
		{name: "truncated png", data: truncated, wantErr: "detected image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := Decode(tt.data)
			require.Error(t, err)
			assert.Nil(t, img)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
