package render

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(testImage(20, 10))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	decoded, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 20, decoded.Bounds().Dx())
	assert.Equal(t, 10, decoded.Bounds().Dy())
}

func TestEncodeJPEG(t *testing.T) {
	low, err := EncodeJPEG(testImage(64, 64), 10)
	require.NoError(t, err)
	high, err := EncodeJPEG(testImage(64, 64), 100)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(low, []byte{0xFF, 0xD8}))
	assert.Less(t, len(low), len(high))
}

func TestFitzOpenerMissingFile(t *testing.T) {
	_, err := NewFitzOpener().Open("/nonexistent/input.pdf")
	assert.Error(t, err)
}
