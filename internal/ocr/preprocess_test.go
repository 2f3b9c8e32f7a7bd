package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scan() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{230, 230, 230, 255}}, image.Point{}, draw.Src)
	for x := 0; x < 20; x++ {
		img.Set(x, 5, color.RGBA{40, 40, 40, 255})
	}
	return img
}

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]string{"grayscale", " Binarize ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"grayscale", "binarize"}, p.Names())

	p, err = ParsePipeline([]string{"default"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPipeline.Names(), p.Names())

	_, err = ParsePipeline([]string{"deskew"})
	assert.ErrorContains(t, err, "deskew")
}

func TestEmptyPipelineIsIdentity(t *testing.T) {
	img := scan()
	var p Pipeline
	assert.Same(t, img, p.Apply(img))
}

func TestBinarize(t *testing.T) {
	out := Binarize{Threshold: 128}.Apply(scan())

	gray, ok := out.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(255), gray.GrayAt(3, 2).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(3, 5).Y)
}

func TestPipelineKeepsBounds(t *testing.T) {
	p, err := ParsePipeline([]string{"grayscale", "contrast", "denoise", "sharpen", "binarize"})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), p.Apply(scan()).Bounds())
}
