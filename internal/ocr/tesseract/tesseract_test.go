//go:build tesseract

// Run with `go test -tags tesseract ./internal/ocr/tesseract` on a host with
// libtesseract and the eng traineddata installed.
package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf-converter/internal/ocr"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

func blankPage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	return img
}

func TestEngineWiring(t *testing.T) {
	steps, err := ocr.ParsePipeline([]string{"grayscale", "binarize"})
	require.NoError(t, err)

	e := NewEngine(steps, 300, logger.NewNop())
	assert.Equal(t, "tesseract", e.Name())
	assert.Equal(t, 300, e.dpi)
	assert.Equal(t, []string{"grayscale", "binarize"}, e.preprocess.Names())
	assert.NotEmpty(t, Version())
}

func TestRecognizeBlankPage(t *testing.T) {
	e := NewEngine(nil, 300, logger.NewNop())

	text, err := e.Recognize(context.Background(), blankPage(), []string{"eng"})
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))
}

func TestRecognizeHonoursCancelledContext(t *testing.T) {
	e := NewEngine(nil, 300, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Recognize(ctx, blankPage(), []string{"eng"})
	assert.ErrorIs(t, err, context.Canceled)
}
