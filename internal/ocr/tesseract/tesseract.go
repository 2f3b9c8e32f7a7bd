// Package tesseract recognizes text with a local Tesseract installation.
package tesseract

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/pdf-converter/internal/ocr"
	"github.com/feichai0017/pdf-converter/internal/render"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// Engine implements ocr.Engine. Each call gets its own client so pages can
// be recognized in parallel.
type Engine struct {
	clientFactory func() *gosseract.Client
	preprocess    ocr.Pipeline
	dpi           int
	logger        logger.Logger
}

func NewEngine(preprocess ocr.Pipeline, dpi int, log logger.Logger) *Engine {
	return &Engine{
		clientFactory: gosseract.NewClient,
		preprocess:    preprocess,
		dpi:           dpi,
		logger:        log.Named("tesseract"),
	}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img = e.preprocess.Apply(img)

	data, err := render.EncodePNG(img)
	if err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// Version reports the linked Tesseract version, for the service index.
func Version() string {
	return gosseract.Version()
}
