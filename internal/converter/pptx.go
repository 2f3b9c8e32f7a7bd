package converter

import (
	"context"
	"fmt"
	"os"

	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/pptx"
	"github.com/feichai0017/pdf-converter/internal/render"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// PPTXConverter renders every page to PNG and places each one on its own
// slide. The slide size follows the first page.
type PPTXConverter struct {
	opener   render.Opener
	dpi      int
	maxPages int
	logger   logger.Logger
}

func NewPPTXConverter(opener render.Opener, dpi, maxPages int, log logger.Logger) *PPTXConverter {
	return &PPTXConverter{
		opener:   opener,
		dpi:      dpi,
		maxPages: maxPages,
		logger:   log.Named("pptx"),
	}
}

func (c *PPTXConverter) Kind() models.Kind { return models.KindPPTX }

func (c *PPTXConverter) Convert(ctx context.Context, ws *Workspace, job *models.Job) (*models.Output, error) {
	log := logger.FromContext(ctx, c.logger)

	doc, n, err := openPages(c.opener, ws.InputPath(), c.maxPages)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	log.Info("Converting PDF to slides",
		logger.String("filename", job.Filename),
		logger.Int("pages", n),
		logger.Int("dpi", c.dpi),
	)

	output := ws.Path("output.pptx")
	if err := c.write(ctx, doc, n, output); err != nil {
		return nil, err
	}

	data, err := ws.ReadOutput(output)
	if err != nil {
		return nil, fmt.Errorf(".pptx file was not generated: %w", err)
	}

	log.Info("PPTX generated", logger.Int("bytes", len(data)))

	return &models.Output{
		Kind:     models.KindPPTX,
		Filename: models.OutputFilename(job.Filename, models.KindPPTX),
		Data:     data,
		Pages:    n,
		Message:  "Conversion completed successfully",
	}, nil
}

func (c *PPTXConverter) write(ctx context.Context, doc render.Document, n int, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create presentation: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close presentation: %w", cerr)
		}
	}()

	var w *pptx.Writer
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		img, err := doc.Image(i, float64(c.dpi))
		if err != nil {
			return pageError(i+1, err)
		}
		if w == nil {
			b := img.Bounds()
			cx, cy := pptx.SlideSize(b.Dx(), b.Dy(), float64(c.dpi))
			w = pptx.NewWriter(f, cx, cy)
		}

		png, err := render.EncodePNG(img)
		if err != nil {
			return pageError(i+1, err)
		}
		if err := w.AddSlide(png); err != nil {
			return err
		}
	}
	return w.Close()
}
