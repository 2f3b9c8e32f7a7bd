package converter

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/ocr"
	"github.com/feichai0017/pdf-converter/internal/render"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// TextConverter extracts text page by page, either through OCR on rendered
// pages or from the embedded text layer.
type TextConverter struct {
	opener      render.Opener
	engine      ocr.Engine
	textLayer   TextLayer
	dpi         int
	concurrency int
	maxPages    int
	logger      logger.Logger
}

type TextOptions struct {
	DPI         int
	Concurrency int
	MaxPages    int
}

func NewTextConverter(opener render.Opener, engine ocr.Engine, layer TextLayer, opts TextOptions, log logger.Logger) *TextConverter {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &TextConverter{
		opener:      opener,
		engine:      engine,
		textLayer:   layer,
		dpi:         opts.DPI,
		concurrency: opts.Concurrency,
		maxPages:    opts.MaxPages,
		logger:      log.Named("text"),
	}
}

func (c *TextConverter) Kind() models.Kind { return models.KindText }

// Engine names the OCR engine in use.
func (c *TextConverter) Engine() string { return c.engine.Name() }

// FormatPages joins per-page text into the document body.
func FormatPages(pages []string) string {
	blocks := make([]string, len(pages))
	for i, text := range pages {
		blocks[i] = fmt.Sprintf("--- Page %d ---\n%s\n", i+1, text)
	}
	return strings.Join(blocks, "\n")
}

func (c *TextConverter) Convert(ctx context.Context, ws *Workspace, job *models.Job) (*models.Output, error) {
	log := logger.FromContext(ctx, c.logger)

	var (
		pages []string
		err   error
	)
	switch job.Options.TextMode {
	case models.TextModeNative:
		log.Info("Reading embedded text layer", logger.String("filename", job.Filename))
		pages, err = c.textLayer.Pages(ws.InputPath())
	default:
		pages, err = c.recognize(ctx, log, ws, job.Options.Languages)
	}
	if err != nil {
		return nil, err
	}

	text := FormatPages(pages)
	log.Info("Text extraction complete",
		logger.Int("pages", len(pages)),
		logger.Int("characters", len(text)),
	)

	return &models.Output{
		Kind:     models.KindText,
		Filename: models.OutputFilename(job.Filename, models.KindText),
		Text:     text,
		Pages:    len(pages),
		Message:  "Text extraction completed successfully",
	}, nil
}

func (c *TextConverter) recognize(ctx context.Context, log logger.Logger, ws *Workspace, languages []string) ([]string, error) {
	doc, n, err := openPages(c.opener, ws.InputPath(), c.maxPages)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	log.Info("Running OCR",
		logger.Int("pages", n),
		logger.String("engine", c.engine.Name()),
		logger.Strings("languages", languages),
	)

	start := time.Now()
	results := make([]string, n)
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := doc.Image(i, float64(c.dpi))
			if err != nil {
				return pageError(i+1, err)
			}
			text, err := c.engine.Recognize(gctx, img, languages)
			if err != nil {
				return pageError(i+1, err)
			}
			results[i] = text
			log.Debug("Page recognized",
				logger.Int("page", i+1),
				logger.Int("completed", int(done.Add(1))),
				logger.Int("total", n),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("ocr failed: %w", err)
	}

	log.Info("OCR finished", logger.Duration("elapsed", time.Since(start)))
	return results, nil
}
