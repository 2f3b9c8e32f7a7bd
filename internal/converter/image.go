package converter

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/render"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// ImageConverter rasterizes every page to PNG or JPEG.
type ImageConverter struct {
	opener      render.Opener
	concurrency int
	maxPages    int
	logger      logger.Logger
}

func NewImageConverter(opener render.Opener, concurrency, maxPages int, log logger.Logger) *ImageConverter {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ImageConverter{
		opener:      opener,
		concurrency: concurrency,
		maxPages:    maxPages,
		logger:      log.Named("image"),
	}
}

func (c *ImageConverter) Kind() models.Kind { return models.KindImage }

func (c *ImageConverter) Convert(ctx context.Context, ws *Workspace, job *models.Job) (*models.Output, error) {
	log := logger.FromContext(ctx, c.logger)

	opts := job.Options
	if opts.ImageFormat == "" {
		opts.ImageFormat = models.ImageFormatPNG
	}
	if opts.Scale <= 0 {
		opts.Scale = models.DefaultImageScale
	}
	if opts.ImageQuality <= 0 {
		opts.ImageQuality = models.DefaultImageQuality
	}
	dpi := 72 * opts.Scale

	doc, n, err := openPages(c.opener, ws.InputPath(), c.maxPages)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	log.Info("Rendering pages",
		logger.String("filename", job.Filename),
		logger.Int("pages", n),
		logger.String("format", string(opts.ImageFormat)),
		logger.Float64("dpi", dpi),
	)

	images := make([]models.PageImage, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := doc.Image(i, dpi)
			if err != nil {
				return pageError(i+1, err)
			}

			var data []byte
			if opts.ImageFormat == models.ImageFormatJPG {
				data, err = render.EncodeJPEG(img, opts.ImageQuality)
			} else {
				data, err = render.EncodePNG(img)
			}
			if err != nil {
				return pageError(i+1, err)
			}

			b := img.Bounds()
			images[i] = models.PageImage{
				Page:   i + 1,
				Width:  b.Dx(),
				Height: b.Dy(),
				Data:   data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("render failed: %w", err)
	}

	return &models.Output{
		Kind:        models.KindImage,
		Filename:    job.Filename,
		Pages:       n,
		ImageFormat: opts.ImageFormat,
		Images:      images,
		Message:     "Conversion completed successfully",
	}, nil
}
