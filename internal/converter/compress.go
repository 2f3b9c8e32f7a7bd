package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// CompressConverter rewrites PDFs with Ghostscript's pdfwrite device.
type CompressConverter struct {
	runner    Runner
	gs        string
	timeout   time.Duration
	pageCount func(path string) (int, error)
	logger    logger.Logger
}

func NewCompressConverter(cfg config.ConverterConfig, runner Runner, log logger.Logger) *CompressConverter {
	return &CompressConverter{
		runner:    runner,
		gs:        cfg.GhostscriptPath,
		timeout:   cfg.CompressTimeout,
		pageCount: api.PageCountFile,
		logger:    log.Named("compress"),
	}
}

func (c *CompressConverter) Kind() models.Kind { return models.KindCompress }

// GhostscriptArgs returns the fixed pdfwrite invocation for a quality preset.
func GhostscriptArgs(quality models.Quality, in, out string) []string {
	return []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/" + string(quality),
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-dDetectDuplicateImages=true",
		"-dCompressFonts=true",
		"-r150",
		"-sOutputFile=" + out,
		in,
	}
}

func (c *CompressConverter) Convert(ctx context.Context, ws *Workspace, job *models.Job) (*models.Output, error) {
	log := logger.FromContext(ctx, c.logger)

	quality := job.Options.Quality
	if quality == "" {
		quality = models.QualityEbook
	}
	if !quality.Valid() {
		return nil, invalidInput("unsupported quality %q", quality)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output := ws.Path("compressed.pdf")
	log.Info("Compressing PDF",
		logger.String("filename", job.Filename),
		logger.String("quality", string(quality)),
		logger.Int("originalBytes", len(job.PDF)),
	)

	if _, err := c.runner.Run(ctx, c.gs, GhostscriptArgs(quality, ws.InputPath(), output)...); err != nil {
		return nil, fmt.Errorf("ghostscript: %w", err)
	}

	data, err := ws.ReadOutput(output)
	if err != nil {
		return nil, fmt.Errorf("compressed PDF was not generated: %w", err)
	}

	out := &models.Output{
		Kind:         models.KindCompress,
		Filename:     models.OutputFilename(job.Filename, models.KindCompress),
		Data:         data,
		OriginalSize: len(job.PDF),
		Quality:      quality,
		Message:      "Compression completed successfully",
	}

	if pages, err := c.pageCount(output); err != nil {
		log.Warn("Could not count pages of compressed PDF", logger.Error(err))
	} else {
		out.Pages = pages
	}

	log.Info("PDF compressed",
		logger.Int("compressedBytes", len(data)),
		logger.Float64("ratio", models.CompressionRatio(out.OriginalSize, len(data))),
	)
	return out, nil
}
