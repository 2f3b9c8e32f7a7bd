package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// WordConverter produces .docx files with pdf2docx or LibreOffice.
type WordConverter struct {
	runner  Runner
	backend string
	tool    string
	logger  logger.Logger
}

func NewWordConverter(cfg config.ConverterConfig, runner Runner, log logger.Logger) *WordConverter {
	tool := cfg.Pdf2docxPath
	if cfg.WordBackend == config.WordBackendLibreOffice {
		tool = cfg.LibreOfficePath
	}
	return &WordConverter{
		runner:  runner,
		backend: cfg.WordBackend,
		tool:    tool,
		logger:  log.Named("word"),
	}
}

func (c *WordConverter) Kind() models.Kind { return models.KindWord }

// Backend reports the configured tool family and the executable it runs.
func (c *WordConverter) Backend() (string, string) { return c.backend, c.tool }

func (c *WordConverter) Convert(ctx context.Context, ws *Workspace, job *models.Job) (*models.Output, error) {
	log := logger.FromContext(ctx, c.logger)

	var (
		args   []string
		output string
	)
	switch c.backend {
	case config.WordBackendLibreOffice:
		// soffice keeps the input's base name and only swaps the extension.
		output = ws.Path("input.docx")
		profile, err := filepath.Abs(ws.Path("lo-profile"))
		if err != nil {
			return nil, err
		}
		args = []string{
			"-env:UserInstallation=file://" + filepath.ToSlash(profile),
			"--headless",
			"--infilter=writer_pdf_import",
			"--convert-to", "docx:MS Word 2007 XML",
			"--outdir", ws.Dir(),
			ws.InputPath(),
		}
	default:
		output = ws.Path("output.docx")
		args = []string{"convert", ws.InputPath(), output}
	}

	log.Info("Converting PDF to Word",
		logger.String("filename", job.Filename),
		logger.String("backend", c.backend),
	)

	if _, err := c.runner.Run(ctx, c.tool, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", c.backend, err)
	}

	data, err := ws.ReadOutput(output)
	if err != nil {
		if errors.Is(err, ErrOutputMissing) {
			return nil, fmt.Errorf(".docx file was not generated: %w", err)
		}
		return nil, err
	}

	log.Info("DOCX generated", logger.Int("bytes", len(data)))

	return &models.Output{
		Kind:     models.KindWord,
		Filename: models.OutputFilename(job.Filename, models.KindWord),
		Data:     data,
		Message:  "Conversion completed successfully",
	}, nil
}
