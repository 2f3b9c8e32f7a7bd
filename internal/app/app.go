// Package app assembles the conversion service from configuration. It is
// shared by the HTTP server and the queue worker.
package app

import (
	"context"
	"fmt"

	"github.com/feichai0017/pdf-converter/api/handlers"
	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/internal/converter"
	"github.com/feichai0017/pdf-converter/internal/ocr"
	"github.com/feichai0017/pdf-converter/internal/ocr/tesseract"
	"github.com/feichai0017/pdf-converter/internal/render"
	"github.com/feichai0017/pdf-converter/internal/service/conversion"
	"github.com/feichai0017/pdf-converter/pkg/logger"
	"github.com/feichai0017/pdf-converter/pkg/queue"
	"github.com/feichai0017/pdf-converter/pkg/storage"
)

type App struct {
	Config  *config.Config
	Service *conversion.Service
	Queue   *queue.AsynqQueue
	Storage storage.Storage
	Info    handlers.ServiceInfo
	logger  logger.Logger
}

// NewLogger builds the process logger from the log section of cfg.
func NewLogger(cfg *config.Config, component string) (logger.Logger, error) {
	return logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(cfg.Log.OutputPaths),
		logger.WithErrorPaths(cfg.Log.ErrorPaths),
		logger.WithInitialFields(map[string]interface{}{
			"service":   cfg.Server.ServiceName,
			"component": component,
		}),
	)
}

// New wires converters, the OCR engine and, when the queue is enabled,
// redis and object storage.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	engine, err := newEngine(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ocr engine: %w", err)
	}

	registry := NewRegistry(cfg, engine, render.NewFitzOpener(), converter.NewExecRunner(log), log)

	a := &App{
		Config: cfg,
		Info: handlers.ServiceInfo{
			Name:            cfg.Server.ServiceName,
			Version:         cfg.Server.Version,
			WordBackend:     cfg.Converter.WordBackend,
			OCREngine:       engine.Name(),
			DefaultLanguage: cfg.OCR.DefaultLanguage,
		},
		logger: log,
	}

	var opts []conversion.Option
	if cfg.Queue.Enabled {
		a.Queue, err = queue.NewAsynqQueue(ctx, cfg.Queue, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize queue: %w", err)
		}
		a.Storage, err = storage.NewStorage(ctx, cfg.Storage, log)
		if err != nil {
			a.Queue.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		opts = append(opts, conversion.WithJobs(a.Queue, a.Storage))
	}

	a.Service = conversion.NewService(registry, conversion.ConfigFrom(cfg), log, opts...)
	a.Info.JobsEnabled = a.Service.JobsEnabled()

	log.Info("Conversion service initialized",
		logger.String("wordBackend", cfg.Converter.WordBackend),
		logger.String("ocrEngine", engine.Name()),
		logger.Bool("jobs", a.Info.JobsEnabled),
	)
	return a, nil
}

// NewRegistry registers one converter per kind.
func NewRegistry(cfg *config.Config, engine ocr.Engine, opener render.Opener, runner converter.Runner, log logger.Logger) *converter.Registry {
	c := cfg.Converter
	return converter.NewRegistry(log,
		converter.NewWordConverter(c, runner, log),
		converter.NewPPTXConverter(opener, c.SlideDPI, c.MaxPages, log),
		converter.NewTextConverter(opener, engine, converter.PlainTextLayer{}, converter.TextOptions{
			DPI:         c.OCRDPI,
			Concurrency: cfg.OCR.Concurrency,
			MaxPages:    c.MaxPages,
		}, log),
		converter.NewCompressConverter(c, runner, log),
		converter.NewImageConverter(opener, c.RenderConcurrency, c.MaxPages, log),
	)
}

func newEngine(ctx context.Context, cfg *config.Config, log logger.Logger) (ocr.Engine, error) {
	switch cfg.OCR.Engine {
	case config.OCREngineTextract:
		return ocr.NewTextractEngine(ctx, cfg.OCR.Textract, log)
	default:
		steps, err := ocr.ParsePipeline(cfg.OCR.Preprocess)
		if err != nil {
			return nil, err
		}
		log.Info("Using tesseract",
			logger.String("version", tesseract.Version()),
			logger.Strings("preprocess", steps.Names()),
		)
		return tesseract.NewEngine(steps, cfg.Converter.OCRDPI, log), nil
	}
}

// Close releases the queue connection, if any.
func (a *App) Close() {
	if a.Queue == nil {
		return
	}
	if err := a.Queue.Close(); err != nil {
		a.logger.Warn("Failed to close queue", logger.Error(err))
	}
}
