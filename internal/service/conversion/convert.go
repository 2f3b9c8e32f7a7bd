package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feichai0017/pdf-converter/internal/converter"
	"github.com/feichai0017/pdf-converter/internal/metrics"
	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// Convert runs job in a fresh workspace. At most MaxConcurrent conversions
// run at once; the workspace is removed on every path.
func (s *Service) Convert(ctx context.Context, job *models.Job) (*models.Output, error) {
	log := logger.FromContext(ctx, s.logger).With(
		logger.String("kind", string(job.Kind)),
		logger.String("filename", job.Filename),
		logger.String("checksum", job.Checksum),
	)

	conv, err := s.registry.Get(job.Kind)
	if err != nil {
		return nil, err
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.slots }()

	metrics.IncInFlight()
	defer metrics.DecInFlight()
	metrics.ObserveInput(string(job.Kind), len(job.PDF))

	start := time.Now()
	out, err := s.run(ctx, conv, job, log)
	elapsed := time.Since(start)

	result := resultLabel(err)
	metrics.ObserveConversion(string(job.Kind), result, elapsed)

	if err != nil {
		log.Error("Conversion failed",
			logger.String("result", result),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
		return nil, err
	}

	metrics.AddPages(string(job.Kind), out.Pages)
	log.Info("Conversion completed",
		logger.Int("inputBytes", len(job.PDF)),
		logger.Int("pages", out.Pages),
		logger.Duration("elapsed", elapsed),
	)
	return out, nil
}

func (s *Service) run(ctx context.Context, conv converter.Converter, job *models.Job, log logger.Logger) (*models.Output, error) {
	ws, err := converter.NewWorkspace(s.config.TempDir, log)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	if err := ws.WriteInput(job.PDF); err != nil {
		return nil, err
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	out, err := conv.Convert(ctx, ws, job)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// classify maps converter failures onto the errors the API reports.
func classify(err error) error {
	switch {
	case errors.Is(err, converter.ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", converter.ErrTimeout, err)
	case errors.Is(err, converter.ErrInvalidInput):
		return &RequestError{Kind: ErrBadRequest, Message: err.Error()}
	default:
		return err
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, converter.ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
