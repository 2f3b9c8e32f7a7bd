package conversion

import (
	"errors"
	"time"

	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/internal/converter"
	"github.com/feichai0017/pdf-converter/internal/utils/validator"
	"github.com/feichai0017/pdf-converter/pkg/logger"
	"github.com/feichai0017/pdf-converter/pkg/queue"
	"github.com/feichai0017/pdf-converter/pkg/storage"
)

var (
	ErrBadRequest    = errors.New("bad request")
	ErrTooLarge      = errors.New("payload too large")
	ErrNotFound      = errors.New("job not found")
	ErrNotReady      = errors.New("job has not finished")
	ErrJobFinished   = errors.New("job already finished")
	ErrJobFailed     = errors.New("job failed")
	ErrQueueDisabled = errors.New("asynchronous jobs are disabled")
)

// RequestError is a client error whose message is returned verbatim.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string { return e.Message }
func (e *RequestError) Unwrap() error { return e.Kind }

func badRequest(msg string) error {
	return &RequestError{Kind: ErrBadRequest, Message: msg}
}

type ServiceConfig struct {
	TempDir         string
	MaxFileSize     int64
	MaxConcurrent   int
	Timeout         time.Duration
	DefaultLanguage string
	QueuePriority   int
	RetentionPeriod time.Duration
}

// ConfigFrom derives the service settings from the application config.
func ConfigFrom(c *config.Config) *ServiceConfig {
	return &ServiceConfig{
		TempDir:         c.Converter.TempDir,
		MaxFileSize:     c.Converter.MaxFileSize,
		MaxConcurrent:   c.Converter.MaxConcurrent,
		Timeout:         c.Converter.Timeout,
		DefaultLanguage: c.OCR.DefaultLanguage,
		QueuePriority:   2,
		RetentionPeriod: c.Queue.RetentionPeriod,
	}
}

// Service decodes requests and runs conversions, either inline or through
// the job queue.
type Service struct {
	registry  *converter.Registry
	validator *validator.PDFValidator
	queue     queue.Queue
	storage   storage.Storage
	slots     chan struct{}
	config    *ServiceConfig
	logger    logger.Logger
}

type Option func(*Service)

// WithJobs enables asynchronous jobs backed by q and store.
func WithJobs(q queue.Queue, store storage.Storage) Option {
	return func(s *Service) {
		s.queue = q
		s.storage = store
	}
}

func NewService(registry *converter.Registry, cfg *ServiceConfig, log logger.Logger, opts ...Option) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	s := &Service{
		registry: registry,
		validator: validator.NewPDFValidator(log.Named("validator"), &validator.ValidatorConfig{
			MaxFileSize: cfg.MaxFileSize,
		}),
		slots:  make(chan struct{}, cfg.MaxConcurrent),
		config: cfg,
		logger: log.Named("conversion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JobsEnabled reports whether Submit and the job queries are available.
func (s *Service) JobsEnabled() bool {
	return s.queue != nil && s.storage != nil
}
