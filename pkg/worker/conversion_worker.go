package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/pkg/logger"
	"github.com/feichai0017/pdf-converter/pkg/queue"
)

// JobHandler runs queued conversions.
type JobHandler interface {
	HandleJob(ctx context.Context, task *queue.Task, attempt int) error
	FailJob(ctx context.Context, task *queue.Task, attempt int, cause error)
}

type ConversionWorker struct {
	BaseWorker
	jobs      JobHandler
	permanent func(error) bool
}

// NewConversionWorker consumes pdf:convert tasks. permanent decides which
// errors skip the remaining retries.
func NewConversionWorker(cfg config.QueueConfig, jobs JobHandler, permanent func(error) bool, log logger.Logger) *ConversionWorker {
	log = log.Named("worker")
	server := asynq.NewServer(
		queue.RedisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * 30 * time.Second
			},
			IsFailure: func(err error) bool {
				return !permanent(err)
			},
			Logger: asynqLogger{log},
		},
	)

	w := &ConversionWorker{
		BaseWorker: BaseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			logger: log,
		},
		jobs:      jobs,
		permanent: permanent,
	}
	w.mux.HandleFunc(queue.TaskTypeConvert, w.handleConvert)
	return w
}

func (w *ConversionWorker) handleConvert(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task", logger.Error(err))
		return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	attempt := retried + 1

	log := w.logger.With(
		logger.String("taskId", task.ID),
		logger.String("kind", task.Metadata["kind"]),
		logger.Int("attempt", attempt),
	)
	log.Info("Processing conversion task", logger.Any("metadata", task.Metadata))

	err := w.jobs.HandleJob(ctx, &task, attempt)
	if err == nil {
		log.Info("Conversion task completed")
		return nil
	}

	if w.permanent(err) {
		w.jobs.FailJob(ctx, &task, attempt, err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if retried >= maxRetry {
		w.jobs.FailJob(ctx, &task, attempt, err)
		return err
	}

	log.Warn("Conversion task will be retried", logger.Error(err))
	return err
}

func (w *ConversionWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	w.logger.Info("Worker started")

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// asynqLogger routes asynq's own logging through ours.
type asynqLogger struct {
	l logger.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal(fmt.Sprint(args...)) }
