package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/pdf-converter/internal/converter"
	"github.com/feichai0017/pdf-converter/internal/metrics"
	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/pkg/logger"
	"github.com/feichai0017/pdf-converter/pkg/queue"
)

// jobPayload is what travels through the queue. The PDF itself stays in
// object storage.
type jobPayload struct {
	Job      models.Job `json:"job"`
	InputKey string     `json:"inputKey"`
}

func inputKey(id string) string  { return fmt.Sprintf("jobs/%s/input.pdf", id) }
func resultKey(id string) string { return fmt.Sprintf("jobs/%s/result.json", id) }

// Submit stores the decoded PDF and enqueues the conversion.
func (s *Service) Submit(ctx context.Context, job *models.Job) (*models.JobInfo, error) {
	if !s.JobsEnabled() {
		return nil, ErrQueueDisabled
	}
	log := logger.FromContext(ctx, s.logger).With(logger.String("jobId", job.ID))

	key, err := s.storage.Store(ctx, bytes.NewReader(job.PDF), inputKey(job.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to store job input: %w", err)
	}

	payload, err := json.Marshal(jobPayload{Job: *job, InputKey: key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	now := time.Now()
	task := &queue.Task{
		ID:       job.ID,
		Type:     queue.TaskTypeConvert,
		Priority: s.config.QueuePriority,
		Payload:  payload,
		Metadata: map[string]string{
			"kind":     string(job.Kind),
			"filename": job.Filename,
			"checksum": job.Checksum,
		},
		CreatedAt: now,
	}

	status := &queue.TaskStatus{
		TaskID:    job.ID,
		Status:    queue.StatusPending,
		Metadata:  task.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.deleteInput(ctx, log, job.ID)
		return nil, err
	}

	metrics.IncJob(string(job.Kind), "submitted")
	log.Info("Job submitted",
		logger.String("kind", string(job.Kind)),
		logger.Int("bytes", len(job.PDF)),
	)
	return jobInfo(status), nil
}

// HandleJob runs a queued conversion. attempt starts at 1.
func (s *Service) HandleJob(ctx context.Context, task *queue.Task, attempt int) error {
	var p jobPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return badRequest(fmt.Sprintf("invalid job payload: %v", err))
	}
	job := &p.Job

	ctx = logger.ContextWithJobID(ctx, job.ID)
	log := logger.FromContext(ctx, s.logger)

	status, err := s.queue.GetTaskStatus(ctx, job.ID)
	if err != nil {
		return err
	}
	if status.Status == queue.StatusCancelled {
		log.Info("Skipping cancelled job")
		return nil
	}

	status.Status = queue.StatusRunning
	status.Attempts = attempt
	status.Error = ""
	status.UpdatedAt = time.Now()
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		log.Warn("Failed to save running status", logger.Error(err))
	}

	rc, err := s.storage.Get(ctx, p.InputKey)
	if err != nil {
		return fmt.Errorf("failed to load job input: %w", err)
	}
	job.PDF, err = io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("failed to read job input: %w", err)
	}

	out, err := s.Convert(ctx, job)
	if err != nil {
		return err
	}

	body, err := json.Marshal(models.NewResponse(out))
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if _, err := s.storage.Store(ctx, bytes.NewReader(body), resultKey(job.ID)); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	// Cancel may have landed while the converter ran.
	if current, err := s.queue.GetTaskStatus(ctx, job.ID); err == nil && current.Status == queue.StatusCancelled {
		log.Info("Job cancelled during conversion, discarding result")
		if err := s.storage.Delete(ctx, resultKey(job.ID)); err != nil {
			log.Warn("Failed to delete discarded result", logger.Error(err))
		}
		return nil
	}

	status.Status = queue.StatusCompleted
	status.Progress = 1
	status.UpdatedAt = time.Now()
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		return err
	}

	s.deleteInput(ctx, log, job.ID)
	metrics.IncJob(string(job.Kind), "completed")
	return nil
}

// FailJob records the final failure of a job. A cancelled job keeps its
// status.
func (s *Service) FailJob(ctx context.Context, task *queue.Task, attempt int, cause error) {
	log := logger.FromContext(logger.ContextWithJobID(ctx, task.ID), s.logger)

	status, err := s.queue.GetTaskStatus(ctx, task.ID)
	if err != nil {
		status = &queue.TaskStatus{TaskID: task.ID, Metadata: task.Metadata, CreatedAt: task.CreatedAt}
	}
	if status.Status == queue.StatusCancelled {
		return
	}

	status.Status = queue.StatusFailed
	status.Error = cause.Error()
	status.Attempts = attempt
	status.UpdatedAt = time.Now()
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		log.Error("Failed to save failed status", logger.Error(err))
	}

	s.deleteInput(ctx, log, task.ID)
	metrics.IncJob(task.Metadata["kind"], "failed")
	log.Error("Job failed", logger.Int("attempts", attempt), logger.Error(cause))
}

// Permanent reports whether retrying cannot change the outcome.
func Permanent(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, converter.ErrInvalidInput) ||
		errors.Is(err, converter.ErrTimeout) ||
		errors.Is(err, context.Canceled)
}

func (s *Service) Status(ctx context.Context, id string) (*models.JobInfo, error) {
	if !s.JobsEnabled() {
		return nil, ErrQueueDisabled
	}
	status, err := s.queue.GetTaskStatus(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return jobInfo(status), nil
}

// Result returns the stored JSON response of a completed job.
func (s *Service) Result(ctx context.Context, id string) ([]byte, error) {
	info, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}

	switch info.Status {
	case models.StatusCompleted:
	case models.StatusFailed:
		return nil, fmt.Errorf("%w: %s", ErrJobFailed, info.Error)
	case models.StatusCancelled:
		return nil, fmt.Errorf("%w: cancelled", ErrJobFinished)
	default:
		return nil, fmt.Errorf("%w: status is %s", ErrNotReady, info.Status)
	}

	rc, err := s.storage.Get(ctx, resultKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Service) Cancel(ctx context.Context, id string) (*models.JobInfo, error) {
	info, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if info.Status.Terminal() {
		return nil, fmt.Errorf("%w: status is %s", ErrJobFinished, info.Status)
	}

	if err := s.queue.CancelTask(ctx, id); err != nil && !errors.Is(err, queue.ErrTaskNotFound) {
		return nil, err
	}

	status, err := s.queue.GetTaskStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	status.Status = queue.StatusCancelled
	status.UpdatedAt = time.Now()
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		return nil, err
	}

	log := logger.FromContext(logger.ContextWithJobID(ctx, id), s.logger)
	s.deleteInput(ctx, log, id)
	metrics.IncJob(string(info.Kind), "cancelled")
	log.Info("Job cancelled")
	return jobInfo(status), nil
}

// CleanupExpired removes stored inputs and results older than the
// retention period.
func (s *Service) CleanupExpired(ctx context.Context) error {
	if !s.JobsEnabled() {
		return ErrQueueDisabled
	}
	return s.storage.CleanupBefore(ctx, time.Now().Add(-s.config.RetentionPeriod))
}

// RunCleanup calls CleanupExpired every interval until ctx ends.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 || !s.JobsEnabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CleanupExpired(ctx); err != nil {
				s.logger.Error("Cleanup failed", logger.Error(err))
			}
		}
	}
}

func (s *Service) deleteInput(ctx context.Context, log logger.Logger, id string) {
	if err := s.storage.Delete(ctx, inputKey(id)); err != nil {
		log.Warn("Failed to delete job input", logger.Error(err))
	}
}

func jobInfo(status *queue.TaskStatus) *models.JobInfo {
	return &models.JobInfo{
		ID:        status.TaskID,
		Kind:      models.Kind(status.Metadata["kind"]),
		Status:    models.JobStatus(status.Status),
		Filename:  status.Metadata["filename"],
		Error:     status.Error,
		Attempts:  status.Attempts,
		CreatedAt: status.CreatedAt,
		UpdatedAt: status.UpdatedAt,
	}
}
