package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/pdf-converter/internal/converter"
	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/service/conversion"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

const timeoutMessage = "Timeout: conversion took too long"

// ConversionService is what the handlers need from the conversion service.
type ConversionService interface {
	Decode(kind models.Kind, req *models.ConvertRequest) (*models.Job, error)
	Convert(ctx context.Context, job *models.Job) (*models.Output, error)
	Submit(ctx context.Context, job *models.Job) (*models.JobInfo, error)
	Status(ctx context.Context, id string) (*models.JobInfo, error)
	Result(ctx context.Context, id string) ([]byte, error)
	Cancel(ctx context.Context, id string) (*models.JobInfo, error)
	JobsEnabled() bool
}

type Handlers struct {
	Conversion *ConversionHandler
	Jobs       *JobHandler
	Health     *HealthHandler
}

func NewHandlers(service ConversionService, info ServiceInfo, log logger.Logger) *Handlers {
	return &Handlers{
		Conversion: NewConversionHandler(service, log),
		Jobs:       NewJobHandler(service, log),
		Health:     NewHealthHandler(info),
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, conversion.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, conversion.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, converter.ErrTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, conversion.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversion.ErrNotReady), errors.Is(err, conversion.ErrJobFinished):
		return http.StatusConflict
	case errors.Is(err, conversion.ErrQueueDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError logs err and writes the failure body with the mapped status.
func handleError(c *gin.Context, log logger.Logger, message string, err error) {
	status := statusFor(err)

	l := logger.FromContext(c.Request.Context(), log)
	fields := []logger.Field{
		logger.String("path", c.Request.URL.Path),
		logger.Int("status", status),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		l.Error(message, fields...)
	} else {
		l.Warn(message, fields...)
	}

	resp := models.ErrorResponse(err)
	if status == http.StatusRequestTimeout {
		resp.Error = timeoutMessage
	}
	c.AbortWithStatusJSON(status, resp)
}
