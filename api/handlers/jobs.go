package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/service/conversion"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

type JobHandler struct {
	service ConversionService
	logger  logger.Logger
}

type JobResponse struct {
	Success bool `json:"success"`
	*models.JobInfo
}

func NewJobHandler(service ConversionService, log logger.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  log.Named("jobs"),
	}
}

// Submit accepts the same body as the synchronous endpoint and answers 202
// with the job ID.
func (h *JobHandler) Submit(c *gin.Context) {
	kind, err := models.ParseKind(c.Param("kind"))
	if err != nil {
		handleError(c, h.logger, "Unknown conversion", &conversion.RequestError{Kind: conversion.ErrBadRequest, Message: err.Error()})
		return
	}

	req, err := bindRequest(c)
	if err != nil {
		handleError(c, h.logger, "Invalid request", err)
		return
	}

	job, err := h.service.Decode(kind, req)
	if err != nil {
		handleError(c, h.logger, "Invalid request", err)
		return
	}

	info, err := h.service.Submit(c.Request.Context(), job)
	if err != nil {
		handleError(c, h.logger, "Failed to submit job", err)
		return
	}

	c.Header("Location", "/jobs/"+info.ID)
	c.JSON(http.StatusAccepted, JobResponse{Success: true, JobInfo: info})
}

func (h *JobHandler) Status(c *gin.Context) {
	info, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, "Failed to get status", err)
		return
	}
	c.JSON(http.StatusOK, JobResponse{Success: true, JobInfo: info})
}

// Result returns the stored response body of a completed job unchanged.
func (h *JobHandler) Result(c *gin.Context) {
	body, err := h.service.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, "Failed to get result", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *JobHandler) Cancel(c *gin.Context) {
	info, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, "Failed to cancel job", err)
		return
	}
	c.JSON(http.StatusOK, JobResponse{Success: true, JobInfo: info})
}
