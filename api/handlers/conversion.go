package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/service/conversion"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

var errNotJSON = &conversion.RequestError{Kind: conversion.ErrBadRequest, Message: "Request must be JSON"}

type ConversionHandler struct {
	service ConversionService
	logger  logger.Logger
}

func NewConversionHandler(service ConversionService, log logger.Logger) *ConversionHandler {
	return &ConversionHandler{
		service: service,
		logger:  log.Named("conversion"),
	}
}

// Convert returns the handler for one synchronous conversion endpoint.
func (h *ConversionHandler) Convert(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
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

		logger.FromContext(c.Request.Context(), h.logger).Info("Starting conversion",
			logger.String("kind", string(kind)),
			logger.String("filename", job.Filename),
			logger.Int("bytes", len(job.PDF)),
		)

		out, err := h.service.Convert(c.Request.Context(), job)
		if err != nil {
			handleError(c, h.logger, "Conversion failed", err)
			return
		}

		c.JSON(http.StatusOK, models.NewResponse(out))
	}
}

// bindRequest reads the JSON body. Oversized bodies keep their
// *http.MaxBytesError so they map to 413; a field of the wrong type is
// reported by name.
func bindRequest(c *gin.Context) (*models.ConvertRequest, error) {
	if c.ContentType() != binding.MIMEJSON {
		return nil, errNotJSON
	}

	var req models.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &conversion.RequestError{
				Kind:    conversion.ErrBadRequest,
				Message: fmt.Sprintf("%s must be a %s", typeErr.Field, jsonType(typeErr.Type)),
			}
		}
		return nil, errNotJSON
	}
	return &req, nil
}

func jsonType(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "whole number"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "value"
	}
}
