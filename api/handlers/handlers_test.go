package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf-converter/internal/converter"
	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/service/conversion"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

type fakeService struct {
	decodeErr  error
	convertErr error
	output     *models.Output
	jobs       map[string]*models.JobInfo
	results    map[string][]byte
	resultErr  error
	cancelErr  error
	decoded    []models.Kind
	lastReq    *models.ConvertRequest
}

func newFakeService() *fakeService {
	return &fakeService{
		jobs:    make(map[string]*models.JobInfo),
		results: make(map[string][]byte),
	}
}

func (s *fakeService) Decode(kind models.Kind, req *models.ConvertRequest) (*models.Job, error) {
	s.decoded = append(s.decoded, kind)
	s.lastReq = req
	if s.decodeErr != nil {
		return nil, s.decodeErr
	}
	return &models.Job{ID: "job-1", Kind: kind, Filename: req.Filename, PDF: []byte("%PDF-1.4")}, nil
}

func (s *fakeService) Convert(_ context.Context, job *models.Job) (*models.Output, error) {
	if s.convertErr != nil {
		return nil, s.convertErr
	}
	return s.output, nil
}

func (s *fakeService) Submit(_ context.Context, job *models.Job) (*models.JobInfo, error) {
	info := &models.JobInfo{ID: job.ID, Kind: job.Kind, Status: models.StatusPending, Filename: job.Filename}
	s.jobs[job.ID] = info
	return info, nil
}

func (s *fakeService) Status(_ context.Context, id string) (*models.JobInfo, error) {
	info, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", conversion.ErrNotFound, id)
	}
	return info, nil
}

func (s *fakeService) Result(_ context.Context, id string) ([]byte, error) {
	if s.resultErr != nil {
		return nil, s.resultErr
	}
	return s.results[id], nil
}

func (s *fakeService) Cancel(_ context.Context, id string) (*models.JobInfo, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	info := s.jobs[id]
	info.Status = models.StatusCancelled
	return info, nil
}

func (s *fakeService) JobsEnabled() bool { return true }

func newRouter(svc ConversionService, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(svc, ServiceInfo{Name: "pdf-converter", Version: "4.1.0", WordBackend: "pdf2docx", OCREngine: "tesseract", DefaultLanguage: "por+eng", JobsEnabled: true}, log)

	r := gin.New()
	r.POST("/convert-pdf-to-word", h.Conversion.Convert(models.KindWord))
	r.POST("/convert-pdf-to-text", h.Conversion.Convert(models.KindText))
	r.POST("/jobs/:kind", h.Jobs.Submit)
	r.GET("/jobs/:id", h.Jobs.Status)
	r.GET("/jobs/:id/result", h.Jobs.Result)
	r.DELETE("/jobs/:id", h.Jobs.Cancel)
	r.GET("/health", h.Health.Health)
	r.GET("/", h.Health.Index)
	return r
}

func do(r http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestConvertSuccess(t *testing.T) {
	svc := newFakeService()
	svc.output = &models.Output{
		Kind:     models.KindWord,
		Filename: "report.docx",
		Data:     []byte("docx"),
		Message:  "Conversion completed successfully",
	}
	r := newRouter(svc, logger.NewNop())

	w := do(r, http.MethodPost, "/convert-pdf-to-word", "application/json", `{"pdfBase64":"x","filename":"report"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "report.docx", body["filename"])
	assert.Equal(t, "ZG9jeA==", body["data"])
	assert.Equal(t, float64(4), body["size_bytes"])
	assert.Equal(t, []models.Kind{models.KindWord}, svc.decoded)
}

func TestConvertRequiresJSON(t *testing.T) {
	r := newRouter(newFakeService(), logger.NewNop())

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"form body", "application/x-www-form-urlencoded", "pdfBase64=x"},
		{"no content type", "", `{"pdfBase64":"x"}`},
		{"malformed json", "application/json", `{"pdfBase64":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/convert-pdf-to-word", tt.contentType, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "Request must be JSON", body["error"])
		})
	}
}

func TestSubmitImageWithNumericQuality(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc, logger.NewNop())

	w := do(r, http.MethodPost, "/jobs/image", "application/json",
		`{"pdfBase64":"x","format":"jpg","filename":"deck","quality":92,"scale":2}`)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.NotNil(t, svc.lastReq)
	assert.Equal(t, 92, svc.lastReq.ImageQuality)
	assert.Equal(t, "jpg", svc.lastReq.Format)
	assert.Equal(t, 2.0, svc.lastReq.Scale)
}

func TestConvertReportsFieldTypeErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"scale as text", `{"pdfBase64":"x","scale":"big"}`, "scale must be a number"},
		{"filename as number", `{"pdfBase64":"x","filename":7}`, "filename must be a string"},
		{"fractional quality", `{"pdfBase64":"x","quality":92.5}`, "quality must be a whole number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			r := newRouter(svc, logger.NewNop())

			w := do(r, http.MethodPost, "/convert-pdf-to-word", "application/json", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeBody(t, w)["error"])
			assert.Empty(t, svc.decoded)
		})
	}
}

func TestConvertErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		decodeErr error
		convErr   error
		status    int
		message   string
	}{
		{
			name:      "missing field",
			decodeErr: &conversion.RequestError{Kind: conversion.ErrBadRequest, Message: "pdfBase64 field is required"},
			status:    http.StatusBadRequest,
			message:   "pdfBase64 field is required",
		},
		{
			name:      "too large",
			decodeErr: &conversion.RequestError{Kind: conversion.ErrTooLarge, Message: "file size exceeds maximum allowed"},
			status:    http.StatusRequestEntityTooLarge,
			message:   "file size exceeds maximum allowed",
		},
		{
			name:    "timeout",
			convErr: fmt.Errorf("pdf2docx: %w", converter.ErrTimeout),
			status:  http.StatusRequestTimeout,
			message: "Timeout: conversion took too long",
		},
		{
			name:    "tool failure",
			convErr: errors.New("pdf2docx exited with status 1"),
			status:  http.StatusInternalServerError,
			message: "pdf2docx exited with status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.decodeErr = tt.decodeErr
			svc.convertErr = tt.convErr
			log := logger.NewTestLogger()
			r := newRouter(svc, log)

			w := do(r, http.MethodPost, "/convert-pdf-to-word", "application/json", `{"pdfBase64":"x"}`)

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
			if tt.status >= http.StatusInternalServerError {
				assert.True(t, log.HasMessage("ERROR", "Conversion failed"))
			}
		})
	}
}

func TestJobEndpoints(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc, logger.NewNop())

	w := do(r, http.MethodPost, "/jobs/text", "application/json", `{"pdfBase64":"x","filename":"scan"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/jobs/job-1", w.Header().Get("Location"))
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "job-1", body["jobId"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "text", body["kind"])

	w = do(r, http.MethodGet, "/jobs/job-1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decodeBody(t, w)["status"])

	svc.results["job-1"] = []byte(`{"success":true,"text":"hello"}`)
	w = do(r, http.MethodGet, "/jobs/job-1/result", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"text":"hello"}`, w.Body.String())

	w = do(r, http.MethodDelete, "/jobs/job-1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeBody(t, w)["status"])
}

func TestJobEndpointErrors(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc, logger.NewNop())

	w := do(r, http.MethodPost, "/jobs/excel", "application/json", `{"pdfBase64":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.decoded)

	w = do(r, http.MethodGet, "/jobs/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.resultErr = fmt.Errorf("%w: status is running", conversion.ErrNotReady)
	w = do(r, http.MethodGet, "/jobs/job-1/result", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	svc.cancelErr = fmt.Errorf("%w: completed", conversion.ErrJobFinished)
	w = do(r, http.MethodDelete, "/jobs/job-1", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(ServiceInfo{Name: "pdf-converter"})
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.GET("/health", h.Health)

	w := do(r, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "pdf-converter", body["service"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["timestamp"])
}

func TestIndexListsEndpoints(t *testing.T) {
	r := newRouter(newFakeService(), logger.NewNop())

	w := do(r, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "4.1.0", body["version"])
	assert.Equal(t, "por+eng", body["ocr_languages"])
	endpoints, ok := body["endpoints"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, endpoints, "/convert-pdf-to-pptx")
	assert.Contains(t, endpoints, "/compress-pdf")
	assert.Contains(t, endpoints, "/jobs/:id/result")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(conversion.ErrQueueDisabled))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(&http.MaxBytesError{Limit: 10}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(conversion.ErrJobFailed))
}
