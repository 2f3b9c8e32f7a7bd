package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ServiceInfo describes the running service for the index page.
type ServiceInfo struct {
	Name            string
	Version         string
	WordBackend     string
	OCREngine       string
	DefaultLanguage string
	JobsEnabled     bool
}

type HealthHandler struct {
	info ServiceInfo
	now  func() time.Time
}

func NewHealthHandler(info ServiceInfo) *HealthHandler {
	return &HealthHandler{info: info, now: time.Now}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   h.info.Name,
		"timestamp": h.now().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Index(c *gin.Context) {
	endpoints := gin.H{
		"/health":               "GET - Health check",
		"/metrics":              "GET - Prometheus metrics",
		"/convert-pdf-to-word":  "POST - Convert PDF to Word (.docx)",
		"/convert-pdf-to-pptx":  "POST - Convert PDF to PowerPoint (.pptx, one slide per page)",
		"/convert-pdf-to-text":  "POST - Extract text from PDF using OCR",
		"/compress-pdf":         "POST - Compress PDF with Ghostscript",
		"/convert-pdf-to-image": "POST - Render PDF pages to PNG or JPEG",
	}
	if h.info.JobsEnabled {
		endpoints["/jobs/:kind"] = "POST - Submit an asynchronous conversion"
		endpoints["/jobs/:id"] = "GET - Job status, DELETE - Cancel job"
		endpoints["/jobs/:id/result"] = "GET - Job result"
	}

	c.JSON(http.StatusOK, gin.H{
		"service":       "PDF Converter API with OCR",
		"version":       h.info.Version,
		"endpoints":     endpoints,
		"powered_by":    h.info.WordBackend + " + " + h.info.OCREngine + " OCR + MuPDF + Ghostscript",
		"ocr_languages": h.info.DefaultLanguage,
	})
}
