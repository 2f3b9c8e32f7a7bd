package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "/tmp/conversions", c.Converter.TempDir)
	assert.Equal(t, WordBackendPdf2docx, c.Converter.WordBackend)
	assert.Equal(t, "por+eng", c.OCR.DefaultLanguage)
	assert.Equal(t, 120*time.Second, c.Converter.CompressTimeout)
	assert.Equal(t, 200, c.Converter.SlideDPI)
	assert.Equal(t, 300, c.Converter.OCRDPI)
	assert.Equal(t, 2, c.Converter.RenderConcurrency)
	assert.False(t, c.Queue.Enabled)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  addr: ":9090"
converter:
  wordBackend: libreoffice
  compressTimeout: 45s
  maxPages: 10
ocr:
  engine: textract
  concurrency: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("MAX_PAGES", "20")
	t.Setenv("LOG_OUTPUT_PATHS", "stdout, logs/app.log")
	t.Setenv("LOG_ERROR_PATHS", "logs/error.log")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, WordBackendLibreOffice, c.Converter.WordBackend)
	assert.Equal(t, 45*time.Second, c.Converter.CompressTimeout)
	assert.Equal(t, 20, c.Converter.MaxPages, "environment wins over the file")
	assert.Equal(t, OCREngineTextract, c.OCR.Engine)
	assert.Equal(t, 3, c.OCR.Concurrency)
	assert.Equal(t, []string{"stdout", "logs/app.log"}, c.Log.OutputPaths)
	assert.Equal(t, []string{"logs/error.log"}, c.Log.ErrorPaths)
}

func TestLoadPortOverridesAddr(t *testing.T) {
	t.Setenv("PORT", "3000")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", c.Server.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown word backend", func(c *Config) { c.Converter.WordBackend = "pandoc" }},
		{"unknown ocr engine", func(c *Config) { c.OCR.Engine = "easyocr" }},
		{"zero concurrency", func(c *Config) { c.Converter.MaxConcurrent = 0 }},
		{"zero dpi", func(c *Config) { c.Converter.OCRDPI = 0 }},
		{"queue with unknown storage", func(c *Config) {
			c.Queue.Enabled = true
			c.Storage.Type = "gcs"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadQueueAndOCREnv(t *testing.T) {
	t.Setenv("OCR_PREPROCESS", "grayscale, binarize")
	t.Setenv("QUEUE_ENABLED", "true")
	t.Setenv("STORAGE_TYPE", "minio")
	t.Setenv("JOB_TIMEOUT", "10m")
	t.Setenv("WORKER_METRICS_ADDR", ":9999")
	t.Setenv("RENDER_CONCURRENCY", "6")
	t.Setenv("OCR_CONCURRENCY", "3")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"grayscale", "binarize"}, c.OCR.Preprocess)
	assert.True(t, c.Queue.Enabled)
	assert.Equal(t, StorageTypeMinio, c.Storage.Type)
	assert.Equal(t, 10*time.Minute, c.Queue.TaskTimeout)
	assert.Equal(t, ":9999", c.Queue.MetricsAddr)
	assert.Equal(t, 6, c.Converter.RenderConcurrency)
	assert.Equal(t, 3, c.OCR.Concurrency)
}
