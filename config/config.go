package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	WordBackendPdf2docx    = "pdf2docx"
	WordBackendLibreOffice = "libreoffice"

	OCREngineTesseract = "tesseract"
	OCREngineTextract  = "textract"

	StorageTypeS3    = "s3"
	StorageTypeMinio = "minio"
)

var (
	cfgOnce sync.Once
	cfg     *Config
	cfgErr  error
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Converter ConverterConfig `yaml:"converter"`
	OCR       OCRConfig       `yaml:"ocr"`
	Queue     QueueConfig     `yaml:"queue"`
	Storage   StorageConfig   `yaml:"storage"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ServiceName     string        `yaml:"serviceName"`
	Version         string        `yaml:"version"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type LogConfig struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
	ErrorPaths  []string `yaml:"errorPaths"` // extra sinks for error level and above
}

// ConverterConfig controls the temporary workspace and the external tools.
type ConverterConfig struct {
	TempDir           string        `yaml:"tempDir"`
	MaxFileSize       int64         `yaml:"maxFileSize"` // decoded PDF bytes
	MaxPages          int           `yaml:"maxPages"`    // render-based conversions only
	MaxConcurrent     int           `yaml:"maxConcurrent"`
	RenderConcurrency int           `yaml:"renderConcurrency"` // pages rasterized at once by the image conversion
	Timeout           time.Duration `yaml:"timeout"`
	CompressTimeout   time.Duration `yaml:"compressTimeout"`
	WordBackend       string        `yaml:"wordBackend"`
	Pdf2docxPath      string        `yaml:"pdf2docxPath"`
	LibreOfficePath   string        `yaml:"libreOfficePath"`
	GhostscriptPath   string        `yaml:"ghostscriptPath"`
	SlideDPI          int           `yaml:"slideDPI"`
	OCRDPI            int           `yaml:"ocrDPI"`
}

type OCRConfig struct {
	Engine          string         `yaml:"engine"`
	DefaultLanguage string         `yaml:"defaultLanguage"`
	Concurrency     int            `yaml:"concurrency"`
	Preprocess      []string       `yaml:"preprocess"` // ocr preprocessing steps, in order
	Textract        TextractConfig `yaml:"textract"`
}

type QueueConfig struct {
	Enabled         bool           `yaml:"enabled"`
	RedisAddr       string         `yaml:"redisAddr"`
	RedisPassword   string         `yaml:"redisPassword"`
	RedisDB         int            `yaml:"redisDB"`
	Concurrency     int            `yaml:"concurrency"`
	MaxRetry        int            `yaml:"maxRetry"`
	TaskTimeout     time.Duration  `yaml:"taskTimeout"`
	StatusTTL       time.Duration  `yaml:"statusTTL"`
	RetentionPeriod time.Duration  `yaml:"retentionPeriod"`
	CleanupInterval time.Duration  `yaml:"cleanupInterval"`
	Queues          map[string]int `yaml:"queues"`
	MetricsAddr     string         `yaml:"metricsAddr"` // worker /metrics listener
}

type StorageConfig struct {
	Type  string      `yaml:"type"`
	S3    S3Config    `yaml:"s3"`
	Minio MinioConfig `yaml:"minio"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ServiceName:     "pdf-converter",
			Version:         "4.1.0",
			MaxBodyBytes:    100 << 20,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stdout"},
		},
		Converter: ConverterConfig{
			TempDir:           "/tmp/conversions",
			MaxFileSize:       50 << 20,
			MaxPages:          300,
			MaxConcurrent:     4,
			RenderConcurrency: 2,
			Timeout:           5 * time.Minute,
			CompressTimeout:   120 * time.Second,
			WordBackend:       WordBackendPdf2docx,
			Pdf2docxPath:      "pdf2docx",
			LibreOfficePath:   "soffice",
			GhostscriptPath:   "gs",
			SlideDPI:          200,
			OCRDPI:            300,
		},
		OCR: OCRConfig{
			Engine:          OCREngineTesseract,
			DefaultLanguage: "por+eng",
			Concurrency:     2,
		},
		Queue: QueueConfig{
			Enabled:         false,
			RedisAddr:       "localhost:6379",
			Concurrency:     4,
			MaxRetry:        3,
			TaskTimeout:     30 * time.Minute,
			StatusTTL:       24 * time.Hour,
			RetentionPeriod: 24 * time.Hour,
			CleanupInterval: time.Hour,
			MetricsAddr:     ":9091",
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeS3,
		},
	}
}

// Get returns the process-wide configuration, loading it on first use from
// CONFIG_FILE (optional) and the environment.
func Get() (*Config, error) {
	cfgOnce.Do(func() {
		loadDotEnv()
		cfg, cfgErr = Load(os.Getenv("CONFIG_FILE"))
	})
	return cfg, cfgErr
}

// Load builds a configuration from defaults, an optional YAML file and
// environment overrides, in that order.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	envString("SERVER_ADDR", &c.Server.Addr)
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	envString("SERVICE_NAME", &c.Server.ServiceName)
	envInt64("MAX_BODY_BYTES", &c.Server.MaxBodyBytes)
	envDuration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_ENCODING", &c.Log.Encoding)
	envList("LOG_OUTPUT_PATHS", &c.Log.OutputPaths)
	envList("LOG_ERROR_PATHS", &c.Log.ErrorPaths)

	envString("TEMP_DIR", &c.Converter.TempDir)
	envInt64("MAX_FILE_SIZE", &c.Converter.MaxFileSize)
	envInt("MAX_PAGES", &c.Converter.MaxPages)
	envInt("MAX_CONCURRENT", &c.Converter.MaxConcurrent)
	envInt("RENDER_CONCURRENCY", &c.Converter.RenderConcurrency)
	envDuration("CONVERSION_TIMEOUT", &c.Converter.Timeout)
	envDuration("COMPRESS_TIMEOUT", &c.Converter.CompressTimeout)
	envString("WORD_BACKEND", &c.Converter.WordBackend)
	envString("PDF2DOCX_PATH", &c.Converter.Pdf2docxPath)
	envString("LIBREOFFICE_PATH", &c.Converter.LibreOfficePath)
	envString("GHOSTSCRIPT_PATH", &c.Converter.GhostscriptPath)
	envInt("SLIDE_DPI", &c.Converter.SlideDPI)
	envInt("OCR_DPI", &c.Converter.OCRDPI)

	envString("OCR_ENGINE", &c.OCR.Engine)
	envString("OCR_DEFAULT_LANGUAGE", &c.OCR.DefaultLanguage)
	envInt("OCR_CONCURRENCY", &c.OCR.Concurrency)
	envList("OCR_PREPROCESS", &c.OCR.Preprocess)
	c.OCR.Textract.fromEnv()

	envBool("QUEUE_ENABLED", &c.Queue.Enabled)
	envString("REDIS_ADDR", &c.Queue.RedisAddr)
	envString("REDIS_PASSWORD", &c.Queue.RedisPassword)
	envInt("REDIS_DB", &c.Queue.RedisDB)
	envInt("WORKER_CONCURRENCY", &c.Queue.Concurrency)
	envInt("QUEUE_MAX_RETRY", &c.Queue.MaxRetry)
	envDuration("JOB_TIMEOUT", &c.Queue.TaskTimeout)
	envDuration("JOB_STATUS_TTL", &c.Queue.StatusTTL)
	envDuration("JOB_RETENTION", &c.Queue.RetentionPeriod)
	envDuration("JOB_CLEANUP_INTERVAL", &c.Queue.CleanupInterval)
	envString("WORKER_METRICS_ADDR", &c.Queue.MetricsAddr)

	envString("STORAGE_TYPE", &c.Storage.Type)
	c.Storage.S3.fromEnv()
	c.Storage.Minio.fromEnv()
}

func (c *Config) Validate() error {
	switch c.Converter.WordBackend {
	case WordBackendPdf2docx, WordBackendLibreOffice:
	default:
		return fmt.Errorf("unsupported word backend: %q", c.Converter.WordBackend)
	}

	switch c.OCR.Engine {
	case OCREngineTesseract, OCREngineTextract:
	default:
		return fmt.Errorf("unsupported ocr engine: %q", c.OCR.Engine)
	}

	if c.Converter.MaxConcurrent <= 0 {
		return fmt.Errorf("maxConcurrent must be positive, got %d", c.Converter.MaxConcurrent)
	}
	if c.Converter.MaxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be positive, got %d", c.Converter.MaxFileSize)
	}
	if c.Converter.SlideDPI <= 0 || c.Converter.OCRDPI <= 0 {
		return fmt.Errorf("render DPI must be positive")
	}
	if c.OCR.Concurrency <= 0 {
		c.OCR.Concurrency = 1
	}
	if c.Converter.RenderConcurrency <= 0 {
		c.Converter.RenderConcurrency = 1
	}

	if c.Queue.Enabled {
		switch c.Storage.Type {
		case StorageTypeS3, StorageTypeMinio:
		default:
			return fmt.Errorf("unsupported storage type: %q", c.Storage.Type)
		}
	}
	return nil
}
