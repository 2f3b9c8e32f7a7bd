package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/feichai0017/pdf-converter/pkg/logger"
)

const pdfMIME = "application/pdf"

var (
	ErrEmpty    = errors.New("document is empty")
	ErrTooLarge = errors.New("document exceeds the maximum size")
	ErrNotPDF   = errors.New("document is not a PDF")
)

// ValidationError carries a machine readable code next to the message.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	err     error
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.err }

type ValidatorConfig struct {
	MaxFileSize int64
}

// FileInfo describes an accepted document.
type FileInfo struct {
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Hash     string `json:"hash"`
}

// PDFValidator checks decoded payloads before they reach an external tool.
type PDFValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

func NewPDFValidator(log logger.Logger, config *ValidatorConfig) *PDFValidator {
	if config == nil {
		config = &ValidatorConfig{
			MaxFileSize: 50 * 1024 * 1024,
		}
	}
	return &PDFValidator{
		logger: log,
		config: config,
	}
}

// Validate sniffs the payload by magic bytes and enforces the size limit.
func (v *PDFValidator) Validate(data []byte) (*FileInfo, error) {
	size := int64(len(data))
	if size == 0 {
		return nil, &ValidationError{Code: "EMPTY_FILE", Message: ErrEmpty.Error(), Field: "pdfBase64", err: ErrEmpty}
	}

	if size > v.config.MaxFileSize {
		return nil, &ValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size %d exceeds maximum limit of %d bytes", size, v.config.MaxFileSize),
			Field:   "pdfBase64",
			err:     ErrTooLarge,
		}
	}

	mtype := mimetype.Detect(data)
	if !mtype.Is(pdfMIME) {
		v.logger.Warn("Rejected non-PDF payload",
			logger.String("mimeType", mtype.String()),
			logger.Int64("size", size),
		)
		return nil, &ValidationError{
			Code:    "INVALID_MIME_TYPE",
			Message: fmt.Sprintf("Invalid MIME type %s, expected %s", mtype.String(), pdfMIME),
			Field:   "pdfBase64",
			err:     ErrNotPDF,
		}
	}

	return &FileInfo{
		Size:     size,
		MimeType: pdfMIME,
		Hash:     calculateHash(data),
	}, nil
}

func calculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
