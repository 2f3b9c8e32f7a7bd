package conversion

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/internal/utils/validator"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// languagePattern accepts Tesseract model names joined by '+', including
// script models such as script/Latin.
var languagePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(/[A-Za-z0-9_]+)*(\+[A-Za-z0-9_]+(/[A-Za-z0-9_]+)*)*$`)

// Decode validates a request for kind and returns a job ready to convert.
func (s *Service) Decode(kind models.Kind, req *models.ConvertRequest) (*models.Job, error) {
	job := &models.Job{
		ID:       uuid.New().String(),
		Kind:     kind,
		Filename: strings.TrimSpace(req.Filename),
	}
	if job.Filename == "" {
		job.Filename = models.DefaultFilename
	}

	// Quality is checked before the payload, matching the original API.
	if kind == models.KindCompress {
		q := models.Quality(req.Quality)
		if q == "" {
			q = models.QualityEbook
		}
		if !q.Valid() {
			return nil, badRequest(fmt.Sprintf("Quality must be one of: %s", qualityList()))
		}
		job.Options.Quality = q
	}

	if req.PDFBase64 == "" {
		return nil, badRequest("pdfBase64 field is required")
	}

	data, err := DecodeBase64(req.PDFBase64)
	if err != nil {
		s.logger.Warn("Failed to decode base64 payload", logger.Error(err))
		return nil, badRequest("failed to decode PDF base64")
	}

	info, err := s.validator.Validate(data)
	if err != nil {
		if errors.Is(err, validator.ErrTooLarge) {
			return nil, &RequestError{Kind: ErrTooLarge, Message: err.Error()}
		}
		return nil, badRequest(err.Error())
	}
	job.PDF = data
	job.Checksum = info.Hash

	switch kind {
	case models.KindText:
		if err := s.textOptions(req, &job.Options); err != nil {
			return nil, err
		}
	case models.KindImage:
		if err := imageOptions(req, &job.Options); err != nil {
			return nil, err
		}
	}

	return job, nil
}

// DecodeBase64 accepts plain base64 or a data URL, ignoring whitespace and
// missing padding.
func DecodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

func (s *Service) textOptions(req *models.ConvertRequest, opts *models.Options) error {
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = s.config.DefaultLanguage
	}
	if !languagePattern.MatchString(lang) {
		return badRequest(fmt.Sprintf("invalid language %q, expected codes joined by '+' such as por+eng", lang))
	}
	opts.Languages = strings.Split(lang, "+")

	switch models.TextMode(strings.ToLower(strings.TrimSpace(req.Mode))) {
	case "", models.TextModeOCR:
		opts.TextMode = models.TextModeOCR
	case models.TextModeNative:
		opts.TextMode = models.TextModeNative
	default:
		return badRequest(fmt.Sprintf("Mode must be one of: %s, %s", models.TextModeOCR, models.TextModeNative))
	}
	return nil
}

func imageOptions(req *models.ConvertRequest, opts *models.Options) error {
	switch strings.ToLower(strings.TrimSpace(req.Format)) {
	case "", "png":
		opts.ImageFormat = models.ImageFormatPNG
	case "jpg", "jpeg":
		opts.ImageFormat = models.ImageFormatJPG
	default:
		return badRequest("Format must be one of: png, jpg")
	}

	switch {
	case req.ImageQuality == 0:
		opts.ImageQuality = models.DefaultImageQuality
	case req.ImageQuality < 1 || req.ImageQuality > 100:
		return badRequest("imageQuality must be between 1 and 100")
	default:
		opts.ImageQuality = req.ImageQuality
	}

	switch {
	case req.Scale == 0:
		opts.Scale = models.DefaultImageScale
	case req.Scale < 0 || req.Scale > models.MaxImageScale:
		return badRequest(fmt.Sprintf("scale must be greater than 0 and at most %g", models.MaxImageScale))
	default:
		opts.Scale = req.Scale
	}
	return nil
}

func qualityList() string {
	names := make([]string, len(models.Qualities))
	for i, q := range models.Qualities {
		names[i] = string(q)
	}
	return strings.Join(names, ", ")
}
