package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies a conversion.
type Kind string

const (
	KindWord     Kind = "word"
	KindPPTX     Kind = "pptx"
	KindText     Kind = "text"
	KindCompress Kind = "compress"
	KindImage    Kind = "image"
)

// Kinds lists every supported conversion in a stable order.
var Kinds = []Kind{KindWord, KindPPTX, KindText, KindCompress, KindImage}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported conversion kind: %q", s)
}

// Quality is a Ghostscript PDFSETTINGS preset.
type Quality string

const (
	QualityScreen   Quality = "screen"   // 72 DPI, smallest output
	QualityEbook    Quality = "ebook"    // 150 DPI
	QualityPrinter  Quality = "printer"  // 300 DPI
	QualityPrepress Quality = "prepress" // 300 DPI, colour preserving
)

var Qualities = []Quality{QualityScreen, QualityEbook, QualityPrinter, QualityPrepress}

func (q Quality) Valid() bool {
	for _, v := range Qualities {
		if q == v {
			return true
		}
	}
	return false
}

// TextMode selects how text is pulled out of a PDF.
type TextMode string

const (
	TextModeOCR    TextMode = "ocr"
	TextModeNative TextMode = "native"
)

// ImageFormat is the raster output of the image conversion.
type ImageFormat string

const (
	ImageFormatPNG ImageFormat = "png"
	ImageFormatJPG ImageFormat = "jpg"
)

const (
	DefaultFilename     = "document"
	DefaultImageQuality = 92
	DefaultImageScale   = 2.0
	MaxImageScale       = 4.0
)

// ConvertRequest is the JSON body accepted by every conversion endpoint.
type ConvertRequest struct {
	PDFBase64    string  `json:"pdfBase64"`
	Filename     string  `json:"filename"`
	Language     string  `json:"language,omitempty"`
	Mode         string  `json:"mode,omitempty"`
	Quality      string  `json:"quality,omitempty"`
	Format       string  `json:"format,omitempty"`
	ImageQuality int     `json:"imageQuality,omitempty"`
	Scale        float64 `json:"scale,omitempty"`
}

// UnmarshalJSON accepts quality either as a Ghostscript preset name or as a
// number. A number is the image quality used by the image kind; explicit
// imageQuality wins.
func (r *ConvertRequest) UnmarshalJSON(data []byte) error {
	type plain ConvertRequest
	aux := struct {
		*plain
		Quality json.RawMessage `json:"quality,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.Quality)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		r.Quality = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &r.Quality)
	default:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return &json.UnmarshalTypeError{Value: "quality " + string(raw), Type: reflect.TypeOf(0), Field: "quality"}
		}
		r.Quality = strconv.Itoa(int(n))
		if r.ImageQuality == 0 {
			r.ImageQuality = int(n)
		}
	}
	return nil
}

// Options carries the validated per-kind parameters of a job.
type Options struct {
	Languages    []string    `json:"languages,omitempty"`
	TextMode     TextMode    `json:"textMode,omitempty"`
	Quality      Quality     `json:"quality,omitempty"`
	ImageFormat  ImageFormat `json:"imageFormat,omitempty"`
	ImageQuality int         `json:"imageQuality,omitempty"`
	Scale        float64     `json:"scale,omitempty"`
}

// Job is a decoded, validated conversion ready to run.
type Job struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"kind"`
	Filename string  `json:"filename"`
	Checksum string  `json:"checksum,omitempty"` // sha256 of PDF, hex
	Options  Options `json:"options"`
	PDF      []byte  `json:"-"`
}

// PageImage is one rendered page of the image conversion.
type PageImage struct {
	Page   int
	Width  int
	Height int
	Data   []byte
}

// Output is what a converter produced, before wire encoding.
type Output struct {
	Kind         Kind
	Filename     string
	Data         []byte
	Text         string
	Pages        int
	OriginalSize int
	Quality      Quality
	ImageFormat  ImageFormat
	Images       []PageImage
	Message      string
}
