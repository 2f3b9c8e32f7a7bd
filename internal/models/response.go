package models

import (
	"encoding/base64"
	"fmt"
	"math"
	"unicode/utf8"
)

// Response is the JSON body returned by the conversion endpoints and stored
// as the result of asynchronous jobs. Fields that do not apply to a kind are
// omitted.
type Response struct {
	Success  bool    `json:"success"`
	Filename string  `json:"filename,omitempty"`
	Data     string  `json:"data,omitempty"`
	Text     *string `json:"text,omitempty"`
	Message  string  `json:"message,omitempty"`
	Error    string  `json:"error,omitempty"`

	SizeBytes  *int `json:"size_bytes,omitempty"`
	Pages      *int `json:"pages,omitempty"`
	Characters *int `json:"characters,omitempty"`

	OriginalSizeBytes       *int     `json:"original_size_bytes,omitempty"`
	CompressedSizeBytes     *int     `json:"compressed_size_bytes,omitempty"`
	CompressionRatioPercent *float64 `json:"compression_ratio_percent,omitempty"`
	Quality                 string   `json:"quality,omitempty"`

	Format string         `json:"format,omitempty"`
	Images []ImagePayload `json:"images,omitempty"`
}

type ImagePayload struct {
	Page     int    `json:"page"`
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// ErrorResponse builds the failure body.
func ErrorResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// NewResponse encodes a converter output for the wire.
func NewResponse(out *Output) Response {
	resp := Response{
		Success:  true,
		Filename: out.Filename,
		Message:  out.Message,
	}

	switch out.Kind {
	case KindWord:
		resp.Data = base64.StdEncoding.EncodeToString(out.Data)
		resp.SizeBytes = intPtr(len(out.Data))
	case KindPPTX:
		resp.Data = base64.StdEncoding.EncodeToString(out.Data)
		resp.SizeBytes = intPtr(len(out.Data))
		resp.Pages = intPtr(out.Pages)
	case KindText:
		text := out.Text
		resp.Text = &text
		resp.Pages = intPtr(out.Pages)
		resp.Characters = intPtr(utf8.RuneCountInString(text))
	case KindCompress:
		resp.Data = base64.StdEncoding.EncodeToString(out.Data)
		resp.OriginalSizeBytes = intPtr(out.OriginalSize)
		resp.CompressedSizeBytes = intPtr(len(out.Data))
		ratio := CompressionRatio(out.OriginalSize, len(out.Data))
		resp.CompressionRatioPercent = &ratio
		resp.Quality = string(out.Quality)
		if out.Pages > 0 {
			resp.Pages = intPtr(out.Pages)
		}
	case KindImage:
		resp.Format = string(out.ImageFormat)
		resp.Pages = intPtr(out.Pages)
		resp.Images = make([]ImagePayload, 0, len(out.Images))
		for _, img := range out.Images {
			resp.Images = append(resp.Images, ImagePayload{
				Page:     img.Page,
				Filename: PageImageFilename(out.Filename, img.Page, out.ImageFormat),
				Data:     base64.StdEncoding.EncodeToString(img.Data),
				Width:    img.Width,
				Height:   img.Height,
			})
		}
	}
	return resp
}

// CompressionRatio is the percentage saved, rounded to one decimal. It is
// negative when the optimizer grew the file.
func CompressionRatio(original, compressed int) float64 {
	if original <= 0 {
		return 0
	}
	ratio := float64(original-compressed) / float64(original) * 100
	return math.Round(ratio*10) / 10
}

// OutputFilename is the download name announced for a kind.
func OutputFilename(base string, kind Kind) string {
	switch kind {
	case KindWord:
		return base + ".docx"
	case KindPPTX:
		return base + ".pptx"
	case KindText:
		return base + ".txt"
	case KindCompress:
		return base + "_compressed.pdf"
	default:
		return base
	}
}

func PageImageFilename(base string, page int, format ImageFormat) string {
	return fmt.Sprintf("%s_page_%d.%s", base, page, format)
}

func intPtr(v int) *int { return &v }
