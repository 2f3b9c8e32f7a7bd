// Package ocr defines the text recognition engines used by the text
// conversion.
package ocr

import (
	"context"
	"image"
)

// Engine recognizes the text of one rendered page.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, languages []string) (string, error)
}
