package ocr

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// Step is one image filter applied before recognition.
type Step interface {
	Name() string
	Apply(img image.Image) image.Image
}

// Pipeline applies its steps in order. A nil Pipeline leaves pages untouched.
type Pipeline []Step

func (p Pipeline) Apply(img image.Image) image.Image {
	for _, s := range p {
		img = s.Apply(img)
	}
	return img
}

func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name()
	}
	return names
}

// DefaultPipeline suits photographed or low-contrast scans.
var DefaultPipeline = Pipeline{Grayscale{}, Contrast{Amount: 20}, Sharpen{Sigma: 0.5}}

// ParsePipeline builds a pipeline from step names such as
// "grayscale", "contrast", "sharpen", "denoise" and "binarize". The single
// name "default" selects DefaultPipeline.
func ParsePipeline(names []string) (Pipeline, error) {
	var p Pipeline
	for _, raw := range names {
		switch name := strings.ToLower(strings.TrimSpace(raw)); name {
		case "":
		case "default":
			p = append(p, DefaultPipeline...)
		case "grayscale":
			p = append(p, Grayscale{})
		case "contrast":
			p = append(p, Contrast{Amount: 20})
		case "sharpen":
			p = append(p, Sharpen{Sigma: 0.5})
		case "denoise":
			p = append(p, Denoise{Sigma: 0.7})
		case "binarize":
			p = append(p, Binarize{Threshold: 160})
		default:
			return nil, fmt.Errorf("unknown preprocessing step: %q", raw)
		}
	}
	return p, nil
}

type Grayscale struct{}

func (Grayscale) Name() string                      { return "grayscale" }
func (Grayscale) Apply(img image.Image) image.Image { return imaging.Grayscale(img) }

// Contrast takes a percentage in [-100, 100].
type Contrast struct{ Amount float64 }

func (Contrast) Name() string                        { return "contrast" }
func (c Contrast) Apply(img image.Image) image.Image { return imaging.AdjustContrast(img, c.Amount) }

type Sharpen struct{ Sigma float64 }

func (Sharpen) Name() string                        { return "sharpen" }
func (s Sharpen) Apply(img image.Image) image.Image { return imaging.Sharpen(img, s.Sigma) }

// Denoise smooths speckle with a light gaussian blur.
type Denoise struct{ Sigma float64 }

func (Denoise) Name() string                        { return "denoise" }
func (d Denoise) Apply(img image.Image) image.Image { return imaging.Blur(img, d.Sigma) }

// Binarize maps pixels brighter than Threshold to white and the rest to
// black.
type Binarize struct{ Threshold uint8 }

func (Binarize) Name() string { return "binarize" }

func (b Binarize) Apply(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if color.GrayModel.Convert(gray.At(x, y)).(color.Gray).Y > b.Threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
