package converter

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the text a PDF already embeds, one string per page.
type TextLayer interface {
	Pages(path string) ([]string, error)
}

// PlainTextLayer extracts embedded text with ledongthuc/pdf.
type PlainTextLayer struct{}

func (PlainTextLayer) Pages(path string) (pages []string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, invalidInput("unreadable text layer: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, invalidInput("failed to open PDF: %v", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
