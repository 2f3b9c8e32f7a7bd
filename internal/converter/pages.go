package converter

import (
	"fmt"

	"github.com/feichai0017/pdf-converter/internal/render"
)

// openPages opens the staged PDF for rendering and enforces the page limit.
// A non-positive limit disables the check.
func openPages(opener render.Opener, path string, maxPages int) (render.Document, int, error) {
	doc, err := opener.Open(path)
	if err != nil {
		return nil, 0, invalidInput("%v", err)
	}

	n := doc.NumPage()
	if n <= 0 {
		doc.Close()
		return nil, 0, invalidInput("PDF has no pages")
	}
	if maxPages > 0 && n > maxPages {
		doc.Close()
		return nil, 0, invalidInput("PDF has %d pages, the limit is %d", n, maxPages)
	}
	return doc, n, nil
}

func pageError(page int, err error) error {
	return fmt.Errorf("page %d: %w", page, err)
}
