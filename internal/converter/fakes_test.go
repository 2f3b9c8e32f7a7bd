package converter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/feichai0017/pdf-converter/internal/render"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations and lets a test simulate the tool.
type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	run   func(ctx context.Context, name string, args []string) error
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{name: name, args: args})
	r.mu.Unlock()
	if r.run == nil {
		return nil, nil
	}
	return nil, r.run(ctx, name, args)
}

func (r *fakeRunner) LookPath(name string) (string, error) { return "/usr/bin/" + name, nil }

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}

func argValue(args []string, prefix string) string {
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}

// fakeDoc renders page i as a (100+i)x(50+i) image at 72 DPI, scaled with dpi.
type fakeDoc struct {
	pages   int
	failAt  int
	closed  bool
	renders []float64
	mu      sync.Mutex
}

func (d *fakeDoc) NumPage() int { return d.pages }

func (d *fakeDoc) Image(page int, dpi float64) (image.Image, error) {
	d.mu.Lock()
	d.renders = append(d.renders, dpi)
	d.mu.Unlock()
	if d.failAt > 0 && page+1 == d.failAt {
		return nil, errors.New("broken page")
	}
	scale := dpi / 72
	w := int(float64(100+page) * scale)
	h := int(float64(50+page) * scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	return img, nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o *fakeOpener) Open(string) (render.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

// fakeEngine returns the width of the page it was given.
type fakeEngine struct {
	mu    sync.Mutex
	langs []string
	block chan struct{}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	e.mu.Lock()
	e.langs = languages
	e.mu.Unlock()
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("width %d", img.Bounds().Dx()), nil
}

type fakeTextLayer struct {
	pages []string
	err   error
}

func (l fakeTextLayer) Pages(string) ([]string, error) { return l.pages, l.err }
