package converter

import (
	"context"
	"errors"
	"fmt"

	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

var (
	// ErrTimeout is returned when an external tool outlives its deadline.
	ErrTimeout = errors.New("conversion timed out")
	// ErrInvalidInput marks failures caused by the submitted document or options.
	ErrInvalidInput = errors.New("invalid conversion input")
	// ErrOutputMissing is returned when a tool exits cleanly without writing its output.
	ErrOutputMissing = errors.New("output file was not generated")
)

// Converter turns the PDF staged in a workspace into one output format.
type Converter interface {
	Kind() models.Kind
	Convert(ctx context.Context, ws *Workspace, job *models.Job) (*models.Output, error)
}

// Registry maps conversion kinds to their converters.
type Registry struct {
	converters map[models.Kind]Converter
	logger     logger.Logger
}

func NewRegistry(log logger.Logger, converters ...Converter) *Registry {
	r := &Registry{
		converters: make(map[models.Kind]Converter, len(converters)),
		logger:     log,
	}
	for _, c := range converters {
		r.converters[c.Kind()] = c
	}
	return r
}

func (r *Registry) Get(kind models.Kind) (Converter, error) {
	c, ok := r.converters[kind]
	if !ok {
		r.logger.Error("No converter registered",
			logger.String("kind", string(kind)),
		)
		return nil, fmt.Errorf("no converter registered for kind %q", kind)
	}
	return c, nil
}

// Kinds returns the registered kinds in the canonical order.
func (r *Registry) Kinds() []models.Kind {
	kinds := make([]models.Kind, 0, len(r.converters))
	for _, k := range models.Kinds {
		if _, ok := r.converters[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
