package converter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/feichai0017/pdf-converter/pkg/logger"
)

const inputName = "input.pdf"

// Workspace is a private directory holding one conversion's temporary files.
// Cleanup removes it together with anything a tool left behind.
type Workspace struct {
	ID     string
	dir    string
	logger logger.Logger
}

// NewWorkspace creates <root>/<uuid>.
func NewWorkspace(root string, log logger.Logger) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp root: %w", err)
	}

	id := uuid.New().String()
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{
		ID:     id,
		dir:    dir,
		logger: log.With(logger.String("workspace", id)),
	}, nil
}

func (w *Workspace) Dir() string { return w.dir }

func (w *Workspace) InputPath() string { return filepath.Join(w.dir, inputName) }

func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

func (w *Workspace) WriteInput(data []byte) error {
	if err := os.WriteFile(w.InputPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write input file: %w", err)
	}
	w.logger.Debug("Input saved",
		logger.String("path", w.InputPath()),
		logger.Int("bytes", len(data)),
	)
	return nil
}

// ReadOutput reads a file a tool was expected to produce.
func (w *Workspace) ReadOutput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Error("Expected output not found",
			logger.String("path", path),
			logger.Strings("present", w.list()),
		)
		return nil, fmt.Errorf("%w: %s", ErrOutputMissing, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrOutputMissing, filepath.Base(path))
	}
	return data, nil
}

// Cleanup removes the workspace. Failures are logged, never returned.
func (w *Workspace) Cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warn("Failed to remove temporary files", logger.Error(err))
		return
	}
	w.logger.Debug("Temporary files removed")
}

func (w *Workspace) list() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
