package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// CommandError reports a tool that exited with a failure status.
type CommandError struct {
	Name     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Name, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed (exit %d): %v", e.Name, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs tools through os/exec, killing them when ctx ends.
type ExecRunner struct {
	logger logger.Logger
}

func NewExecRunner(log logger.Logger) *ExecRunner {
	return &ExecRunner{logger: log}
}

// Run returns stdout. A context deadline is reported as ErrTimeout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	r.logger.Debug("Running command",
		logger.String("cmd", name),
		logger.Strings("args", args),
	)

	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			r.logger.Error("Command timed out",
				logger.String("cmd", name),
				logger.Duration("elapsed", elapsed),
			)
			return nil, fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		return nil, ctxErr
	}

	if err != nil {
		cmdErr := &CommandError{
			Name:     name,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		r.logger.Error("Command failed",
			logger.String("cmd", name),
			logger.Int("exitCode", cmdErr.ExitCode),
			logger.String("stderr", cmdErr.Stderr),
			logger.Duration("elapsed", elapsed),
		)
		return stdout.Bytes(), cmdErr
	}

	r.logger.Debug("Command finished",
		logger.String("cmd", name),
		logger.Duration("elapsed", elapsed),
	)
	return stdout.Bytes(), nil
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
