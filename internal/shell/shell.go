// Package shell runs the external tools devtop depends on (ps, lsof, docker)
// with bounded execution time and classified failures.
//
// Every command goes through a Runner so resolvers can be tested against
// canned output. ExecRunner maps the two failures callers care about onto
// sentinel errors: a missing binary becomes ErrToolUnavailable and an expired
// deadline becomes a TimeoutError (matching ErrToolTimeout), both wrapped in
// a ResolverError.
package shell

import (
	"bytes"
	"context"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/Iron-Ham/devtop/internal/errors"
)

// DefaultTimeout bounds a single external command when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 2 * time.Second

// Runner executes an external command and returns its standard output.
//
// Implementations return partial output alongside a non-nil error when the
// command produced some output before failing. lsof in particular exits 1
// whenever any requested pid could not be inspected.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	// Timeout applies to each Run call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewExecRunner creates an ExecRunner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes name with args and returns stdout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	op := strings.TrimSpace(name + " " + strings.Join(args, " "))
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return nil, errors.NewResolverError(name, op, errors.ErrToolUnavailable)
	case ctx.Err() == context.DeadlineExceeded:
		return stdout.Bytes(), errors.NewResolverError(name, op, errors.NewTimeoutError(op, timeout).WithCause(ctx.Err()))
	case ctx.Err() != nil:
		return stdout.Bytes(), errors.NewResolverError(name, op, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && isCommandNotFound(stderr.String()) {
		return nil, errors.NewResolverError(name, op, errors.ErrToolUnavailable).WithOutput(stderr.String())
	}
	return stdout.Bytes(), errors.NewResolverError(name, op, errors.Wrap(errors.ErrToolFailed, err.Error())).
		WithOutput(stderr.String())
}

// isCommandNotFound recognizes wrappers (shims, shell functions) that exist
// on PATH but report the real binary as missing.
func isCommandNotFound(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "command not found") ||
		strings.Contains(s, "no such file or directory") ||
		strings.Contains(s, "cannot connect to the docker daemon")
}
