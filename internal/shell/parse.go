package shell

import (
	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/logging"
)

// SkipTracker records malformed lines dropped while parsing tool output.
// Parsers keep going past a bad line; the tracker turns the drops into a
// single ErrParse so the caller can log them.
type SkipTracker struct {
	tool      string
	count     int
	firstLine int
	first     string
}

// NewSkipTracker creates a SkipTracker for output produced by tool.
func NewSkipTracker(tool string) *SkipTracker {
	return &SkipTracker{tool: tool}
}

// Skip records that line number lineNo (1-based) was dropped.
func (t *SkipTracker) Skip(lineNo int, line string) {
	if t.count == 0 {
		t.firstLine = lineNo
		t.first = line
	}
	t.count++
}

// Err returns nil if nothing was skipped, otherwise an error wrapping
// errors.ErrParse that names the first offending line.
func (t *SkipTracker) Err() error {
	if t.count == 0 {
		return nil
	}
	return errors.Wrapf(errors.ErrParse, "%s: skipped %d malformed line(s), first at line %d: %q",
		t.tool, t.count, t.firstLine, t.first)
}

// LogSkipped records a parse error at debug level. A nil error or logger is
// a no-op.
func LogSkipped(logger *logging.Logger, err error) {
	if err == nil || logger == nil {
		return
	}
	logger.Debug("skipped unparseable output", "error", err)
}
