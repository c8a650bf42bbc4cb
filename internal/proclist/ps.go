package proclist

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/shell"
)

// PsSource reads command lines with `ps -axo pid=,command=`.
type PsSource struct {
	Runner shell.Runner
	// Logger receives parse skips at debug level. May be nil.
	Logger *logging.Logger
}

// NewPsSource creates a PsSource.
func NewPsSource(runner shell.Runner) *PsSource {
	return &PsSource{Runner: runner}
}

// Commands implements CommandSource.
func (s *PsSource) Commands(ctx context.Context) (map[int]string, error) {
	out, err := s.Runner.Run(ctx, "ps", "-axo", "pid=,command=")
	if err != nil {
		return nil, err
	}
	cmds, perr := ParsePS(out)
	shell.LogSkipped(s.Logger, perr)
	return cmds, nil
}

// ParsePS parses "<pid> <command...>" lines. Lines without a numeric pid or
// without a command are skipped and reported through an error wrapping
// errors.ErrParse; blank lines are ignored.
func ParsePS(out []byte) (map[int]string, error) {
	result := make(map[int]string)
	skips := shell.NewSkipTracker("ps")
	lineNo := 0

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pidField, cmd, ok := strings.Cut(line, " ")
		if !ok {
			skips.Skip(lineNo, line)
			continue
		}
		pid, err := strconv.Atoi(pidField)
		if err != nil || pid <= 0 {
			skips.Skip(lineNo, line)
			continue
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			skips.Skip(lineNo, line)
			continue
		}
		result[pid] = cmd
	}
	return result, skips.Err()
}
