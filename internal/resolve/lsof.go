package resolve

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/shell"
)

// LsofCwdLookup resolves working directories with a single
// `lsof -a -d cwd -p <pid,pid,...> -F n` invocation.
type LsofCwdLookup struct {
	Runner shell.Runner
	// Path is the lsof binary. Empty means "lsof" from PATH.
	Path string
	// Logger receives parse skips at debug level. May be nil.
	Logger *logging.Logger
}

// NewLsofCwdLookup creates an LsofCwdLookup.
func NewLsofCwdLookup(runner shell.Runner, path string) *LsofCwdLookup {
	return &LsofCwdLookup{Runner: runner, Path: path}
}

// LookupCwds implements CwdLookup.
//
// lsof exits non-zero when any pid in the list is gone or inaccessible,
// while still printing the ones it could read. Output is parsed whenever
// there is some, and the error is returned alongside.
func (l *LsofCwdLookup) LookupCwds(ctx context.Context, pids []int) (map[int]string, error) {
	if len(pids) == 0 {
		return map[int]string{}, nil
	}
	ids := make([]string, len(pids))
	for i, pid := range pids {
		ids[i] = strconv.Itoa(pid)
	}

	bin := l.Path
	if bin == "" {
		bin = "lsof"
	}
	out, err := l.Runner.Run(ctx, bin, "-a", "-d", "cwd", "-p", strings.Join(ids, ","), "-F", "n")
	if len(out) == 0 {
		if err != nil {
			return map[int]string{}, err
		}
		return map[int]string{}, nil
	}
	cwds, perr := ParseLsofCwd(out)
	shell.LogSkipped(l.Logger, perr)
	return cwds, err
}

// ParseLsofCwd parses lsof field output into pid → cwd.
//
// The stream repeats a "p<pid>" line followed by one or more other field
// lines, of which the "n<path>" line carries the directory. Unknown field
// lines are ignored. A malformed pid line, or a path seen before a valid pid,
// is skipped and reported through the returned error, which wraps
// errors.ErrParse. The map holds everything that did parse.
func ParseLsofCwd(out []byte) (map[int]string, error) {
	result := make(map[int]string)
	skips := shell.NewSkipTracker("lsof")
	current := 0
	lineNo := 0

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		switch line[0] {
		case 'p':
			pid, err := strconv.Atoi(line[1:])
			if err != nil || pid <= 0 {
				skips.Skip(lineNo, line)
				current = 0
				continue
			}
			current = pid
		case 'n':
			if current == 0 {
				skips.Skip(lineNo, line)
				continue
			}
			if _, seen := result[current]; !seen {
				result[current] = line[1:]
			}
		}
	}
	return result, skips.Err()
}
