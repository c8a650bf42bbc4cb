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

// LsofPortSource finds listening TCP ports with
// `lsof -nP -iTCP -sTCP:LISTEN -F pn`.
type LsofPortSource struct {
	Runner shell.Runner
	Path   string
	Logger *logging.Logger
}

// NewLsofPortSource creates a LsofPortSource. An empty path means "lsof".
func NewLsofPortSource(runner shell.Runner, path string) *LsofPortSource {
	return &LsofPortSource{Runner: runner, Path: path}
}

// ListeningPorts implements PortSource.
func (s *LsofPortSource) ListeningPorts(ctx context.Context) (map[int]int, error) {
	bin := s.Path
	if bin == "" {
		bin = "lsof"
	}
	out, err := s.Runner.Run(ctx, bin, "-nP", "-iTCP", "-sTCP:LISTEN", "-F", "pn")
	if len(out) > 0 {
		ports, perr := ParseLsofListen(out)
		shell.LogSkipped(s.Logger, perr)
		return ports, err
	}
	return map[int]int{}, err
}

// ParseLsofListen parses lsof field output into pid → lowest listening port.
// Address lines look like "n*:3000", "n127.0.0.1:5432" or "n[::1]:8080".
// Malformed pid lines, addresses before a pid and addresses without a usable
// port are skipped and reported through an error wrapping errors.ErrParse.
func ParseLsofListen(out []byte) (map[int]int, error) {
	result := make(map[int]int)
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
			port := parsePort(line[1:])
			if port <= 0 {
				skips.Skip(lineNo, line)
				continue
			}
			if existing, ok := result[current]; !ok || port < existing {
				result[current] = port
			}
		}
	}
	return result, skips.Err()
}

func parsePort(addr string) int {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 || i == len(addr)-1 {
		return 0
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil || port <= 0 || port > 65535 {
		return 0
	}
	return port
}
