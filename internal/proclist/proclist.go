// Package proclist takes snapshots of the running processes: pid, full
// command line and the lowest TCP port each one listens on.
package proclist

import (
	"context"
	"os"
	"runtime"
	"sort"

	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/shell"
)

// Record is one process in a snapshot.
type Record struct {
	PID     int    `json:"pid"`
	Command string `json:"command"`
	// Port is the lowest listening TCP port, or 0.
	Port int `json:"port,omitempty"`
}

// Lister produces process snapshots.
type Lister interface {
	List(ctx context.Context) ([]Record, error)
}

// CommandSource maps pids to command lines.
type CommandSource interface {
	Commands(ctx context.Context) (map[int]string, error)
}

// PortSource maps pids to their lowest listening TCP port.
type PortSource interface {
	ListeningPorts(ctx context.Context) (map[int]int, error)
}

// SystemLister joins a CommandSource with a PortSource. Port lookup is
// best effort: when it fails the snapshot simply carries no ports.
type SystemLister struct {
	commands CommandSource
	ports    PortSource
	selfPID  int
	logger   *logging.Logger
}

// NewSystemLister creates a SystemLister. ports may be nil.
func NewSystemLister(commands CommandSource, ports PortSource, logger *logging.Logger) *SystemLister {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &SystemLister{
		commands: commands,
		ports:    ports,
		selfPID:  os.Getpid(),
		logger:   logger.WithComponent("proclist"),
	}
}

// NewLister picks procfs for command lines on Linux and ps elsewhere, with
// lsof for listening ports.
func NewLister(runner shell.Runner, lsofPath string, logger *logging.Logger) *SystemLister {
	ps := NewPsSource(runner)
	ps.Logger = logger
	var commands CommandSource = ps
	if runtime.GOOS == "linux" {
		if src, err := NewProcfsSource(""); err == nil {
			commands = src
		}
	}
	ports := NewLsofPortSource(runner, lsofPath)
	ports.Logger = logger
	return NewSystemLister(commands, ports, logger)
}

// List implements Lister. Records are sorted by pid and never include the
// calling process.
func (l *SystemLister) List(ctx context.Context) ([]Record, error) {
	cmds, err := l.commands.Commands(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processes")
	}

	var ports map[int]int
	if l.ports != nil {
		ports, err = l.ports.ListeningPorts(ctx)
		if err != nil {
			switch {
			case errors.IsToolUnavailable(err):
				l.logger.Debug("listening ports unavailable", "error", err)
			case errors.IsToolTimeout(err):
				l.logger.Warn("listening port lookup timed out",
					"error", err, "retryable", errors.IsRetryable(err))
			default:
				l.logger.Warn("listening port lookup failed", "error", err)
			}
		}
	}

	records := make([]Record, 0, len(cmds))
	for pid, cmd := range cmds {
		if pid == l.selfPID || cmd == "" {
			continue
		}
		records = append(records, Record{PID: pid, Command: cmd, Port: ports[pid]})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
	return records, nil
}
