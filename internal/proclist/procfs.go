package proclist

import (
	"context"
	"strings"

	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/prometheus/procfs"
)

// ProcfsSource reads command lines from /proc/<pid>/cmdline.
type ProcfsSource struct {
	fs procfs.FS
}

// NewProcfsSource opens the proc filesystem at mountPoint.
// An empty mountPoint means procfs.DefaultMountPoint.
func NewProcfsSource(mountPoint string) (*ProcfsSource, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.NewResolverError("procfs", "open "+mountPoint, errors.Join(errors.ErrToolUnavailable, err))
	}
	return &ProcfsSource{fs: fs}, nil
}

// Commands implements CommandSource. Kernel threads, which have an empty
// cmdline, and processes that exit mid-scan are skipped.
func (s *ProcfsSource) Commands(ctx context.Context) (map[int]string, error) {
	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, errors.NewResolverError("procfs", "list processes", err)
	}

	result := make(map[int]string, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			return result, errors.NewResolverError("procfs", "list processes", errors.ErrToolTimeout)
		}
		args, err := p.CmdLine()
		if err != nil || len(args) == 0 {
			continue
		}
		result[p.PID] = strings.Join(args, " ")
	}
	return result, nil
}
