package resolve

import (
	"context"

	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/prometheus/procfs"
)

// ProcfsCwdLookup resolves working directories by reading /proc/<pid>/cwd.
// It spawns no processes, so a batch costs one pass over the requested pids.
type ProcfsCwdLookup struct {
	fs procfs.FS
}

// NewProcfsCwdLookup opens the proc filesystem at mountPoint.
// An empty mountPoint means procfs.DefaultMountPoint.
func NewProcfsCwdLookup(mountPoint string) (*ProcfsCwdLookup, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.NewResolverError("procfs", "open "+mountPoint, errors.Join(errors.ErrToolUnavailable, err))
	}
	return &ProcfsCwdLookup{fs: fs}, nil
}

// LookupCwds implements CwdLookup. Pids that have exited or belong to
// another user are left out of the result.
func (l *ProcfsCwdLookup) LookupCwds(ctx context.Context, pids []int) (map[int]string, error) {
	result := make(map[int]string, len(pids))
	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return result, errors.NewResolverError("procfs", "cwd lookup", errors.ErrToolTimeout)
		}
		proc, err := l.fs.Proc(pid)
		if err != nil {
			continue
		}
		cwd, err := proc.Cwd()
		if err != nil || cwd == "" {
			continue
		}
		result[pid] = cwd
	}
	return result, nil
}
