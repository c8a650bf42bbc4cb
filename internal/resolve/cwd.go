package resolve

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/Iron-Ham/devtop/internal/cache"
	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/shell"
)

// CwdLookup resolves many pids to working directories in one query.
// Implementations may return a partial map together with an error.
type CwdLookup interface {
	LookupCwds(ctx context.Context, pids []int) (map[int]string, error)
}

// Cwd source names accepted by NewCwdLookup.
const (
	CwdSourceAuto   = "auto"
	CwdSourceLsof   = "lsof"
	CwdSourceProcfs = "procfs"
)

// NewCwdLookup picks a CwdLookup for source. "auto" prefers procfs on Linux
// and falls back to lsof when /proc cannot be opened or on other systems.
// logger receives lsof parse skips and may be nil.
func NewCwdLookup(source string, runner shell.Runner, lsofPath string, logger *logging.Logger) CwdLookup {
	lsof := NewLsofCwdLookup(runner, lsofPath)
	lsof.Logger = logger
	switch source {
	case CwdSourceLsof:
		return lsof
	case CwdSourceProcfs:
		if l, err := NewProcfsCwdLookup(""); err == nil {
			return l
		}
		return lsof
	default:
		if runtime.GOOS == "linux" {
			if l, err := NewProcfsCwdLookup(""); err == nil {
				return l
			}
		}
		return lsof
	}
}

// CwdResolver batches working-directory lookups behind a per-pid TTL cache.
// It is safe for concurrent use.
type CwdResolver struct {
	lookup  CwdLookup
	cache   *cache.TTLCache[int, string]
	timeout time.Duration
	logger  *logging.Logger
}

// NewCwdResolver creates a CwdResolver over lookup.
func NewCwdResolver(lookup CwdLookup, opts ...Option) *CwdResolver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CwdResolver{
		lookup:  lookup,
		cache:   cache.New[int, string](DefaultCwdCacheSize, o.ttl, cache.WithClock(o.clock)),
		timeout: o.timeout,
		logger:  o.logger.WithComponent("cwd"),
	}
}

// ResolveBatch returns the working directory of every pid it can resolve.
// Cached pids are served locally and the rest are fetched with a single
// lookup call. Pids that cannot be resolved are absent from the result.
func (r *CwdResolver) ResolveBatch(ctx context.Context, pids []int) map[int]string {
	result := make(map[int]string, len(pids))
	var missing []int
	seen := make(map[int]struct{}, len(pids))

	for _, pid := range pids {
		if pid <= 0 {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		if cwd, ok := r.cache.Get(pid); ok {
			result[pid] = cwd
			continue
		}
		missing = append(missing, pid)
	}
	if len(missing) == 0 {
		return result
	}
	sort.Ints(missing)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	found, err := r.lookup.LookupCwds(ctx, missing)
	if err != nil {
		logFailure(r.logger, "cwd lookup degraded", err)
	}
	for pid, cwd := range found {
		if _, requested := seen[pid]; !requested || cwd == "" {
			continue
		}
		r.cache.Set(pid, cwd)
		result[pid] = cwd
	}
	return result
}

// Resolve returns the working directory of a single pid.
func (r *CwdResolver) Resolve(ctx context.Context, pid int) (string, bool) {
	cwd, ok := r.ResolveBatch(ctx, []int{pid})[pid]
	return cwd, ok
}

// Clear drops every cached directory.
func (r *CwdResolver) Clear() {
	r.cache.Clear()
}

// Len returns the number of cached directories.
func (r *CwdResolver) Len() int {
	return r.cache.Len()
}
