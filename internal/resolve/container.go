package resolve

import (
	"context"
	"time"

	"github.com/Iron-Ham/devtop/internal/cache"
	"github.com/Iron-Ham/devtop/internal/inflight"
	"github.com/Iron-Ham/devtop/internal/logging"
)

const snapshotKey = "containers"

// ContainerPortResolver maps listening ports to containers. The full
// container list is fetched once and cached as a snapshot for the TTL, so
// every port lookup inside that window is answered locally.
// It is safe for concurrent use.
type ContainerPortResolver struct {
	lookup   ContainerLookup
	snapshot *cache.TTLCache[string, []Container]
	fetches  *inflight.Registry[[]Container]
	timeout  time.Duration
	logger   *logging.Logger
}

// NewContainerPortResolver creates a ContainerPortResolver over lookup.
func NewContainerPortResolver(lookup ContainerLookup, opts ...Option) *ContainerPortResolver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ContainerPortResolver{
		lookup:   lookup,
		snapshot: cache.New[string, []Container](1, o.ttl, cache.WithClock(o.clock)),
		fetches:  inflight.New[[]Container](),
		timeout:  o.timeout,
		logger:   o.logger.WithComponent("containers"),
	}
}

// ResolveBatch returns the container publishing each requested port.
// Ports with no matching container are absent. With no runtime installed
// or no containers running the result is empty.
func (r *ContainerPortResolver) ResolveBatch(ctx context.Context, ports []int) map[int]Container {
	if len(ports) == 0 {
		return map[int]Container{}
	}
	containers, ok := r.containers(ctx)
	if !ok || len(containers) == 0 {
		return map[int]Container{}
	}
	return MatchPorts(containers, ports)
}

// containers returns the cached snapshot or fetches a fresh one. Concurrent
// callers share one fetch. Failed fetches are not cached.
func (r *ContainerPortResolver) containers(ctx context.Context) ([]Container, bool) {
	if snap, ok := r.snapshot.Get(snapshotKey); ok {
		return snap, true
	}

	snap, err := r.fetches.GetOrStart(snapshotKey, func() ([]Container, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		list, err := r.lookup.ListContainers(fetchCtx)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []Container{}
		}
		r.snapshot.Set(snapshotKey, list)
		r.logger.Debug("container snapshot refreshed", "containers", len(list))
		return list, nil
	})
	if err != nil {
		logFailure(r.logger, "container lookup degraded", err)
		return nil, false
	}
	return snap, true
}

// Clear drops the cached snapshot.
func (r *ContainerPortResolver) Clear() {
	r.snapshot.Clear()
}

// Len returns the number of containers in the cached snapshot, or 0 when
// there is none.
func (r *ContainerPortResolver) Len() int {
	if snap, ok := r.snapshot.Get(snapshotKey); ok {
		return len(snap)
	}
	return 0
}
