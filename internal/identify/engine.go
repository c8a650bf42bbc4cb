package identify

import (
	"context"
	"time"

	"github.com/Iron-Ham/devtop/internal/cache"
	"github.com/Iron-Ham/devtop/internal/inflight"
	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/resolve"
	"github.com/sourcegraph/conc"
)

// Engine defaults.
const (
	DefaultCacheTTL  = 60 * time.Second
	DefaultCacheSize = 500
)

// CwdResolver resolves many pids to working directories with one external
// query. Missing pids are unknown.
type CwdResolver interface {
	ResolveBatch(ctx context.Context, pids []int) map[int]string
	Clear()
	Len() int
}

// ContainerResolver resolves many ports to containers with one external
// query. Missing ports have no container.
type ContainerResolver interface {
	ResolveBatch(ctx context.Context, ports []int) map[int]resolve.Container
	Clear()
	Len() int
}

// CacheStats is a diagnostics snapshot of the engine's caches.
type CacheStats struct {
	Entries          int    `json:"entries"`
	CwdEntries       int    `json:"cwd_entries"`
	ContainerEntries int    `json:"container_entries"`
	InFlight         int    `json:"in_flight"`
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	Evictions        uint64 `json:"evictions"`
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cacheTTL  time.Duration
	cacheSize int
	keyPrefix int
	clock     cache.Clock
	matcher   *Matcher
	logger    *logging.Logger
}

// WithCacheTTL sets how long identified processes stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *engineOptions) { o.cacheTTL = ttl }
}

// WithCacheSize sets the maximum number of cached identifications.
func WithCacheSize(n int) Option {
	return func(o *engineOptions) { o.cacheSize = n }
}

// WithKeyPrefixLength sets how many runes of the command line go into a
// cache key.
func WithKeyPrefixLength(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.keyPrefix = n
		}
	}
}

// WithClock overrides the cache clock.
func WithClock(c cache.Clock) Option {
	return func(o *engineOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMatcher replaces the default rule set.
func WithMatcher(m *Matcher) Option {
	return func(o *engineOptions) {
		if m != nil {
			o.matcher = m
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *engineOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Engine turns process queries into labels. It owns the identification
// cache and the in-flight registry; resolvers are injected.
// It is safe for concurrent use.
type Engine struct {
	cache      *cache.TTLCache[string, IdentifiedProcess]
	inflight   *inflight.Registry[IdentifiedProcess]
	cwd        CwdResolver
	containers ContainerResolver
	matcher    *Matcher
	keyPrefix  int
	logger     *logging.Logger
}

// NewEngine creates an Engine. Either resolver may be nil, in which case
// that kind of context is never resolved.
func NewEngine(cwd CwdResolver, containers ContainerResolver, opts ...Option) *Engine {
	o := engineOptions{
		cacheTTL:  DefaultCacheTTL,
		cacheSize: DefaultCacheSize,
		keyPrefix: DefaultKeyPrefixLength,
		clock:     cache.SystemClock,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.matcher == nil {
		o.matcher = NewMatcher()
	}
	return &Engine{
		cache:      cache.New[string, IdentifiedProcess](o.cacheSize, o.cacheTTL, cache.WithClock(o.clock)),
		inflight:   inflight.New[IdentifiedProcess](),
		cwd:        cwd,
		containers: containers,
		matcher:    o.matcher,
		keyPrefix:  o.keyPrefix,
		logger:     o.logger.WithComponent("engine"),
	}
}

// prefetched holds context fetched up front for a batch.
type prefetched struct {
	cwds       map[int]string
	containers map[int]resolve.Container
}

// Identify labels a single process. It never fails: any resolver problem
// yields a less specific label.
func (e *Engine) Identify(ctx context.Context, q ProcessQuery) IdentifiedProcess {
	key := CacheKey(q, e.keyPrefix)
	if p, ok := e.cache.Get(key); ok {
		return p
	}
	return e.resolveShared(ctx, q, key, nil)
}

// IdentifyBatch labels many processes, keyed by pid. Context for all cache
// misses is fetched before matching with at most one working-directory query
// and at most one container query, however many processes are passed.
func (e *Engine) IdentifyBatch(ctx context.Context, queries []ProcessQuery) map[int]IdentifiedProcess {
	results := make(map[int]IdentifiedProcess, len(queries))

	var misses []ProcessQuery
	var keys []string
	for _, q := range queries {
		key := CacheKey(q, e.keyPrefix)
		if p, ok := e.cache.Get(key); ok {
			results[q.PID] = p
			continue
		}
		misses = append(misses, q)
		keys = append(keys, key)
	}
	if len(misses) == 0 {
		return results
	}

	pre := e.prefetch(ctx, misses)
	for i, q := range misses {
		results[q.PID] = e.resolveShared(ctx, q, keys[i], pre)
	}
	return results
}

// prefetch resolves working directories and containers for queries
// concurrently, one batch call each.
func (e *Engine) prefetch(ctx context.Context, queries []ProcessQuery) *prefetched {
	var pids, ports []int
	seenPID := make(map[int]struct{})
	seenPort := make(map[int]struct{})
	for _, q := range queries {
		if q.Cwd == "" && q.PID > 0 {
			if _, ok := seenPID[q.PID]; !ok {
				seenPID[q.PID] = struct{}{}
				pids = append(pids, q.PID)
			}
		}
		if q.Port > 0 {
			if _, ok := seenPort[q.Port]; !ok {
				seenPort[q.Port] = struct{}{}
				ports = append(ports, q.Port)
			}
		}
	}

	pre := &prefetched{}
	var wg conc.WaitGroup
	if len(pids) > 0 && e.cwd != nil {
		wg.Go(func() { pre.cwds = e.cwd.ResolveBatch(ctx, pids) })
	}
	if len(ports) > 0 && e.containers != nil {
		wg.Go(func() { pre.containers = e.containers.ResolveBatch(ctx, ports) })
	}
	if r := wg.WaitAndRecover(); r != nil {
		e.logger.Error("context prefetch panicked", "panic", r.String())
	}
	return pre
}

// resolveShared resolves a cache miss through the in-flight registry so
// concurrent misses on the same key share one resolution.
func (e *Engine) resolveShared(ctx context.Context, q ProcessQuery, key string, pre *prefetched) IdentifiedProcess {
	// Joiners share the first caller's result, so the producer must not
	// depend on that caller's cancellation.
	detached := context.WithoutCancel(ctx)
	p, err := e.inflight.GetOrStart(key, func() (IdentifiedProcess, error) {
		start := time.Now()
		p := e.resolve(detached, q, pre)
		e.cache.Set(key, p)
		e.logger.Debug("identified process",
			"pid", q.PID,
			"label", p.DisplayName,
			"category", p.Category.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return p, nil
	})
	if err != nil {
		e.logger.Warn("identification failed", "pid", q.PID, "error", err)
		return Fallback(q.Command, "", q.Port)
	}
	return p
}

// resolve applies, in order: container by port, pattern rules with cwd and
// project context, and the executable basename.
func (e *Engine) resolve(ctx context.Context, q ProcessQuery, pre *prefetched) IdentifiedProcess {
	if q.Port > 0 {
		if c, ok := e.lookupContainer(ctx, q.Port, pre); ok {
			return IdentifiedProcess{
				DisplayName:   "docker:" + c.Name,
				Category:      CategoryContainer,
				Port:          q.Port,
				ContainerInfo: &ContainerInfo{Name: c.Name, Image: c.Image},
			}
		}
	}

	cwd := q.Cwd
	if cwd == "" {
		cwd = e.lookupCwd(ctx, q.PID, pre)
	}
	project := ExtractProjectName(cwd, q.Command)

	if p, ok := e.matcher.Apply(q.Command, MatchContext{Cwd: cwd, Project: project, Port: q.Port}); ok {
		p.Port = q.Port
		return p
	}
	return Fallback(q.Command, project, q.Port)
}

// lookupContainer consults the batch prefetch when there is one and never
// queries again for a port it left out.
func (e *Engine) lookupContainer(ctx context.Context, port int, pre *prefetched) (resolve.Container, bool) {
	if pre != nil {
		c, ok := pre.containers[port]
		return c, ok
	}
	if e.containers == nil {
		return resolve.Container{}, false
	}
	c, ok := e.containers.ResolveBatch(ctx, []int{port})[port]
	return c, ok
}

func (e *Engine) lookupCwd(ctx context.Context, pid int, pre *prefetched) string {
	if pre != nil {
		return pre.cwds[pid]
	}
	if e.cwd == nil || pid <= 0 {
		return ""
	}
	return e.cwd.ResolveBatch(ctx, []int{pid})[pid]
}

// ClearCache drops every cached identification and resolver result.
func (e *Engine) ClearCache() {
	e.cache.Clear()
	if e.cwd != nil {
		e.cwd.Clear()
	}
	if e.containers != nil {
		e.containers.Clear()
	}
}

// CacheStats returns a diagnostics snapshot.
func (e *Engine) CacheStats() CacheStats {
	s := e.cache.Stats()
	stats := CacheStats{
		Entries:   s.Entries,
		InFlight:  e.inflight.Active(),
		Hits:      s.Hits,
		Misses:    s.Misses,
		Evictions: s.Evictions,
	}
	if e.cwd != nil {
		stats.CwdEntries = e.cwd.Len()
	}
	if e.containers != nil {
		stats.ContainerEntries = e.containers.Len()
	}
	return stats
}
