package identify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/resolve"
	"github.com/Iron-Ham/devtop/internal/testutil"
)

// countingCwdLookup stands in for lsof. An optional gate blocks every call
// until it is closed.
type countingCwdLookup struct {
	dirs    map[int]string
	err     error
	gate    chan struct{}
	calls   atomic.Int32
	entered chan struct{}
	once    sync.Once
}

func (f *countingCwdLookup) LookupCwds(_ context.Context, pids []int) (map[int]string, error) {
	f.calls.Add(1)
	if f.entered != nil {
		f.once.Do(func() { close(f.entered) })
	}
	if f.gate != nil {
		<-f.gate
	}
	out := make(map[int]string)
	for _, pid := range pids {
		if d, ok := f.dirs[pid]; ok {
			out[pid] = d
		}
	}
	return out, f.err
}

// countingContainerLookup stands in for docker.
type countingContainerLookup struct {
	containers []resolve.Container
	err        error
	calls      atomic.Int32
}

func (f *countingContainerLookup) ListContainers(context.Context) ([]resolve.Container, error) {
	f.calls.Add(1)
	return f.containers, f.err
}

type harness struct {
	engine     *Engine
	cwd        *countingCwdLookup
	containers *countingContainerLookup
	clock      *testutil.FakeClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		cwd:        &countingCwdLookup{dirs: map[int]string{}},
		containers: &countingContainerLookup{},
		clock:      testutil.NewFakeClock(),
	}
	cwdResolver := resolve.NewCwdResolver(h.cwd, resolve.WithClock(h.clock))
	containerResolver := resolve.NewContainerPortResolver(h.containers, resolve.WithClock(h.clock))
	opts = append([]Option{WithClock(h.clock)}, opts...)
	h.engine = NewEngine(cwdResolver, containerResolver, opts...)
	return h
}

func TestEngine_Identify_Scenarios(t *testing.T) {
	t.Run("app bundle version marker", func(t *testing.T) {
		h := newHarness(t)
		got := h.engine.Identify(context.Background(), ProcessQuery{
			PID:     100,
			Command: "/Applications/Warp.app/Contents/MacOS/stable",
		})
		if got.DisplayName != "Warp" || got.Category != CategoryApp {
			t.Errorf("Identify() = %+v, want Warp/app", got)
		}
	})

	t.Run("project from command line with entry point collapse", func(t *testing.T) {
		h := newHarness(t)
		got := h.engine.Identify(context.Background(), ProcessQuery{
			PID:     200,
			Command: "node /repositories/myapp/dist/server.js",
		})
		want := IdentifiedProcess{DisplayName: "node:myapp", Category: CategoryScript, Project: "myapp"}
		if got != want {
			t.Errorf("Identify() = %+v, want %+v", got, want)
		}
	})

	t.Run("resolved cwd supplies the project", func(t *testing.T) {
		h := newHarness(t)
		h.cwd.dirs[300] = "/Users/me/code/billing"
		got := h.engine.Identify(context.Background(), ProcessQuery{PID: 300, Command: "npm run dev", Port: 3000})
		if got.DisplayName != "npm:dev" || got.Project != "billing" || got.Port != 3000 {
			t.Errorf("Identify() = %+v", got)
		}
	})

	t.Run("supplied cwd skips lookup", func(t *testing.T) {
		h := newHarness(t)
		got := h.engine.Identify(context.Background(), ProcessQuery{PID: 301, Command: "claude", Cwd: "/Users/me/code/api"})
		if got.DisplayName != "claude:api" {
			t.Errorf("Identify() = %+v", got)
		}
		if n := h.cwd.calls.Load(); n != 0 {
			t.Errorf("cwd lookup called %d times, want 0", n)
		}
	})

	t.Run("container by port", func(t *testing.T) {
		h := newHarness(t)
		h.containers.containers = []resolve.Container{{Name: "web-app", Image: "nginx:1.27", Ports: "0.0.0.0:8080->80/tcp"}}
		got := h.engine.Identify(context.Background(), ProcessQuery{PID: 400, Command: "com.docker.backend", Port: 8080})
		if got.DisplayName != "docker:web-app" || got.Category != CategoryContainer {
			t.Errorf("Identify() = %+v", got)
		}
		if got.ContainerInfo == nil || got.ContainerInfo.Image != "nginx:1.27" {
			t.Errorf("ContainerInfo = %+v", got.ContainerInfo)
		}
	})

	t.Run("fallback basename keeps project", func(t *testing.T) {
		h := newHarness(t)
		h.cwd.dirs[500] = "/Users/me/code/infra"
		got := h.engine.Identify(context.Background(), ProcessQuery{PID: 500, Command: "/usr/local/bin/terraform apply"})
		want := IdentifiedProcess{DisplayName: "terraform", Category: CategorySystem, Project: "infra"}
		if got != want {
			t.Errorf("Identify() = %+v, want %+v", got, want)
		}
	})
}

func TestEngine_Identify_CacheHit(t *testing.T) {
	h := newHarness(t)
	h.cwd.dirs[1] = "/Users/me/code/api"
	q := ProcessQuery{PID: 1, Command: "node scripts/seed.js"}

	first := h.engine.Identify(context.Background(), q)
	callsAfterFirst := h.cwd.calls.Load()

	second := h.engine.Identify(context.Background(), q)
	third := h.engine.Identify(context.Background(), q)

	if first != second || second != third {
		t.Errorf("results differ: %+v, %+v, %+v", first, second, third)
	}
	if got := h.cwd.calls.Load(); got != callsAfterFirst {
		t.Errorf("cwd lookup called again on cache hit: %d -> %d", callsAfterFirst, got)
	}
	if s := h.engine.CacheStats(); s.Hits < 2 {
		t.Errorf("CacheStats().Hits = %d, want >= 2", s.Hits)
	}
}

func TestEngine_Identify_Expiry(t *testing.T) {
	h := newHarness(t, WithCacheTTL(60*time.Second))
	h.cwd.dirs[1] = "/Users/me/code/api"
	q := ProcessQuery{PID: 1, Command: "node scripts/seed.js"}

	h.engine.Identify(context.Background(), q)
	if n := h.cwd.calls.Load(); n != 1 {
		t.Fatalf("cwd lookup called %d times, want 1", n)
	}

	h.clock.Advance(59 * time.Second)
	h.engine.Identify(context.Background(), q)
	if n := h.cwd.calls.Load(); n != 1 {
		t.Errorf("resolved again inside TTL: %d calls", n)
	}

	// Past both the engine TTL and the cwd resolver's own 30s TTL.
	h.clock.Advance(2 * time.Second)
	h.engine.Identify(context.Background(), q)
	if n := h.cwd.calls.Load(); n != 2 {
		t.Errorf("cwd lookup called %d times after expiry, want 2", n)
	}
}

func TestEngine_Identify_DeduplicatesConcurrentMisses(t *testing.T) {
	const callers = 20
	h := newHarness(t)
	h.cwd.dirs[9] = "/Users/me/code/api"
	h.cwd.gate = make(chan struct{})
	h.cwd.entered = make(chan struct{})
	q := ProcessQuery{PID: 9, Command: "node worker.js"}

	var wg sync.WaitGroup
	results := make([]IdentifiedProcess, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.engine.Identify(context.Background(), q)
		}(i)
	}

	<-h.cwd.entered
	time.Sleep(50 * time.Millisecond)
	if s := h.engine.CacheStats(); s.InFlight != 1 {
		t.Errorf("CacheStats().InFlight = %d, want 1", s.InFlight)
	}
	close(h.cwd.gate)
	wg.Wait()

	if n := h.cwd.calls.Load(); n != 1 {
		t.Errorf("resolution ran %d times for %d concurrent callers, want 1", n, callers)
	}
	for i, r := range results {
		if r.DisplayName != "node:worker" {
			t.Errorf("caller %d got %+v", i, r)
		}
	}
	if s := h.engine.CacheStats(); s.InFlight != 0 {
		t.Errorf("in-flight registration leaked: %d", s.InFlight)
	}
}

func TestEngine_Identify_CallerCancellationDoesNotPoisonJoiners(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := h.engine.Identify(ctx, ProcessQuery{PID: 5, Command: "redis-server *:6379", Port: 6379})
	if got.DisplayName != "redis-server:6379" {
		t.Errorf("Identify() with cancelled context = %+v", got)
	}
}

func TestEngine_GracefulDegradation(t *testing.T) {
	h := newHarness(t)
	h.containers.err = errors.NewResolverError("docker", "docker ps", errors.ErrToolUnavailable).
		WithOutput("zsh: command not found: docker")
	h.cwd.err = errors.NewResolverError("lsof", "cwd lookup", errors.ErrToolUnavailable)

	got := h.engine.Identify(context.Background(), ProcessQuery{PID: 77, Command: "postgres -D /data", Port: 5432})

	if got.Category == CategoryContainer || got.ContainerInfo != nil {
		t.Errorf("Identify() = %+v, want non-container fallback", got)
	}
	if got.DisplayName != "postgres:5432" || got.Category != CategoryDatabase {
		t.Errorf("Identify() = %+v, want postgres:5432/database", got)
	}
}

func TestEngine_IdentifyBatch_CallBounds(t *testing.T) {
	h := newHarness(t)
	h.containers.containers = []resolve.Container{
		{Name: "db", Image: "postgres:16", Ports: "0.0.0.0:5432->5432/tcp"},
		{Name: "cache", Image: "redis:7", Ports: "0.0.0.0:6379->6379/tcp"},
	}

	var queries []ProcessQuery
	for i := 0; i < 30; i++ {
		pid := 1000 + i
		h.cwd.dirs[pid] = fmt.Sprintf("/Users/me/code/svc%d", i)
		q := ProcessQuery{PID: pid, Command: fmt.Sprintf("node worker%d.js", i)}
		switch i % 3 {
		case 0:
			q.Port = 5432
		case 1:
			q.Port = 6379
		}
		queries = append(queries, q)
	}

	results := h.engine.IdentifyBatch(context.Background(), queries)

	if len(results) != len(queries) {
		t.Fatalf("IdentifyBatch() returned %d results, want %d", len(results), len(queries))
	}
	if n := h.cwd.calls.Load(); n != 1 {
		t.Errorf("cwd lookup called %d times, want 1", n)
	}
	if n := h.containers.calls.Load(); n != 1 {
		t.Errorf("container lookup called %d times, want 1", n)
	}
	if got := results[1000].DisplayName; got != "docker:db" {
		t.Errorf("results[1000] = %q, want docker:db", got)
	}
	if got := results[1001].DisplayName; got != "docker:cache" {
		t.Errorf("results[1001] = %q, want docker:cache", got)
	}
	if got := results[1002]; got.DisplayName != "node:worker2" || got.Project != "svc2" {
		t.Errorf("results[1002] = %+v", got)
	}

	// A second batch is served from cache.
	h.engine.IdentifyBatch(context.Background(), queries)
	if h.cwd.calls.Load() != 1 || h.containers.calls.Load() != 1 {
		t.Errorf("cached batch issued lookups: cwd=%d containers=%d", h.cwd.calls.Load(), h.containers.calls.Load())
	}
}

func TestEngine_IdentifyBatch_SharedPortSharesContainer(t *testing.T) {
	h := newHarness(t)
	h.containers.containers = []resolve.Container{{Name: "db", Image: "postgres:16", Ports: "0.0.0.0:5432->5432/tcp"}}

	var queries []ProcessQuery
	for i := 0; i < 10; i++ {
		queries = append(queries, ProcessQuery{PID: 2000 + i, Command: "com.docker.backend", Port: 5432})
	}
	results := h.engine.IdentifyBatch(context.Background(), queries)

	if n := h.containers.calls.Load(); n != 1 {
		t.Errorf("container lookup called %d times, want 1", n)
	}
	for pid, r := range results {
		if r.ContainerInfo == nil || *r.ContainerInfo != (ContainerInfo{Name: "db", Image: "postgres:16"}) {
			t.Errorf("pid %d ContainerInfo = %+v", pid, r.ContainerInfo)
		}
	}
}

func TestEngine_IdentifyBatch_MissingPrefetchIsNotRequeried(t *testing.T) {
	h := newHarness(t)
	h.cwd.dirs[1] = "/Users/me/code/a"

	results := h.engine.IdentifyBatch(context.Background(), []ProcessQuery{
		{PID: 1, Command: "node a.js"},
		{PID: 2, Command: "node b.js"},
		{PID: 3, Command: "node c.js", Cwd: "/Users/me/code/c"},
	})

	if n := h.cwd.calls.Load(); n != 1 {
		t.Errorf("cwd lookup called %d times, want 1", n)
	}
	if results[1].Project != "a" || results[2].Project != "" || results[3].Project != "c" {
		t.Errorf("projects = %q, %q, %q", results[1].Project, results[2].Project, results[3].Project)
	}
}

func TestEngine_IdentifyBatch_NoLookupsWithoutPorts(t *testing.T) {
	h := newHarness(t)
	h.engine.IdentifyBatch(context.Background(), []ProcessQuery{{PID: 1, Command: "zsh"}})

	if n := h.containers.calls.Load(); n != 0 {
		t.Errorf("container lookup called %d times with no ports, want 0", n)
	}
}

func TestEngine_NilResolvers(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.Identify(context.Background(), ProcessQuery{PID: 1, Command: "node /repositories/x/index.js", Port: 3000})
	if got.DisplayName != "node:x" {
		t.Errorf("Identify() = %+v", got)
	}
	batch := e.IdentifyBatch(context.Background(), []ProcessQuery{{PID: 2, Command: "vite", Port: 5173}})
	if batch[2].DisplayName != "vite" {
		t.Errorf("IdentifyBatch() = %+v", batch)
	}
	if s := e.CacheStats(); s.CwdEntries != 0 || s.ContainerEntries != 0 {
		t.Errorf("CacheStats() = %+v", s)
	}
}

func TestEngine_LRUEviction(t *testing.T) {
	h := newHarness(t, WithCacheSize(2))
	ctx := context.Background()
	a := ProcessQuery{PID: 1, Command: "zsh", Cwd: "/tmp"}
	b := ProcessQuery{PID: 2, Command: "zsh", Cwd: "/tmp"}
	c := ProcessQuery{PID: 3, Command: "zsh", Cwd: "/tmp"}

	h.engine.Identify(ctx, a)
	h.engine.Identify(ctx, b)
	h.engine.Identify(ctx, a)
	h.engine.Identify(ctx, c)

	s := h.engine.CacheStats()
	if s.Entries != 2 || s.Evictions != 1 {
		t.Errorf("CacheStats() = %+v, want 2 entries and 1 eviction", s)
	}
	if _, ok := h.engine.cache.Get(CacheKey(b, DefaultKeyPrefixLength)); ok {
		t.Error("least recently used entry b survived")
	}
	if _, ok := h.engine.cache.Get(CacheKey(a, DefaultKeyPrefixLength)); !ok {
		t.Error("recently used entry a was evicted")
	}
}

func TestEngine_ClearCacheAndStats(t *testing.T) {
	h := newHarness(t)
	h.cwd.dirs[1] = "/Users/me/code/a"
	h.containers.containers = []resolve.Container{{Name: "db", Image: "pg", Ports: "0.0.0.0:5432->5432/tcp"}}

	h.engine.IdentifyBatch(context.Background(), []ProcessQuery{
		{PID: 1, Command: "node a.js"},
		{PID: 2, Command: "postgres", Port: 5432},
	})

	s := h.engine.CacheStats()
	if s.Entries != 2 || s.CwdEntries != 1 || s.ContainerEntries != 1 {
		t.Errorf("CacheStats() = %+v", s)
	}

	h.engine.ClearCache()
	s = h.engine.CacheStats()
	if s.Entries != 0 || s.CwdEntries != 0 || s.ContainerEntries != 0 {
		t.Errorf("CacheStats() after ClearCache = %+v", s)
	}
}

type panickingRule struct{}

func (panickingRule) Name() string { return "panics" }

func (panickingRule) Match(string) (Match, bool) { return Match{}, true }

func (panickingRule) Build(Match, MatchContext) IdentifiedProcess { panic("bad rule") }

func TestEngine_PanickingRuleFallsBack(t *testing.T) {
	e := NewEngine(nil, nil, WithMatcher(NewMatcher(panickingRule{})))

	got := e.Identify(context.Background(), ProcessQuery{PID: 1, Command: "/usr/bin/thing --flag"})
	if got.DisplayName != "thing" || got.Category != CategorySystem {
		t.Errorf("Identify() = %+v, want basename fallback", got)
	}
}
