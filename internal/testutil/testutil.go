// Package testutil provides testing utilities for devtop tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/devtop/internal/logging"
)

// FakeClock is a manually advanced clock for TTL tests.
// It is safe for concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock starting at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Response is a canned result for FakeRunner.
type Response struct {
	Output string
	Err    error
	// Delay simulates a slow tool. The call returns ctx.Err() if the
	// context ends first.
	Delay time.Duration
}

// FakeRunner replays canned command output and records every invocation.
// Responses are keyed by command name (e.g. "lsof", "docker").
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
}

// NewFakeRunner creates an empty FakeRunner. Commands without a canned
// response return empty output and no error.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// Set registers the response for a command name.
func (f *FakeRunner) Set(name string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = resp
}

// Run implements shell.Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	resp := f.responses[name]
	f.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte(resp.Output), resp.Err
}

// Calls returns the full command lines run so far.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times the named command ran.
func (f *FakeRunner) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name || strings.HasPrefix(c, name+" ") {
			n++
		}
	}
	return n
}

// NewCaptureLogger returns a debug-level logger writing into a temp dir and
// a function that closes it and returns everything it wrote.
func NewCaptureLogger(t *testing.T) (*logging.Logger, func() string) {
	t.Helper()
	dir := t.TempDir()
	logger, err := logging.NewLogger(dir, logging.LevelDebug, logging.DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	return logger, func() string {
		t.Helper()
		_ = logger.Close()
		content, err := os.ReadFile(filepath.Join(dir, logging.FileName))
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		return string(content)
	}
}
