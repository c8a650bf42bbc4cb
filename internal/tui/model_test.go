package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/devtop/internal/monitor"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeSource struct {
	mu      sync.Mutex
	snap    monitor.Snapshot
	err     error
	calls   int
	filters []monitor.Filter
	cleared int
}

func (f *fakeSource) Snapshot(ctx context.Context, filter monitor.Filter) (monitor.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.filters = append(f.filters, filter)
	return f.snap, f.err
}

func (f *fakeSource) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func newTestModel(src *fakeSource) Model {
	return NewModel(context.Background(), src, monitor.Filter{}, "", time.Second)
}

func TestModel_SnapshotMsg(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(src)

	snap := monitor.Snapshot{Rows: sampleRows(), Total: 9, TakenAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m, _ = update(t, m, snapshotMsg{snapshot: snap})

	if m.loading {
		t.Error("loading should be false after a snapshot arrives")
	}
	view := m.View()
	for _, want := range []string{"devtop", "2 of 9 processes", "03:04:05", "next", "api-db"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_SnapshotError(t *testing.T) {
	m := newTestModel(&fakeSource{})
	m, _ = update(t, m, snapshotMsg{err: errors.New("ps missing")})

	if !strings.Contains(m.View(), "Refresh failed: ps missing") {
		t.Errorf("view should show the refresh error:\n%s", m.View())
	}
	if m.hasData {
		t.Error("hasData should stay false after a failed first refresh")
	}
}

func TestModel_InitialView(t *testing.T) {
	m := newTestModel(&fakeSource{})
	if !strings.Contains(m.View(), "Scanning processes") {
		t.Errorf("initial view should show scanning:\n%s", m.View())
	}
	if m.Init() == nil {
		t.Error("Init() should return a command")
	}
}

func TestModel_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{keyMsg("q"), {Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		t.Run(key.String(), func(t *testing.T) {
			_, cmd := update(t, newTestModel(&fakeSource{}), key)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Errorf("cmd() = %T, want tea.QuitMsg", cmd())
			}
		})
	}
}

func TestModel_RefreshKey(t *testing.T) {
	src := &fakeSource{snap: monitor.Snapshot{Total: 1}}
	m := newTestModel(src)
	m, _ = update(t, m, snapshotMsg{})

	m, cmd := update(t, m, keyMsg("r"))
	if !m.loading || cmd == nil {
		t.Fatal("r should start a refresh")
	}
	msg := cmd()
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}

	// A second r while loading is ignored
	if _, cmd := update(t, m, keyMsg("r")); cmd != nil {
		t.Error("r while loading should not start another refresh")
	}

	m, _ = update(t, m, msg)
	if m.loading {
		t.Error("loading should clear when the refresh lands")
	}
}

func TestModel_ClearKey(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(src)
	m, _ = update(t, m, snapshotMsg{})

	m, cmd := update(t, m, keyMsg("c"))
	if src.cleared != 1 {
		t.Errorf("ClearCache called %d times, want 1", src.cleared)
	}
	if cmd == nil {
		t.Error("c should refresh after clearing")
	}
	if !strings.Contains(m.View(), "Caches cleared") {
		t.Errorf("view should confirm the clear:\n%s", m.View())
	}
}

func TestModel_ToggleAll(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(src)
	m, _ = update(t, m, snapshotMsg{})

	m, cmd := update(t, m, keyMsg("a"))
	if !m.filter.ShowAll {
		t.Fatal("a should turn on ShowAll")
	}
	cmd()
	if len(src.filters) != 1 || !src.filters[0].ShowAll {
		t.Errorf("refresh should use the toggled filter, got %+v", src.filters)
	}
}

func TestModel_TickSkipsWhileLoading(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(src)

	// Still loading from Init
	m, cmd := update(t, m, tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should always reschedule")
	}
	if !m.loading {
		t.Error("model should still be loading")
	}

	m, _ = update(t, m, snapshotMsg{})
	m, _ = update(t, m, tickMsg(time.Now()))
	if !m.loading {
		t.Error("tick after a completed refresh should start a new one")
	}
}

func TestModel_StatsToggle(t *testing.T) {
	m := newTestModel(&fakeSource{})
	m, _ = update(t, m, snapshotMsg{snapshot: monitor.Snapshot{Rows: sampleRows()}})
	if !strings.Contains(m.View(), "cache 0 entries") {
		t.Errorf("stats should be shown by default:\n%s", m.View())
	}
	m, _ = update(t, m, keyMsg("s"))
	if strings.Contains(m.View(), "cache 0 entries") {
		t.Error("s should hide stats")
	}
}

func TestModel_VisibleRows(t *testing.T) {
	rows := make([]monitor.Row, 50)
	m := newTestModel(&fakeSource{})
	m, _ = update(t, m, snapshotMsg{snapshot: monitor.Snapshot{Rows: rows}})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})

	if got := len(m.visibleRows()); got != 9 {
		t.Errorf("visibleRows() = %d, want 9", got)
	}
}

func TestModel_NameFilter(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(src)
	m, _ = update(t, m, snapshotMsg{})

	m, _ = update(t, m, keyMsg("/"))
	if !m.editingName {
		t.Fatal("/ should open the filter prompt")
	}

	// Keys go to the prompt while it is open
	m, _ = update(t, m, keyMsg("next:*"))
	if !m.editingName || m.nameInput.Value() != "next:*" {
		t.Fatalf("prompt value = %q, editing = %v", m.nameInput.Value(), m.editingName)
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.editingName {
		t.Error("enter should close the prompt")
	}
	if cmd == nil {
		t.Fatal("enter should refresh with the new filter")
	}
	m, _ = update(t, m, cmd())

	if len(src.filters) != 1 || src.filters[0].Name == nil {
		t.Fatalf("refresh should carry a name matcher, got %+v", src.filters)
	}
	if !src.filters[0].Name.Match("next:shop") || src.filters[0].Name.Match("vite:shop") {
		t.Error("name matcher does not follow the pattern")
	}
	if !strings.Contains(m.View(), "name next:*") {
		t.Errorf("summary should show the pattern:\n%s", m.View())
	}
}

func TestModel_NameFilterInvalid(t *testing.T) {
	m := newTestModel(&fakeSource{})
	m, _ = update(t, m, snapshotMsg{})

	m, _ = update(t, m, keyMsg("/"))
	m, _ = update(t, m, keyMsg("[oops"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		t.Error("a bad pattern should not refresh")
	}
	if !m.editingName {
		t.Error("prompt should stay open after a bad pattern")
	}
	if !strings.Contains(m.View(), "Bad filter") {
		t.Errorf("view should report the bad pattern:\n%s", m.View())
	}
}

func TestModel_NameFilterCancel(t *testing.T) {
	src := &fakeSource{}
	m := NewModel(context.Background(), src, monitor.Filter{}, "pg*", time.Second)
	m, _ = update(t, m, snapshotMsg{})

	m, _ = update(t, m, keyMsg("/"))
	m, _ = update(t, m, keyMsg("x"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if cmd != nil {
		t.Error("esc in the prompt should not quit or refresh")
	}
	if m.editingName {
		t.Error("esc should close the prompt")
	}
	if m.nameInput.Value() != "pg*" || m.namePattern != "pg*" {
		t.Errorf("esc should restore the previous pattern, got %q", m.nameInput.Value())
	}
}
