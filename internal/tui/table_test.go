package tui

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/Iron-Ham/devtop/internal/monitor"
	"github.com/charmbracelet/lipgloss"
)

func sampleRows() []monitor.Row {
	return []monitor.Row{
		{PID: 4242, Command: "node next dev", Identity: identify.IdentifiedProcess{
			DisplayName: "next", Category: identify.CategoryWeb, Project: "shop", Port: 3000,
		}},
		{PID: 77, Command: "docker-proxy", Identity: identify.IdentifiedProcess{
			DisplayName: "api-db", Category: identify.CategoryContainer, Port: 5432,
			ContainerInfo: &identify.ContainerInfo{Name: "api-db", Image: "postgres:16"},
		}},
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sampleRows(), 0)

	for _, want := range []string{"PID", "NAME", "CATEGORY", "4242", "next", "web", "shop", "3000", "api-db (postgres:16)", "container"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTable_Empty(t *testing.T) {
	out := RenderTable(nil, 0)
	if !strings.Contains(out, "PID") {
		t.Errorf("empty table should still render headers:\n%s", out)
	}
}

func TestRenderTable_Width(t *testing.T) {
	out := RenderTable(sampleRows(), 60)
	for _, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w > 60 {
			t.Errorf("line width %d exceeds 60: %q", w, line)
		}
	}
}

func TestTableRow_TruncatesLongNames(t *testing.T) {
	row := monitor.Row{PID: 1, Identity: identify.IdentifiedProcess{
		DisplayName: strings.Repeat("x", 100),
		Category:    identify.CategoryScript,
	}}
	cells := tableRow(row)
	if w := lipgloss.Width(cells[1]); w != maxNameWidth {
		t.Errorf("name width = %d, want %d", w, maxNameWidth)
	}
	if cells[4] != "" {
		t.Errorf("port cell = %q, want empty for no port", cells[4])
	}
}

func TestContainerLabel(t *testing.T) {
	tests := []struct {
		name string
		in   *identify.ContainerInfo
		want string
	}{
		{"nil", nil, ""},
		{"name only", &identify.ContainerInfo{Name: "cache"}, "cache"},
		{"name and image", &identify.ContainerInfo{Name: "cache", Image: "redis:7"}, "cache (redis:7)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containerLabel(tt.in); got != tt.want {
				t.Errorf("containerLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderStats(t *testing.T) {
	out := RenderStats(identify.CacheStats{Entries: 3, Hits: 10, Misses: 2, CwdEntries: 4, ContainerEntries: 1})
	for _, want := range []string{"3 entries", "10 hits", "2 misses", "cwd 4", "containers 1", "in-flight 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q: %s", want, out)
		}
	}
}
