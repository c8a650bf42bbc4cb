package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/devtop/internal/monitor"
	"github.com/Iron-Ham/devtop/internal/tui/styles"
	"github.com/Iron-Ham/devtop/internal/util"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Source supplies snapshots to the dashboard.
type Source interface {
	Snapshot(ctx context.Context, filter monitor.Filter) (monitor.Snapshot, error)
	ClearCache()
}

// Model holds the watch dashboard state.
type Model struct {
	ctx      context.Context
	source   Source
	filter   monitor.Filter
	interval time.Duration

	snapshot  monitor.Snapshot
	hasData   bool
	loading   bool
	showStats bool

	// Label filter prompt
	nameInput   textinput.Model
	editingName bool
	namePattern string

	errorMessage string
	infoMessage  string

	width  int
	height int
}

// NewModel creates a dashboard model that refreshes every interval.
// pattern is the label glob already compiled into filter.Name, shown in
// the filter prompt.
func NewModel(ctx context.Context, source Source, filter monitor.Filter, pattern string, interval time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "next:*"
	ti.CharLimit = 100
	ti.Width = 40
	ti.SetValue(pattern)

	return Model{
		ctx:         ctx,
		source:      source,
		filter:      filter,
		interval:    interval,
		loading:     true,
		showStats:   true,
		nameInput:   ti,
		namePattern: pattern,
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	snapshot monitor.Snapshot
	err      error
}

// Commands

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refresh() tea.Cmd {
	ctx, source, filter := m.ctx, m.source, m.filter
	return func() tea.Msg {
		snap, err := source.Snapshot(ctx, filter)
		return snapshotMsg{snapshot: snap, err: err}
	}
}

// Init starts the first refresh and the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick(m.interval))
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// Skip this round if the previous refresh is still running
		if m.loading {
			return m, tick(m.interval)
		}
		m.loading = true
		return m, tea.Batch(m.refresh(), tick(m.interval))

	case snapshotMsg:
		m.loading = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.snapshot = msg.snapshot
		m.hasData = true
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingName {
		return m.handleNameInput(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "r":
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.infoMessage = ""
		return m, m.refresh()

	case "c":
		m.source.ClearCache()
		m.infoMessage = "Caches cleared"
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.refresh()

	case "a":
		m.filter.ShowAll = !m.filter.ShowAll
		if m.filter.ShowAll {
			m.infoMessage = "Showing all processes"
		} else {
			m.infoMessage = "Hiding system processes"
		}
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.refresh()

	case "s":
		m.showStats = !m.showStats
		return m, nil

	case "/":
		m.editingName = true
		m.infoMessage = ""
		return m, m.nameInput.Focus()
	}

	return m, nil
}

// handleNameInput edits the label filter. Enter applies it, esc restores
// the previous pattern.
func (m Model) handleNameInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.editingName = false
		m.nameInput.Blur()
		m.nameInput.SetValue(m.namePattern)
		return m, nil

	case "enter":
		pattern := strings.TrimSpace(m.nameInput.Value())
		g, err := monitor.CompileName(pattern)
		if err != nil {
			m.errorMessage = fmt.Sprintf("Bad filter: %v", err)
			return m, nil
		}
		m.errorMessage = ""
		m.editingName = false
		m.nameInput.Blur()
		m.namePattern = pattern
		m.filter.Name = g
		if pattern == "" {
			m.infoMessage = "Filter cleared"
		} else {
			m.infoMessage = "Filter: " + pattern
		}
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

// View renders the dashboard
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("devtop"))
	b.WriteString("  ")
	b.WriteString(styles.Subtitle.Render(m.summary()))
	b.WriteString("\n")

	if m.errorMessage != "" {
		b.WriteString(styles.ErrorMsg.Render(m.errorMessage))
		b.WriteString("\n")
	} else if m.infoMessage != "" {
		b.WriteString(styles.SuccessMsg.Render(m.infoMessage))
		b.WriteString("\n")
	}

	switch {
	case !m.hasData:
		b.WriteString(styles.Muted.Render("Scanning processes..."))
		b.WriteString("\n")
	case len(m.snapshot.Rows) == 0:
		b.WriteString(styles.Muted.Render("No matching processes"))
		b.WriteString("\n")
	default:
		b.WriteString(RenderTable(m.visibleRows(), m.width))
		b.WriteString("\n")
	}

	if m.showStats && m.hasData {
		b.WriteString(styles.StatusBar.Render(RenderStats(m.snapshot.Stats)))
		b.WriteString("\n")
	}

	if m.editingName {
		b.WriteString(m.nameInput.View())
		b.WriteString("\n")
	}

	b.WriteString(m.helpBar())
	return b.String()
}

func (m Model) summary() string {
	if !m.hasData {
		return "starting"
	}
	s := m.snapshot
	state := ""
	if m.loading {
		state = "refreshing"
	}
	return util.JoinNonEmpty(" · ",
		fmt.Sprintf("%d of %d processes", len(s.Rows), s.Total),
		m.filterLabel(),
		"updated "+s.TakenAt.Format("15:04:05"),
		fmt.Sprintf("took %dms", s.Elapsed.Milliseconds()),
		state,
	)
}

func (m Model) filterLabel() string {
	if m.namePattern == "" {
		return ""
	}
	return "name " + m.namePattern
}

// visibleRows trims rows to what fits on screen.
func (m Model) visibleRows() []monitor.Row {
	rows := m.snapshot.Rows
	if m.height <= 0 {
		return rows
	}
	// Title, message, stats, filter prompt, help and the table's borders and header
	const chrome = 11
	room := m.height - chrome
	if room < 1 {
		room = 1
	}
	if len(rows) > room {
		return rows[:room]
	}
	return rows
}

func (m Model) helpBar() string {
	keys := []struct{ key, desc string }{
		{"q", "quit"},
		{"r", "refresh"},
		{"c", "clear caches"},
		{"a", "toggle all"},
		{"s", "stats"},
		{"/", "filter"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, styles.HelpKey.Render(k.key)+" "+k.desc)
	}
	return styles.HelpBar.Render(strings.Join(parts, "  "))
}
