package tui

import (
	"fmt"
	"strconv"

	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/Iron-Ham/devtop/internal/monitor"
	"github.com/Iron-Ham/devtop/internal/tui/styles"
	"github.com/Iron-Ham/devtop/internal/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Column limits before truncation
const (
	maxNameWidth      = 40
	maxProjectWidth   = 28
	maxContainerWidth = 36
)

const colCategory = 2

var tableHeaders = []string{"PID", "NAME", "CATEGORY", "PROJECT", "PORT", "CONTAINER"}

// RenderTable renders rows as a bordered table. A positive width caps the
// table's total width.
func RenderTable(rows []monitor.Row, width int) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, tableRow(r))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.TableBorder).
		Headers(tableHeaders...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.TableHeader
			case col == colCategory && row >= 0 && row < len(rows):
				return styles.Category(rows[row].Identity.Category)
			default:
				return styles.TableCell
			}
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t.String()
}

func tableRow(r monitor.Row) []string {
	p := r.Identity
	port := ""
	if p.Port > 0 {
		port = strconv.Itoa(p.Port)
	}
	return []string{
		strconv.Itoa(r.PID),
		util.TruncateANSI(p.DisplayName, maxNameWidth),
		styles.CategoryIcon(p.Category) + " " + p.Category.String(),
		util.TruncateANSI(p.Project, maxProjectWidth),
		port,
		util.TruncateANSI(containerLabel(p.ContainerInfo), maxContainerWidth),
	}
}

func containerLabel(c *identify.ContainerInfo) string {
	if c == nil {
		return ""
	}
	if c.Image == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Image)
}

// RenderStats renders the engine's cache diagnostics on one line.
func RenderStats(s identify.CacheStats) string {
	return fmt.Sprintf("cache %d entries · %d hits · %d misses · %d evicted · cwd %d · containers %d · in-flight %d",
		s.Entries, s.Hits, s.Misses, s.Evictions, s.CwdEntries, s.ContainerEntries, s.InFlight)
}
