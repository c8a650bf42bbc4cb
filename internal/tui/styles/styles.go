// Package styles holds the lipgloss colors and styles shared by the table
// renderer and the watch dashboard.
package styles

import (
	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple (violet-400)
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red (red-400)
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray (brighter for readability)
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray (gray-500)

	// Category colors
	CategoryWebColor       = lipgloss.Color("#60A5FA") // Blue
	CategoryDatabaseColor  = lipgloss.Color("#FBBF24") // Yellow
	CategoryToolColor      = lipgloss.Color("#A78BFA") // Purple
	CategoryServiceColor   = lipgloss.Color("#F472B6") // Pink
	CategoryAppColor       = lipgloss.Color("#FB923C") // Orange
	CategoryScriptColor    = lipgloss.Color("#10B981") // Green
	CategorySystemColor    = lipgloss.Color("#9CA3AF") // Gray
	CategoryContainerColor = lipgloss.Color("#22D3EE") // Cyan

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Table styles
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	TableCell = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1)

	TableBorder = lipgloss.NewStyle().
			Foreground(BorderColor)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Footer / status bar
	StatusBar = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	// Error message
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Success message
	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)
)

// CategoryColor returns the color for a given category
func CategoryColor(c identify.Category) lipgloss.Color {
	switch c {
	case identify.CategoryWeb:
		return CategoryWebColor
	case identify.CategoryDatabase:
		return CategoryDatabaseColor
	case identify.CategoryTool:
		return CategoryToolColor
	case identify.CategoryService:
		return CategoryServiceColor
	case identify.CategoryApp:
		return CategoryAppColor
	case identify.CategoryScript:
		return CategoryScriptColor
	case identify.CategoryContainer:
		return CategoryContainerColor
	default:
		return CategorySystemColor
	}
}

// CategoryIcon returns an icon for a given category
func CategoryIcon(c identify.Category) string {
	switch c {
	case identify.CategoryWeb:
		return "◆"
	case identify.CategoryDatabase:
		return "▣"
	case identify.CategoryTool:
		return "⚒"
	case identify.CategoryService:
		return "◎"
	case identify.CategoryApp:
		return "▢"
	case identify.CategoryScript:
		return "▸"
	case identify.CategoryContainer:
		return "⬡"
	default:
		return "·"
	}
}

// Category returns the cell style for a category
func Category(c identify.Category) lipgloss.Style {
	return TableCell.Foreground(CategoryColor(c))
}
