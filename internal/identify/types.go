package identify

import (
	"fmt"
	"strings"
)

// Category classifies an identified process. The set is closed.
type Category int

const (
	// CategorySystem is the fallback for anything no rule recognized, and
	// for interactive shells.
	CategorySystem Category = iota
	// CategoryWeb covers web dev servers and bundlers.
	CategoryWeb
	// CategoryDatabase covers database and cache servers.
	CategoryDatabase
	// CategoryTool covers developer CLIs and coding agents.
	CategoryTool
	// CategoryService covers long-running infrastructure daemons.
	CategoryService
	// CategoryApp covers desktop application bundles.
	CategoryApp
	// CategoryScript covers interpreted scripts and package-manager runs.
	CategoryScript
	// CategoryContainer covers processes publishing a container port.
	CategoryContainer
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryWeb,
		CategoryDatabase,
		CategoryTool,
		CategoryService,
		CategoryApp,
		CategoryScript,
		CategorySystem,
		CategoryContainer,
	}
}

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategorySystem:
		return "system"
	case CategoryWeb:
		return "web"
	case CategoryDatabase:
		return "database"
	case CategoryTool:
		return "tool"
	case CategoryService:
		return "service"
	case CategoryApp:
		return "app"
	case CategoryScript:
		return "script"
	case CategoryContainer:
		return "container"
	default:
		return "unknown"
	}
}

// ParseCategory converts a name (case-insensitive) to a Category.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories() {
		if c.String() == name {
			return c, nil
		}
	}
	return CategorySystem, fmt.Errorf("unknown category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ProcessQuery is one process to identify.
type ProcessQuery struct {
	PID     int
	Command string
	// Port is a listening TCP port owned by the process, or 0.
	Port int
	// Cwd is a pre-resolved working directory. Empty means resolve it.
	Cwd string
}

// ContainerInfo names the container behind a published port.
type ContainerInfo struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// IdentifiedProcess is the display label produced for a process.
type IdentifiedProcess struct {
	DisplayName   string         `json:"display_name"`
	Category      Category       `json:"category"`
	Project       string         `json:"project,omitempty"`
	Port          int            `json:"port,omitempty"`
	ContainerInfo *ContainerInfo `json:"container,omitempty"`
}

// MatchContext is the resolved context rules may use when building a label.
type MatchContext struct {
	Cwd     string
	Project string
	Port    int
}
