package styles

import (
	"testing"

	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/charmbracelet/lipgloss"
)

func TestCategoryColor_Distinct(t *testing.T) {
	seen := make(map[lipgloss.Color]identify.Category)
	for _, c := range identify.Categories() {
		color := CategoryColor(c)
		if prev, ok := seen[color]; ok {
			t.Errorf("categories %v and %v share color %v", prev, c, color)
		}
		seen[color] = c
	}
}

func TestCategoryColor_UnknownIsSystem(t *testing.T) {
	if got := CategoryColor(identify.Category(99)); got != CategorySystemColor {
		t.Errorf("CategoryColor(99) = %v, want %v", got, CategorySystemColor)
	}
}

func TestCategoryIcon(t *testing.T) {
	for _, c := range identify.Categories() {
		if CategoryIcon(c) == "" {
			t.Errorf("CategoryIcon(%v) is empty", c)
		}
	}
	if CategoryIcon(identify.CategorySystem) != "·" {
		t.Errorf("CategoryIcon(system) = %q", CategoryIcon(identify.CategorySystem))
	}
}

func TestCategory_Foreground(t *testing.T) {
	style := Category(identify.CategoryWeb)
	if style.GetForeground() != CategoryWebColor {
		t.Errorf("Category(web) foreground = %v, want %v", style.GetForeground(), CategoryWebColor)
	}
}
