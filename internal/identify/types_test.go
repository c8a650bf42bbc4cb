package identify

import (
	"encoding/json"
	"testing"
)

func TestCategory_String(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryWeb, "web"},
		{CategoryDatabase, "database"},
		{CategoryTool, "tool"},
		{CategoryService, "service"},
		{CategoryApp, "app"},
		{CategoryScript, "script"},
		{CategorySystem, "system"},
		{CategoryContainer, "container"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.category.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, err)
		}
	}

	if got, err := ParseCategory("  Database "); err != nil || got != CategoryDatabase {
		t.Errorf("ParseCategory is not case/space tolerant: %v, %v", got, err)
	}
	if _, err := ParseCategory("daemon"); err == nil {
		t.Error("ParseCategory(daemon) should fail")
	}
}

func TestIdentifiedProcess_JSON(t *testing.T) {
	p := IdentifiedProcess{
		DisplayName:   "docker:db",
		Category:      CategoryContainer,
		Port:          5432,
		ContainerInfo: &ContainerInfo{Name: "db", Image: "postgres:16"},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"display_name":"docker:db","category":"container","port":5432,"container":{"name":"db","image":"postgres:16"}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}

	var back IdentifiedProcess
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Category != CategoryContainer || back.ContainerInfo.Image != "postgres:16" {
		t.Errorf("Unmarshal() = %+v", back)
	}
}
