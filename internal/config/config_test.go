package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default identify config
	if cfg.Identify.CacheTTLSeconds != 60 {
		t.Errorf("Identify.CacheTTLSeconds = %d, want 60", cfg.Identify.CacheTTLSeconds)
	}
	if cfg.Identify.CacheSize != 500 {
		t.Errorf("Identify.CacheSize = %d, want 500", cfg.Identify.CacheSize)
	}
	if cfg.Identify.KeyPrefixLength != 50 {
		t.Errorf("Identify.KeyPrefixLength = %d, want 50", cfg.Identify.KeyPrefixLength)
	}

	// Verify default resolver config
	if cfg.Resolvers.CwdCacheTTLSeconds != 30 {
		t.Errorf("Resolvers.CwdCacheTTLSeconds = %d, want 30", cfg.Resolvers.CwdCacheTTLSeconds)
	}
	if cfg.Resolvers.ContainerCacheTTLSeconds != 30 {
		t.Errorf("Resolvers.ContainerCacheTTLSeconds = %d, want 30", cfg.Resolvers.ContainerCacheTTLSeconds)
	}
	if cfg.Resolvers.CommandTimeoutMs != 2000 {
		t.Errorf("Resolvers.CommandTimeoutMs = %d, want 2000", cfg.Resolvers.CommandTimeoutMs)
	}
	if cfg.Resolvers.CwdSource != "auto" {
		t.Errorf("Resolvers.CwdSource = %q, want %q", cfg.Resolvers.CwdSource, "auto")
	}
	if cfg.Resolvers.LsofPath != "lsof" || cfg.Resolvers.DockerPath != "docker" {
		t.Errorf("tool paths = %q, %q", cfg.Resolvers.LsofPath, cfg.Resolvers.DockerPath)
	}
	if !cfg.Resolvers.ContainersEnabled {
		t.Error("Resolvers.ContainersEnabled should be true by default")
	}

	// Verify default monitor config
	if cfg.Monitor.RefreshIntervalMs != 3000 {
		t.Errorf("Monitor.RefreshIntervalMs = %d, want 3000", cfg.Monitor.RefreshIntervalMs)
	}
	if cfg.Monitor.ShowAll {
		t.Error("Monitor.ShowAll should be false by default")
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging rotation = %d/%d, want 10/3", cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}
	if cfg.Logging.Dir != "" {
		t.Errorf("Logging.Dir = %q, want empty", cfg.Logging.Dir)
	}
}

func TestDurations(t *testing.T) {
	tests := []struct {
		name     string
		got      time.Duration
		expected time.Duration
	}{
		{"identify cache ttl", (&IdentifyConfig{CacheTTLSeconds: 60}).CacheTTL(), time.Minute},
		{"cwd cache ttl", (&ResolversConfig{CwdCacheTTLSeconds: 30}).CwdCacheTTL(), 30 * time.Second},
		{"container cache ttl", (&ResolversConfig{ContainerCacheTTLSeconds: 5}).ContainerCacheTTL(), 5 * time.Second},
		{"command timeout", (&ResolversConfig{CommandTimeoutMs: 1500}).CommandTimeout(), 1500 * time.Millisecond},
		{"refresh interval", (&MonitorConfig{RefreshIntervalMs: 3000}).RefreshInterval(), 3 * time.Second},
		{"zero", (&MonitorConfig{}).RefreshInterval(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestValidCwdSources(t *testing.T) {
	sources := ValidCwdSources()

	expected := []string{"auto", "lsof", "procfs"}
	if len(sources) != len(expected) {
		t.Fatalf("ValidCwdSources() length = %d, want %d", len(sources), len(expected))
	}
	for i, source := range expected {
		if sources[i] != source {
			t.Errorf("ValidCwdSources()[%d] = %q, want %q", i, sources[i], source)
		}
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/devtop"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "devtop")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/devtop/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Identify.CacheSize != 500 {
		t.Errorf("Get().Identify.CacheSize = %d, want 500", cfg.Identify.CacheSize)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `identify:
  cache_size: 42
resolvers:
  cwd_source: procfs
  containers_enabled: false
monitor:
  refresh_interval_ms: 1000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Identify.CacheSize != 42 {
		t.Errorf("CacheSize = %d, want 42", cfg.Identify.CacheSize)
	}
	if cfg.Identify.CacheTTLSeconds != 60 {
		t.Errorf("CacheTTLSeconds = %d, want default 60", cfg.Identify.CacheTTLSeconds)
	}
	if cfg.Resolvers.CwdSource != "procfs" || cfg.Resolvers.ContainersEnabled {
		t.Errorf("Resolvers = %+v", cfg.Resolvers)
	}
	if cfg.Monitor.RefreshIntervalMs != 1000 {
		t.Errorf("RefreshIntervalMs = %d, want 1000", cfg.Monitor.RefreshIntervalMs)
	}
}

func TestLoad_InvalidFallsBackInGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("identify.cache_size", -1)

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail validation")
	} else if _, ok := err.(ValidationErrors); !ok {
		t.Errorf("Load() error type = %T, want ValidationErrors", err)
	}

	cfg := Get()
	if cfg.Identify.CacheSize != 500 {
		t.Errorf("Get() should fall back to defaults, got cache_size %d", cfg.Identify.CacheSize)
	}
}
