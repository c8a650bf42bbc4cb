package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete devtop configuration
type Config struct {
	Identify  IdentifyConfig  `mapstructure:"identify" yaml:"identify"`
	Resolvers ResolversConfig `mapstructure:"resolvers" yaml:"resolvers"`
	Monitor   MonitorConfig   `mapstructure:"monitor" yaml:"monitor"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// IdentifyConfig controls the identification cache
type IdentifyConfig struct {
	// CacheTTLSeconds is how long an identified process label stays cached
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	// CacheSize is the maximum number of cached labels before LRU eviction
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size"`
	// KeyPrefixLength is how many characters of the command line go into a cache key (8-512)
	KeyPrefixLength int `mapstructure:"key_prefix_length" yaml:"key_prefix_length"`
}

// ResolversConfig controls the external working-directory and container lookups
type ResolversConfig struct {
	// CwdCacheTTLSeconds is how long a resolved working directory is reused
	CwdCacheTTLSeconds int `mapstructure:"cwd_cache_ttl_seconds" yaml:"cwd_cache_ttl_seconds"`
	// ContainerCacheTTLSeconds is how long a container snapshot is reused
	ContainerCacheTTLSeconds int `mapstructure:"container_cache_ttl_seconds" yaml:"container_cache_ttl_seconds"`
	// CommandTimeoutMs bounds each external command (lsof, docker, ps)
	CommandTimeoutMs int `mapstructure:"command_timeout_ms" yaml:"command_timeout_ms"`
	// CwdSource selects how working directories are read
	// Options: "auto", "lsof", "procfs"
	CwdSource string `mapstructure:"cwd_source" yaml:"cwd_source"`
	// LsofPath is the lsof binary (default: "lsof" from PATH)
	LsofPath string `mapstructure:"lsof_path" yaml:"lsof_path"`
	// DockerPath is the docker binary (default: "docker" from PATH)
	DockerPath string `mapstructure:"docker_path" yaml:"docker_path"`
	// ContainersEnabled turns container-by-port resolution on or off
	ContainersEnabled bool `mapstructure:"containers_enabled" yaml:"containers_enabled"`
}

// MonitorConfig controls the ps and watch commands
type MonitorConfig struct {
	// RefreshIntervalMs is how often watch takes a new snapshot (minimum 250)
	RefreshIntervalMs int `mapstructure:"refresh_interval_ms" yaml:"refresh_interval_ms"`
	// ShowAll lists every process instead of only the recognized ones
	ShowAll bool `mapstructure:"show_all" yaml:"show_all"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Dir overrides the log directory. Empty means the XDG state directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Identify: IdentifyConfig{
			CacheTTLSeconds: 60,
			CacheSize:       500,
			KeyPrefixLength: 50,
		},
		Resolvers: ResolversConfig{
			CwdCacheTTLSeconds:       30,
			ContainerCacheTTLSeconds: 30,
			CommandTimeoutMs:         2000,
			CwdSource:                "auto",
			LsofPath:                 "lsof",
			DockerPath:               "docker",
			ContainersEnabled:        true,
		},
		Monitor: MonitorConfig{
			RefreshIntervalMs: 3000,
			ShowAll:           false,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Dir:        "", // Empty means use default: $XDG_STATE_HOME/devtop
		},
	}
}

// CacheTTL returns the identification cache TTL as a time.Duration
func (c *IdentifyConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// CwdCacheTTL returns the working-directory cache TTL as a time.Duration
func (c *ResolversConfig) CwdCacheTTL() time.Duration {
	return time.Duration(c.CwdCacheTTLSeconds) * time.Second
}

// ContainerCacheTTL returns the container snapshot TTL as a time.Duration
func (c *ResolversConfig) ContainerCacheTTL() time.Duration {
	return time.Duration(c.ContainerCacheTTLSeconds) * time.Second
}

// CommandTimeout returns the external command timeout as a time.Duration
func (c *ResolversConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

// RefreshInterval returns the watch refresh interval as a time.Duration
func (c *MonitorConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Identify defaults
	viper.SetDefault("identify.cache_ttl_seconds", defaults.Identify.CacheTTLSeconds)
	viper.SetDefault("identify.cache_size", defaults.Identify.CacheSize)
	viper.SetDefault("identify.key_prefix_length", defaults.Identify.KeyPrefixLength)

	// Resolver defaults
	viper.SetDefault("resolvers.cwd_cache_ttl_seconds", defaults.Resolvers.CwdCacheTTLSeconds)
	viper.SetDefault("resolvers.container_cache_ttl_seconds", defaults.Resolvers.ContainerCacheTTLSeconds)
	viper.SetDefault("resolvers.command_timeout_ms", defaults.Resolvers.CommandTimeoutMs)
	viper.SetDefault("resolvers.cwd_source", defaults.Resolvers.CwdSource)
	viper.SetDefault("resolvers.lsof_path", defaults.Resolvers.LsofPath)
	viper.SetDefault("resolvers.docker_path", defaults.Resolvers.DockerPath)
	viper.SetDefault("resolvers.containers_enabled", defaults.Resolvers.ContainersEnabled)

	// Monitor defaults
	viper.SetDefault("monitor.refresh_interval_ms", defaults.Monitor.RefreshIntervalMs)
	viper.SetDefault("monitor.show_all", defaults.Monitor.ShowAll)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "devtop")
	}
	// Fall back to ~/.config/devtop
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devtop"
	}
	return filepath.Join(home, ".config", "devtop")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidCwdSources returns the list of valid resolvers.cwd_source values
func ValidCwdSources() []string {
	return []string{"auto", "lsof", "procfs"}
}
