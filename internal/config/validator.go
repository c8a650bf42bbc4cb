package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "identify.cache_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Bounds for validated settings
const (
	MinKeyPrefixLength   = 8
	MaxKeyPrefixLength   = 512
	MinRefreshIntervalMs = 250
	maxCacheSize         = 100000
	maxCommandTimeoutMs  = 60000
	maxLogSizeMB         = 1000 // 1GB
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Identify config
	errors = append(errors, c.validateIdentify()...)

	// Validate Resolvers config
	errors = append(errors, c.validateResolvers()...)

	// Validate Monitor config
	errors = append(errors, c.validateMonitor()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateIdentify validates the IdentifyConfig
func (c *Config) validateIdentify() []ValidationError {
	var errors []ValidationError

	if c.Identify.CacheTTLSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "identify.cache_ttl_seconds",
			Value:   c.Identify.CacheTTLSeconds,
			Message: "must be positive",
		})
	}

	if c.Identify.CacheSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "identify.cache_size",
			Value:   c.Identify.CacheSize,
			Message: "must be positive",
		})
	} else if c.Identify.CacheSize > maxCacheSize {
		errors = append(errors, ValidationError{
			Field:   "identify.cache_size",
			Value:   c.Identify.CacheSize,
			Message: fmt.Sprintf("exceeds maximum of %d", maxCacheSize),
		})
	}

	if c.Identify.KeyPrefixLength < MinKeyPrefixLength || c.Identify.KeyPrefixLength > MaxKeyPrefixLength {
		errors = append(errors, ValidationError{
			Field:   "identify.key_prefix_length",
			Value:   c.Identify.KeyPrefixLength,
			Message: fmt.Sprintf("must be between %d and %d", MinKeyPrefixLength, MaxKeyPrefixLength),
		})
	}

	return errors
}

// validateResolvers validates the ResolversConfig
func (c *Config) validateResolvers() []ValidationError {
	var errors []ValidationError

	if c.Resolvers.CwdCacheTTLSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "resolvers.cwd_cache_ttl_seconds",
			Value:   c.Resolvers.CwdCacheTTLSeconds,
			Message: "must be positive",
		})
	}

	if c.Resolvers.ContainerCacheTTLSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "resolvers.container_cache_ttl_seconds",
			Value:   c.Resolvers.ContainerCacheTTLSeconds,
			Message: "must be positive",
		})
	}

	if c.Resolvers.CommandTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "resolvers.command_timeout_ms",
			Value:   c.Resolvers.CommandTimeoutMs,
			Message: "must be positive",
		})
	} else if c.Resolvers.CommandTimeoutMs > maxCommandTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "resolvers.command_timeout_ms",
			Value:   c.Resolvers.CommandTimeoutMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxCommandTimeoutMs),
		})
	}

	if !slices.Contains(ValidCwdSources(), c.Resolvers.CwdSource) {
		errors = append(errors, ValidationError{
			Field:   "resolvers.cwd_source",
			Value:   c.Resolvers.CwdSource,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidCwdSources(), ", ")),
		})
	}

	if strings.TrimSpace(c.Resolvers.LsofPath) == "" {
		errors = append(errors, ValidationError{
			Field:   "resolvers.lsof_path",
			Value:   c.Resolvers.LsofPath,
			Message: "must not be empty",
		})
	}

	if c.Resolvers.ContainersEnabled && strings.TrimSpace(c.Resolvers.DockerPath) == "" {
		errors = append(errors, ValidationError{
			Field:   "resolvers.docker_path",
			Value:   c.Resolvers.DockerPath,
			Message: "must not be empty when containers are enabled",
		})
	}

	return errors
}

// validateMonitor validates the MonitorConfig
func (c *Config) validateMonitor() []ValidationError {
	var errors []ValidationError

	if c.Monitor.RefreshIntervalMs < MinRefreshIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "monitor.refresh_interval_ms",
			Value:   c.Monitor.RefreshIntervalMs,
			Message: fmt.Sprintf("must be at least %d", MinRefreshIntervalMs),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
