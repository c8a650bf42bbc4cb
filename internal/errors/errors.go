// Package errors provides centralized error definitions and error handling utilities
// for devtop. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from a specific subsystem:
//   - ResolverError: an external tool (lsof, docker, ps) failed, was missing,
//     or timed out while resolving process context
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewResolverError("lsof", "cwd lookup", errors.ErrToolTimeout)
//
//	if errors.IsToolUnavailable(err) {
//	    // degrade silently
//	}
//
// Errors produced below the identification engine never reach its callers:
// the engine degrades every failure into a less specific label. These types
// exist so resolvers can decide how loudly to log and whether a result may be
// cached.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// External tool sentinel errors
var (
	// ErrToolUnavailable indicates that an external tool is not installed or not executable.
	ErrToolUnavailable = New("tool unavailable")
	// ErrToolTimeout indicates that an external tool did not finish in time.
	ErrToolTimeout = New("tool timed out")
	// ErrToolFailed indicates that an external tool exited unsuccessfully.
	ErrToolFailed = New("tool failed")
	// ErrParse indicates that tool output had an unexpected shape.
	ErrParse = New("unexpected output format")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = New("not found")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DevtopError is the base interface for all devtop errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type DevtopError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ResolverError represents a failure of an external tool used to resolve
// process context.
//
// Severity follows the cause: a missing tool is Debug (expected on many
// machines), a timeout is Warning and retryable, anything else is Error.
//
// Example:
//
//	err := errors.NewResolverError("docker", "list containers", errors.ErrToolUnavailable)
//	fmt.Println(err) // "resolver error [tool=docker, op=list containers]: tool unavailable"
type ResolverError struct {
	baseError
	Tool   string
	Op     string
	Output string // Captured stderr, if any
}

// NewResolverError creates a new ResolverError for the given tool and operation.
func NewResolverError(tool, op string, cause error) *ResolverError {
	severity := SeverityError
	retryable := false
	switch {
	case errors.Is(cause, ErrToolUnavailable):
		severity = SeverityDebug
	case errors.Is(cause, ErrToolTimeout):
		severity = SeverityWarning
		retryable = true
	}
	return &ResolverError{
		baseError: baseError{
			message:    op,
			cause:      cause,
			severity:   severity,
			retryable:  retryable,
			userFacing: false,
		},
		Tool: tool,
		Op:   op,
	}
}

// WithOutput adds captured tool output to the error context.
func (e *ResolverError) WithOutput(output string) *ResolverError {
	e.Output = strings.TrimSpace(output)
	return e
}

// Error returns the formatted error message.
func (e *ResolverError) Error() string {
	var parts []string
	if e.Tool != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", e.Tool))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	prefix := "resolver error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("resolver error [%s]", strings.Join(parts, ", "))
	}

	msg := prefix
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s\noutput: %s", msg, e.Output)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *ResolverError) Is(target error) bool {
	if _, ok := target.(*ResolverError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("process", "4242")
//	fmt.Println(err) // "process '4242' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if errors.Is(target, ErrNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("pid must be positive")
//	err = err.WithField("pid").WithValue(-1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("lsof -d cwd", 2*time.Second)
//	fmt.Println(err) // "timeout error: lsof -d cwd (timeout: 2s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) || errors.Is(target, ErrToolTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing DevtopError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrToolTimeout
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var devtopErr DevtopError
	if As(err, &devtopErr) {
		return devtopErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrToolTimeout)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DevtopError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var devtopErr DevtopError
	if As(err, &devtopErr) {
		return devtopErr.Severity()
	}

	return SeverityError
}

// IsToolUnavailable reports whether err means an external tool is missing.
func IsToolUnavailable(err error) bool {
	return err != nil && Is(err, ErrToolUnavailable)
}

// IsToolTimeout reports whether err means an external tool ran out of time.
func IsToolTimeout(err error) bool {
	return err != nil && (Is(err, ErrToolTimeout) || Is(err, ErrTimeout))
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to list processes")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to parse line %d", n)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
