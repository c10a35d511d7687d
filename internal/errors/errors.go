// Package errors provides centralized error definitions and error handling utilities
// for squadron. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of a specific subsystem:
//   - SpawnError: a team member's session could not be created
//   - InjectionError: input could not be delivered to a team member's session
//   - OwnershipError: a task claim was modified by a member that does not own it
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewSpawnError("session name in use", errors.ErrSessionExists).
//		WithMemberID("worker-1").WithSession("squadron-worker-1")
//
//	err := errors.NewNotFoundError("team member", "worker-1")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrSessionUnreachable) { ... }
//
//	var ownErr *errors.OwnershipError
//	if errors.As(err, &ownErr) { ... }
//
//	if errors.IsUserFacing(err) { ... }
//
// Transports translate errors into stable identifiers with Code.
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

// Session-related sentinel errors
var (
	// ErrSessionExists indicates that a session with the requested name is already running.
	ErrSessionExists = New("session already exists")
	// ErrSessionNotFound indicates that the session manager has no such session.
	ErrSessionNotFound = New("session not found")
	// ErrSessionUnreachable indicates that the session manager could not be
	// queried, either because it failed or because the query timed out.
	// Liveness checks treat it as "not alive".
	ErrSessionUnreachable = New("session manager unreachable")
	// ErrSessionNotInteractive indicates that the session no longer accepts input.
	ErrSessionNotInteractive = New("session not interactive")
	// ErrEmptyCommand indicates that a spawn was attempted without a command.
	ErrEmptyCommand = New("empty startup command")
)

// Team-related sentinel errors
var (
	// ErrMemberActive indicates that a deploy targeted an id that is still running.
	ErrMemberActive = New("team member already active")
	// ErrMemberNotRunning indicates that an operation required a live member.
	ErrMemberNotRunning = New("team member not running")
)

// Claim-related sentinel errors
var (
	// ErrNotOwner indicates that a release was attempted by a non-owner.
	ErrNotOwner = New("not the claim owner")
	// ErrNoActiveClaim indicates that a task has no active claim.
	ErrNoActiveClaim = New("no active claim")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// SquadronError is the base interface for all squadron errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type SquadronError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
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

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity {
	return e.severity
}

func (e *baseError) IsRetryable() bool {
	return e.retryable
}

func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatWithContext renders "kind [k=v, ...]: message: cause".
func formatWithContext(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SpawnError represents a failure to create a team member's session.
// Spawn failures are never retried automatically.
//
// Example:
//
//	err := errors.NewSpawnError("tmux new-session failed", cause)
//	err = err.WithMemberID("worker-1").WithSession("squadron-worker-1")
//	fmt.Println(err) // "spawn error [member=worker-1, session=squadron-worker-1]: tmux new-session failed: ..."
type SpawnError struct {
	baseError
	MemberID string
	Session  string
}

// NewSpawnError creates a new SpawnError.
func NewSpawnError(message string, cause error) *SpawnError {
	return &SpawnError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithMemberID adds a team member ID to the error context.
func (e *SpawnError) WithMemberID(id string) *SpawnError {
	e.MemberID = id
	return e
}

// WithSession adds a session name to the error context.
func (e *SpawnError) WithSession(name string) *SpawnError {
	e.Session = name
	return e
}

// Error returns the formatted error message.
func (e *SpawnError) Error() string {
	var parts []string
	if e.MemberID != "" {
		parts = append(parts, fmt.Sprintf("member=%s", e.MemberID))
	}
	if e.Session != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.Session))
	}
	return formatWithContext("spawn error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *SpawnError) Is(target error) bool {
	if _, ok := target.(*SpawnError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// InjectionError represents a failure to deliver text into a session.
type InjectionError struct {
	baseError
	MemberID string
	Session  string
}

// NewInjectionError creates a new InjectionError.
func NewInjectionError(message string, cause error) *InjectionError {
	return &InjectionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithMemberID adds a team member ID to the error context.
func (e *InjectionError) WithMemberID(id string) *InjectionError {
	e.MemberID = id
	return e
}

// WithSession adds a session name to the error context.
func (e *InjectionError) WithSession(name string) *InjectionError {
	e.Session = name
	return e
}

// Error returns the formatted error message.
func (e *InjectionError) Error() string {
	var parts []string
	if e.MemberID != "" {
		parts = append(parts, fmt.Sprintf("member=%s", e.MemberID))
	}
	if e.Session != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.Session))
	}
	return formatWithContext("injection error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *InjectionError) Is(target error) bool {
	if _, ok := target.(*InjectionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// OwnershipError represents an attempt to release a claim held by someone else.
//
// Example:
//
//	err := errors.NewOwnershipError("build-step-3", "worker-1", "worker-2")
//	fmt.Println(err) // "ownership error [task=build-step-3, owner=worker-1, caller=worker-2]: not the claim owner"
type OwnershipError struct {
	baseError
	TaskKey string
	Owner   string
	Caller  string
}

// NewOwnershipError creates a new OwnershipError.
func NewOwnershipError(taskKey, owner, caller string) *OwnershipError {
	return &OwnershipError{
		baseError: baseError{
			message:    ErrNotOwner.Error(),
			cause:      ErrNotOwner,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		TaskKey: taskKey,
		Owner:   owner,
		Caller:  caller,
	}
}

// Error returns the formatted error message.
func (e *OwnershipError) Error() string {
	var parts []string
	if e.TaskKey != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskKey))
	}
	if e.Owner != "" {
		parts = append(parts, fmt.Sprintf("owner=%s", e.Owner))
	}
	if e.Caller != "" {
		parts = append(parts, fmt.Sprintf("caller=%s", e.Caller))
	}
	return formatWithContext("ownership error", parts, e.message, nil)
}

// Is checks if this error matches the target.
func (e *OwnershipError) Is(target error) bool {
	if _, ok := target.(*OwnershipError); ok {
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
//	err := errors.NewNotFoundError("team member", "worker-1")
//	fmt.Println(err) // "team member 'worker-1' not found"
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
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("role must be overseer, worker or helper")
//	err = err.WithField("role").WithValue("boss")
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
	return formatWithContext("validation error", parts, e.message, e.cause)
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
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var sqErr SquadronError
	if As(err, &sqErr) {
		return sqErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var sqErr SquadronError
	if As(err, &sqErr) {
		return sqErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement SquadronError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var sqErr SquadronError
	if As(err, &sqErr) {
		return sqErr.Severity()
	}

	return SeverityError
}

// Stable error codes reported to API clients.
const (
	CodeInvalidInput  = "invalid_input"
	CodeNotFound      = "not_found"
	CodeAlreadyExists = "already_exists"
	CodeNotOwner      = "not_owner"
	CodeSpawnFailed   = "spawn_failed"
	CodeInjection     = "injection_failed"
	CodeTimeout       = "timeout"
	CodeInternal      = "internal"
)

// Code classifies err into one of the stable Code* identifiers.
// A nil error has an empty code.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var (
		validation *ValidationError
		notFound   *NotFoundError
		exists     *AlreadyExistsError
		ownership  *OwnershipError
		spawn      *SpawnError
		injection  *InjectionError
		timeout    *TimeoutError
	)
	switch {
	case As(err, &validation):
		return CodeInvalidInput
	case As(err, &notFound):
		return CodeNotFound
	case As(err, &exists):
		return CodeAlreadyExists
	case As(err, &ownership):
		return CodeNotOwner
	case As(err, &spawn):
		return CodeSpawnFailed
	case As(err, &injection):
		return CodeInjection
	case As(err, &timeout), Is(err, ErrTimeout):
		return CodeTimeout
	default:
		return CodeInternal
	}
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to record team member")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
