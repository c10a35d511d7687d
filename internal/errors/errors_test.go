package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Domain Error Tests
// -----------------------------------------------------------------------------

func TestSpawnError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SpawnError
		want string
	}{
		{
			name: "basic error",
			err:  NewSpawnError("tmux failed", nil),
			want: "spawn error: tmux failed",
		},
		{
			name: "with cause",
			err:  NewSpawnError("name in use", ErrSessionExists),
			want: "spawn error: name in use: session already exists",
		},
		{
			name: "with member and session",
			err:  NewSpawnError("name in use", ErrSessionExists).WithMemberID("worker-1").WithSession("squadron-worker-1"),
			want: "spawn error [member=worker-1, session=squadron-worker-1]: name in use: session already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpawnError_Classification(t *testing.T) {
	err := NewSpawnError("boom", ErrEmptyCommand)

	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
	if !Is(err, &SpawnError{}) {
		t.Error("Is(SpawnError{}) = false, want true")
	}
	if !Is(err, ErrEmptyCommand) {
		t.Error("Is(ErrEmptyCommand) = false, want true")
	}
	if Is(err, &InjectionError{}) {
		t.Error("Is(InjectionError{}) = true, want false")
	}
}

func TestInjectionError(t *testing.T) {
	err := NewInjectionError("member not alive", ErrMemberNotRunning).WithMemberID("helper-2")

	want := "injection error [member=helper-2]: member not alive: team member not running"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrMemberNotRunning) {
		t.Error("Is(ErrMemberNotRunning) = false, want true")
	}
	if GetSeverity(err) != SeverityWarning {
		t.Errorf("GetSeverity() = %v, want %v", GetSeverity(err), SeverityWarning)
	}
}

func TestOwnershipError(t *testing.T) {
	err := NewOwnershipError("build-step-3", "worker-1", "worker-2")

	want := "ownership error [task=build-step-3, owner=worker-1, caller=worker-2]: not the claim owner"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrNotOwner) {
		t.Error("Is(ErrNotOwner) = false, want true")
	}

	var ownErr *OwnershipError
	wrapped := fmt.Errorf("release: %w", err)
	if !As(wrapped, &ownErr) {
		t.Fatal("As(OwnershipError) = false, want true")
	}
	if ownErr.Owner != "worker-1" {
		t.Errorf("Owner = %q, want %q", ownErr.Owner, "worker-1")
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("team member", "worker-9")
	if got, want := err.Error(), "team member 'worker-9' not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = err.WithCause(ErrSessionNotFound)
	if got, want := err.Error(), "team member 'worker-9' not found: session not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrSessionNotFound) {
		t.Error("Is(ErrSessionNotFound) = false, want true")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("team member", "worker-1").WithCause(ErrMemberActive)
	if got, want := err.Error(), "team member 'worker-1' already exists: team member already active"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, &AlreadyExistsError{}) {
		t.Error("Is(AlreadyExistsError{}) = false, want true")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "bare",
			err:  NewValidationError("id is required"),
			want: "validation error: id is required",
		},
		{
			name: "with field and value",
			err:  NewValidationError("unknown role").WithField("role").WithValue("boss"),
			want: "validation error [field=role, value=boss]: unknown role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !Is(tt.err, ErrInvalidInput) {
				t.Error("Is(ErrInvalidInput) = false, want true")
			}
		})
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("tmux has-session", 2*time.Second)
	if got, want := err.Error(), "timeout error: tmux has-session (timeout: 2s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}
	if !Is(err, ErrTimeout) {
		t.Error("Is(ErrTimeout) = false, want true")
	}
}

// -----------------------------------------------------------------------------
// Helper Tests
// -----------------------------------------------------------------------------

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("bad"), CodeInvalidInput},
		{"not found", NewNotFoundError("claim", "x"), CodeNotFound},
		{"exists", NewAlreadyExistsError("team member", "x"), CodeAlreadyExists},
		{"ownership", NewOwnershipError("k", "a", "b"), CodeNotOwner},
		{"spawn", NewSpawnError("x", nil), CodeSpawnFailed},
		{"injection", NewInjectionError("x", nil), CodeInjection},
		{"timeout", NewTimeoutError("x", time.Second), CodeTimeout},
		{"wrapped sentinel timeout", fmt.Errorf("op: %w", ErrTimeout), CodeTimeout},
		{"wrapped ownership", Wrap(NewOwnershipError("k", "a", "b"), "release"), CodeNotOwner},
		{"plain", errors.New("disk on fire"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
	if IsUserFacing(errors.New("plain")) {
		t.Error("IsUserFacing(plain) = true, want false")
	}
	if !IsUserFacing(Wrap(NewNotFoundError("claim", "k"), "release")) {
		t.Error("IsUserFacing(wrapped NotFoundError) = false, want true")
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want %v", got, SeverityDebug)
	}
	if got := GetSeverity(errors.New("plain")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", got, SeverityError)
	}
	if got := GetSeverity(NewSpawnError("x", nil)); got != SeverityError {
		t.Errorf("GetSeverity(SpawnError) = %v, want %v", got, SeverityError)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) != nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) != nil")
	}

	err := Wrapf(ErrSessionUnreachable, "probe %s", "squadron-a")
	if got, want := err.Error(), "probe squadron-a: session manager unreachable"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if !Is(err, ErrSessionUnreachable) {
		t.Error("Is(ErrSessionUnreachable) = false, want true")
	}
}
