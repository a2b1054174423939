package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	cause := stderrors.New("underlying error")

	err := NewError(LockMismatch, "capability surface changed", cause)

	if err.Code != LockMismatch {
		t.Errorf("Code = %v, want %v", err.Code, LockMismatch)
	}
	if err.Message != "capability surface changed" {
		t.Errorf("Message = %q, want %q", err.Message, "capability surface changed")
	}
	if len(err.SuggestedFixes) != 2 {
		t.Errorf("len(SuggestedFixes) = %d, want 2", len(err.SuggestedFixes))
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      InternalError,
			message:   "write lockfile",
			cause:     stderrors.New("disk full"),
			wantParts: []string{"INTERNAL_ERROR", "write lockfile", "disk full"},
		},
		{
			name:      "without cause",
			code:      FunctionNotFound,
			message:   "function 'getUser' not found",
			cause:     nil,
			wantParts: []string{"FUNCTION_NOT_FOUND", "function 'getUser' not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewError(tt.code, tt.message, tt.cause).Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := NewError(InternalError, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	if NewError(AccessDenied, "denied", nil).Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestError_WithDetails(t *testing.T) {
	err := Errorf(InvalidArguments, "bad input for %s", "getUser")
	details := map[string]string{"field": "id"}

	if result := err.WithDetails(details); result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
	if err.Message != "bad input for getUser" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestCodeOfWrapped(t *testing.T) {
	inner := NewError(WriteInProgress, "busy", nil)
	wrapped := fmt.Errorf("approve: %w", inner)

	if got := CodeOf(wrapped); got != WriteInProgress {
		t.Errorf("CodeOf() = %q, want %q", got, WriteInProgress)
	}
	if !Is(wrapped, WriteInProgress) {
		t.Error("Is() should find code through wrapping")
	}
	if Is(stderrors.New("plain"), WriteInProgress) {
		t.Error("Is() should be false for plain errors")
	}
	if Is(nil, WriteInProgress) {
		t.Error("Is(nil) should be false")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{stderrors.New("boom"), 1},
		{NewError(LockMismatch, "changed", nil), 2},
		{NewError(ReviewRejected, "rejected", nil), 2},
		{fmt.Errorf("startup: %w", NewError(ReviewAbandoned, "closed", nil)), 2},
		{NewError(UnknownEntity, "unknown", nil), 1},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantLen int
	}{
		{LockMismatch, 2},
		{LockfileMissing, 1},
		{LockfileCorrupt, 1},
		{WriteInProgress, 1},
		{AccessDenied, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := len(GetSuggestedFixes(tt.code)); got != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, got, tt.wantLen)
			}
		})
	}
}
