package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// LockMismatch indicates the live ontology does not match the approved lockfile
	LockMismatch ErrorCode = "LOCK_MISMATCH"
	// LockfileCorrupt indicates the lockfile hash does not match its own snapshot
	LockfileCorrupt ErrorCode = "LOCKFILE_CORRUPT"
	// LockfileMissing indicates no lockfile has been written yet
	LockfileMissing ErrorCode = "LOCKFILE_MISSING"
	// WriteInProgress indicates another lockfile write is in flight
	WriteInProgress ErrorCode = "WRITE_IN_PROGRESS"
	// UnknownAccessGroup indicates a function references an undeclared access group
	UnknownAccessGroup ErrorCode = "UNKNOWN_ACCESS_GROUP"
	// UnknownEntity indicates a function references an undeclared entity
	UnknownEntity ErrorCode = "UNKNOWN_ENTITY"
	// DuplicateName indicates two declarations share a name
	DuplicateName ErrorCode = "DUPLICATE_NAME"
	// InvalidDefinition indicates a structurally invalid ontology source
	InvalidDefinition ErrorCode = "INVALID_DEFINITION"
	// SchemaIntrospectionFailed indicates a schema could not be walked or serialized
	SchemaIntrospectionFailed ErrorCode = "SCHEMA_INTROSPECTION_FAILED"
	// FunctionNotFound indicates the requested function does not exist
	FunctionNotFound ErrorCode = "FUNCTION_NOT_FOUND"
	// AccessDenied indicates the principal holds none of the function's groups
	AccessDenied ErrorCode = "ACCESS_DENIED"
	// InvalidArguments indicates call arguments failed schema validation
	InvalidArguments ErrorCode = "INVALID_ARGUMENTS"
	// ResolverUnavailable indicates no resolver is bound for a function
	ResolverUnavailable ErrorCode = "RESOLVER_UNAVAILABLE"
	// ReviewRejected indicates the reviewer rejected the pending change
	ReviewRejected ErrorCode = "REVIEW_REJECTED"
	// ReviewAbandoned indicates the review ended without a decision
	ReviewAbandoned ErrorCode = "REVIEW_ABANDONED"
	// ReviewAlreadyDecided indicates approve/reject was called twice
	ReviewAlreadyDecided ErrorCode = "REVIEW_ALREADY_DECIDED"
	// Unauthorized indicates a missing or invalid reviewer token
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is the error type shared by every ontolock package.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewError creates a new Error with the registered suggested fixes for its code
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Errorf creates a new Error with a formatted message and no cause
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps an error to a process exit status.
// Lock and review failures use 2 so deploy scripts can tell them apart.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case LockMismatch, LockfileCorrupt, LockfileMissing, ReviewRejected, ReviewAbandoned:
		return 2
	default:
		return 1
	}
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	LockMismatch: {
		{
			Type:        RunCommand,
			Command:     "ontolock diff",
			Safe:        true,
			Description: "Show what changed in the capability surface",
		},
		{
			Type:        RunCommand,
			Command:     "ontolock review",
			Safe:        true,
			Description: "Open the review surface to approve or reject the change",
		},
	},
	LockfileMissing: {
		{
			Type:        RunCommand,
			Command:     "ontolock review",
			Safe:        true,
			Description: "Review the initial capability surface and write the first lockfile",
		},
	},
	LockfileCorrupt: {
		{
			Type:        RunCommand,
			Command:     "ontolock diff",
			Safe:        true,
			Description: "The lockfile was edited by hand; re-review the capability surface",
		},
	},
	WriteInProgress: {
		{
			Type:        RunCommand,
			Command:     "ontolock verify",
			Safe:        true,
			Description: "Retry once the other approval has finished",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
