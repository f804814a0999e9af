package aclspec

import "errors"

// Error represents a domain error from policy parsing or resolution.
//
// These are business logic errors (malformed pattern, unreadable policy
// document, path outside every datasite) as opposed to infrastructure
// errors (disk failure). The HTTP layer translates Error codes to status
// codes; the engine translates parse errors to fail-closed empty rule
// sets at the cache boundary.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the filesystem path or pattern related to the error
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = msg + ": " + e.Path
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of a policy engine error.
type ErrorCode int

const (
	// ErrPatternSyntax indicates a malformed glob pattern.
	// Raised at rule-parse time, never at match time: the matcher
	// assumes patterns have already been compiled successfully.
	ErrPatternSyntax ErrorCode = iota

	// ErrPolicyParse indicates a malformed or unreadable policy document.
	// The cache converts this to "zero rules from this directory" so one
	// corrupt file never blocks queries against the rest of the tree.
	ErrPolicyParse

	// ErrPathOutsideScope indicates the queried path is not under any
	// recognized datasite. This is a caller bug, not a policy state, and
	// is surfaced rather than swallowed.
	ErrPathOutsideScope

	// ErrConcurrentWrite indicates a concurrent external writer modified
	// a policy file mid-mutation. Callers may retry.
	ErrConcurrentWrite

	// ErrInvalidArgument indicates invalid parameters were provided.
	// Examples: empty principal, unknown permission level, bad pagination.
	ErrInvalidArgument
)

// String returns the stable machine-readable name of the code, used in
// API error payloads.
func (c ErrorCode) String() string {
	switch c {
	case ErrPatternSyntax:
		return "pattern_syntax"
	case ErrPolicyParse:
		return "policy_parse"
	case ErrPathOutsideScope:
		return "path_outside_scope"
	case ErrConcurrentWrite:
		return "concurrent_write"
	case ErrInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// NewError creates an Error with the given code, message, and path.
func NewError(code ErrorCode, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// WrapError creates an Error that wraps an underlying cause.
func WrapError(code ErrorCode, message, path string, err error) *Error {
	return &Error{Code: code, Message: message, Path: path, Err: err}
}

// IsCode reports whether err is (or wraps) an Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
