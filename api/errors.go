// File: api/errors.go
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by reactor, live, and replay. Generalizes the
// teacher's sentinel-and-code pattern to the error kinds spec.md §7 names,
// and is the Go counterpart of the original atu_reactor::Result<T>'s
// std::error_code payload
// (_examples/original_source/include/atu_reactor/Result.h).

package api

import "fmt"

// ErrorCode classifies failures per spec.md §7.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArg
	ErrCodeAddrInUse
	ErrCodeNotFound
	ErrCodeResourceExhausted
	ErrCodeSystem
	ErrCodeFormat
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "OK"
	case ErrCodeInvalidArg:
		return "INVALID_ARG"
	case ErrCodeAddrInUse:
		return "ADDR_IN_USE"
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case ErrCodeSystem:
		return "SYSTEM"
	case ErrCodeFormat:
		return "FORMAT"
	default:
		return "UNKNOWN"
	}
}

// Error is a structured, classified error. Cause preserves the underlying
// errno/syscall error for SYSTEM-kind failures (spec.md §7: "error
// preserved and returned").
type Error struct {
	Code  ErrorCode
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, api.ErrNotFound) match on code alone, ignoring
// message/cause, the way callers want to branch on "what kind of failure".
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError builds an Error with no underlying cause.
func NewError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap builds an Error carrying an underlying cause (typically a syscall errno).
func Wrap(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// Sentinels for errors.Is comparisons against a bare code.
var (
	ErrInvalidArg        = NewError(ErrCodeInvalidArg, "invalid argument")
	ErrAddrInUse         = NewError(ErrCodeAddrInUse, "address in use")
	ErrNotFound          = NewError(ErrCodeNotFound, "not found")
	ErrResourceExhausted = NewError(ErrCodeResourceExhausted, "resource exhausted")
)
