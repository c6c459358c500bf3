package errs

import (
	"context"
	"errors"
	"fmt"
)

// Code is the machine-readable part of a failed operation.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeAlreadyExists    Code = "already_exists"
	CodeNotPersisted     Code = "not_persisted"
	CodeAlreadyPersisted Code = "already_persisted"
	CodeInvalid          Code = "invalid"
	CodeUnauthorized     Code = "unauthorized"
	CodeRateLimited      Code = "rate_limited"
	CodeCanceled         Code = "canceled"
	// CodeStorage covers every failure of the underlying database call.
	CodeStorage Code = "storage_failure"
)

var sentinelByCode = map[Code]error{
	CodeNotFound:         ErrNotFound,
	CodeAlreadyExists:    ErrAlreadyExists,
	CodeNotPersisted:     ErrNotPersisted,
	CodeAlreadyPersisted: ErrAlreadyPersisted,
	CodeInvalid:          ErrInvalid,
	CodeUnauthorized:     ErrUnauthorized,
	CodeRateLimited:      ErrRateLimited,
	CodeCanceled:         context.Canceled,
}

// Error is the failure side of every persistence operation.
// Err keeps the native error of the gateway for diagnostics.
type Error struct {
	Code    Code
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an Error against the sentinel of its code.
func (e *Error) Is(target error) bool {
	s, ok := sentinelByCode[e.Code]
	return ok && s == target
}

// New returns an Error without an underlying cause.
func New(op string, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap normalizes any error returned by a gateway into an *Error.
// Errors that are already normalized keep their code and gain no extra layer.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: CodeOf(err), Op: op, Message: err.Error(), Err: err}
}

// CodeOf classifies err. Unknown errors are storage failures.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrNotPersisted):
		return CodeNotPersisted
	case errors.Is(err, ErrAlreadyPersisted):
		return CodeAlreadyPersisted
	case errors.Is(err, ErrInvalid):
		return CodeInvalid
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeStorage
	}
}
