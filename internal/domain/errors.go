package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Error carries a human readable reason on top of one of the sentinel kinds
// above, so callers can branch with errors.Is and still show the message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}

func InvalidOperation(format string, args ...any) error {
	return newError(ErrInvalidOperation, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

func InsufficientBalance(format string, args ...any) error {
	return newError(ErrInsufficientBalance, format, args...)
}
