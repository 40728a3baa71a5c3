package common

import (
	"errors"
	"fmt"
)

// Kind classifies why an instruction aborted.
type Kind uint8

const (
	KindAuthorization Kind = iota + 1
	KindState
	KindWindow
	KindTransfer
)

var (
	// ErrAuthorization reports a caller that does not hold the required authority.
	ErrAuthorization = errors.New("authorization error")
	// ErrState reports an operation that is invalid for the current record state.
	ErrState = errors.New("state error")
	// ErrWindow reports a claim attempted outside of its valid time window.
	ErrWindow = errors.New("window error")
	// ErrTransfer reports a failed token movement.
	ErrTransfer = errors.New("transfer error")
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindWindow:
		return "window"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuthorization:
		return ErrAuthorization
	case KindState:
		return ErrState
	case KindWindow:
		return ErrWindow
	case KindTransfer:
		return ErrTransfer
	default:
		return nil
	}
}

// Error is a classified, stable engine error. Instances are declared once as
// package sentinels and compared with errors.Is.
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

// NewError declares a classified error.
func NewError(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the kind sentinel so errors.Is(err, ErrWindow) matches.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind.sentinel()
}

// KindOf returns the classification of err, if any.
func KindOf(err error) (Kind, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind, true
	}
	return 0, false
}

// CodeOf returns the stable numeric code attached to err, if any.
func CodeOf(err error) (int, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Code, true
	}
	return 0, false
}

// Shared codes used by every program.
var (
	ErrOnlyOwner          = NewError(KindAuthorization, 6000, "only the owner can perform this action")
	ErrNotInitialized     = NewError(KindState, 6100, "program state not initialized")
	ErrAlreadyInitialized = NewError(KindState, 6101, "program state already initialized")
	ErrArithmeticOverflow = NewError(KindState, 6102, "arithmetic overflow")
	ErrInvalidTimestamp   = NewError(KindState, 6103, "clock reading before ledger epoch")
)
