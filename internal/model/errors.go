package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the Request Dispatcher can decide
// how to surface it and whether it is retriable.
type ErrorKind int

const (
	// Malformed indicates a protocol parse failure. Replies go out on
	// the reserved "_" token with no ACK/FINISHED.
	Malformed ErrorKind = iota
	// InvalidParameter indicates a well-formed frame with bad arguments.
	InvalidParameter
	// NotFound indicates no such issue/attachment locally or remotely.
	NotFound
	// RemoteUnavailable indicates the remote Jira tenant could not be
	// reached after the retry policy was exhausted.
	RemoteUnavailable
	// Unauthorized indicates Jira rejected the configured credentials.
	Unauthorized
	// StorageBusy indicates a database timeout; retriable.
	StorageBusy
	// Internal indicates a bug.
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case InvalidParameter:
		return "invalid_parameter"
	case NotFound:
		return "not_found"
	case RemoteUnavailable:
		return "remote_unavailable"
	case Unauthorized:
		return "unauthorized"
	case StorageBusy:
		return "storage_busy"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying an ErrorKind alongside a human message.
type Error struct {
	Kind ErrorKind
	Msg  string
	err  error
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf extracts the ErrorKind from err, defaulting to Internal when
// err is not (or does not wrap) a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
