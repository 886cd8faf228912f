// Package apperr defines the error kinds surfaced by the client core.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how it should be surfaced to the user.
type Kind string

const (
	// KindUnknown is returned by KindOf for errors that carry no kind.
	KindUnknown Kind = ""
	// KindValidation covers missing or malformed user input.
	KindValidation Kind = "validation"
	// KindPermission covers denied OS permission or an ineligible device.
	KindPermission Kind = "permission"
	// KindConfiguration covers missing static configuration (project id).
	KindConfiguration Kind = "configuration"
	// KindPlatform wraps a failure reported by the notification primitive.
	KindPlatform Kind = "platform"
	// KindNetwork covers transport failures talking to the API.
	KindNetwork Kind = "network"
	// KindRemote covers well-formed non-success responses from the API.
	KindRemote Kind = "remote"
	// KindStorage covers failures of the secure storage primitive.
	KindStorage Kind = "storage"
)

// Error is a classified, display-ready error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so callers can write
// errors.Is(err, &apperr.Error{Kind: apperr.KindNetwork}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// New returns an error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap returns an error of the given kind wrapping err. A nil err yields nil.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the display-ready message for err. Classified errors yield
// their Message; anything else falls back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
