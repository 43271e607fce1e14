// Package apperr classifies client-side failures into the three kinds the
// user interface distinguishes: authentication, validation and transport.
package apperr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindValidation
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error carries a user-facing message next to the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text safe to show to the user.
func (e *Error) Message() string { return e.Msg }

func newError(kind Kind, op, msg string, err error) error {
	if err != nil {
		err = errors.WithStack(err)
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Authentication never says which credential was wrong.
func Authentication(op string, err error) error {
	return newError(KindAuthentication, op, "invalid credentials", err)
}

func Validation(op, msg string) error {
	return newError(KindValidation, op, msg, nil)
}

func Transport(op, msg string, err error) error {
	return newError(KindTransport, op, msg, err)
}

func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsAuthentication(err error) bool { return KindOf(err) == KindAuthentication }
func IsValidation(err error) bool     { return KindOf(err) == KindValidation }
func IsTransport(err error) bool      { return KindOf(err) == KindTransport }

// UserMessage picks the user-facing text of err, falling back to fallback
// for errors outside the taxonomy.
func UserMessage(err error, fallback string) string {
	var e *Error
	if stderrors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
