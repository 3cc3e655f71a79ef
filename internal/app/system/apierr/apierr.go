// internal/app/system/apierr/apierr.go
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimited
	KindUpstream
)

// Error carries a client-facing message, the HTTP classification and an
// optional machine-readable code (for upstream failures, the provider code).
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// Unauthorized is the uniform response for missing, invalid or expired tokens.
func Unauthorized() *Error { return &Error{Kind: KindAuthentication, Message: "unauthorized"} }

func Authentication(msg string) *Error { return &Error{Kind: KindAuthentication, Message: msg} }

func Forbidden(reason string) *Error { return &Error{Kind: KindAuthorization, Message: reason} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

func RateLimited(msg string) *Error { return &Error{Kind: KindRateLimited, Message: msg} }

// Upstream wraps a third-party failure. The message stays generic; code is
// the provider's diagnostic code when one is known.
func Upstream(msg, code string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Code: code, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}
