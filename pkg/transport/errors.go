package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
)

// Kind is a closed enumeration of transport failure modes. The retry
// classifier switches on it instead of inspecting concrete client errors.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnReset
	KindTimeout
	KindChunkedEncoding
	KindStatus
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindConnReset:
		return "connection reset"
	case KindTimeout:
		return "timeout"
	case KindChunkedEncoding:
		return "chunked encoding failure"
	case KindStatus:
		return "status"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Error is the only error shape the retry classifier understands.
// StatusCode is set for KindStatus errors, Cause for KindAuth wrappers.
type Error struct {
	Kind       Kind
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("transport: %s %d", e.Kind, e.StatusCode)
	}

	if e.Cause != nil {
		return fmt.Sprintf("transport: %s: %v", e.Kind, e.Cause)
	}

	return fmt.Sprintf("transport: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError unwraps err down to a *Error, if there is one in the chain.
func AsError(err error) (*Error, bool) {
	var terr *Error
	ok := errors.As(err, &terr)

	return terr, ok
}

// Classify maps a raw network error onto the closed Kind enumeration.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := AsError(err); ok {
		return err
	}

	var nerr net.Error

	switch {
	case errors.As(err, &nerr) && nerr.Timeout():
		return &Error{Kind: KindTimeout, Cause: err}
	case errors.Is(err, syscall.ECONNRESET):
		return &Error{Kind: KindConnReset, Cause: err}
	case errors.Is(err, io.ErrUnexpectedEOF):
		// a truncated chunked body surfaces as an unexpected EOF
		return &Error{Kind: KindChunkedEncoding, Cause: err}
	default:
		return &Error{Kind: KindUnknown, Cause: err}
	}
}

// FetchError reports a non-success HTTP response for a fetched document.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %s returned %d", zerr.ErrBadHTTPStatusCode, e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return zerr.ErrBadHTTPStatusCode
}
