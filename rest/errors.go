package rest

import (
	"errors"
	"fmt"
)

// ErrHTTP matches every error produced by this package, so callers can write
// errors.Is(err, rest.ErrHTTP) to catch all of them at once.
var ErrHTTP = errors.New("http error")

// ConfigError reports a required or invalid field at construction time.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrHTTP }

// HTTPError is a connection, protocol, signing or serialization failure.
type HTTPError struct {
	Message string
	Cause   error
}

func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Cause }

func (e *HTTPError) Is(target error) bool { return target == ErrHTTP }

// StatusError is returned when a response arrived with a status code that
// the verb does not accept.
type StatusError struct {
	StatusCode    int
	StatusMessage string
}

func (e *StatusError) Error() string {
	if e.StatusMessage == "" {
		return fmt.Sprintf("response returned with unacceptable status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("response returned with unacceptable status: %d %s", e.StatusCode, e.StatusMessage)
}

func (e *StatusError) Is(target error) bool { return target == ErrHTTP }

// ContentTypeError is returned when a successful response carries a content
// type other than the one the transformer understands.
type ContentTypeError struct {
	ContentType string
	Expected    string
}

func (e *ContentTypeError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "<none>"
	}
	return fmt.Sprintf("invalid content type: %s (expected %s)", ct, e.Expected)
}

func (e *ContentTypeError) Is(target error) bool { return target == ErrHTTP }

// BodyNotAllowedError is returned when a body is attached to a verb that
// cannot carry one.
type BodyNotAllowedError struct {
	Method Method
}

func (e *BodyNotAllowedError) Error() string {
	return fmt.Sprintf("cannot attach a body to a %s request", e.Method)
}

func (e *BodyNotAllowedError) Is(target error) bool { return target == ErrHTTP }

// StatusCode returns the status code carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
