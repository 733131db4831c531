package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kinds of APIError. Match with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrValidationFailure = errors.New("validation failure")
	ErrNetworkFailure    = errors.New("network failure")
	ErrServerError       = errors.New("server error")
)

// APIError is the normalized failure surfaced by the directory client.
type APIError struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func NewAPIError(kind error, status int, message string, cause error) *APIError {
	return &APIError{
		Kind:       kind,
		StatusCode: status,
		Message:    strings.TrimSpace(message),
		Err:        cause,
	}
}

// ValidationError reports a request rejected before it reached the network.
func ValidationError(format string, args ...any) *APIError {
	return NewAPIError(ErrValidationFailure, 0, fmt.Sprintf(format, args...), nil)
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	kind := "api error"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}
	switch {
	case e.Message != "" && e.StatusCode > 0:
		return fmt.Sprintf("%s (%d): %s", kind, e.StatusCode, e.Message)
	case e.Message != "":
		return kind + ": " + e.Message
	case e.StatusCode > 0:
		return fmt.Sprintf("%s (%d)", kind, e.StatusCode)
	default:
		return kind
	}
}

func (e *APIError) Is(target error) bool {
	return e != nil && e.Kind != nil && target == e.Kind
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindForStatus maps a non-2xx HTTP status to an error kind.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return ErrValidationFailure
	default:
		return ErrServerError
	}
}
