package domain

import (
	"errors"
	"strings"
)

// Kinds of AuthError. Match with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNetworkFailure     = errors.New("network failure")
	ErrProviderError      = errors.New("identity provider error")
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrAdminRequired   = errors.New("admin claim required")
)

// AuthError is the normalized failure surfaced by the session manager.
type AuthError struct {
	Kind    error
	Message string
	Code    string
	Err     error
}

func NewAuthError(kind error, code, message string, cause error) *AuthError {
	return &AuthError{
		Kind:    kind,
		Code:    strings.TrimSpace(code),
		Message: strings.TrimSpace(message),
		Err:     cause,
	}
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Code != "" {
		return msg + " (" + e.Code + ")"
	}
	return msg
}

func (e *AuthError) Is(target error) bool {
	return e != nil && e.Kind != nil && target == e.Kind
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsAuthError wraps err as a ProviderError unless it is already an AuthError.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return NewAuthError(ErrProviderError, "", err.Error(), err)
}
