// Package domain contains core types for the auth bridge.
package domain

import (
	"context"
	"strings"
)

// TokenSource mints a bearer credential for the signed-in identity.
// Implementations may refresh the credential on each call.
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// Session represents the identity the provider reports as signed in.
type Session struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`

	tokens TokenSource
}

func NewSession(id, email string, emailVerified bool, tokens TokenSource) *Session {
	return &Session{
		ID:            strings.TrimSpace(id),
		Email:         strings.TrimSpace(email),
		EmailVerified: emailVerified,
		tokens:        tokens,
	}
}

// Token returns a fresh bearer credential. Callers must not cache it.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s == nil || s.tokens == nil {
		return "", ErrSessionNotFound
	}
	return s.tokens.IDToken(ctx)
}

// SessionView is returned to clients without exposing credentials.
type SessionView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

func (s *Session) View() SessionView {
	if s == nil {
		return SessionView{}
	}
	return SessionView{ID: s.ID, Email: s.Email, EmailVerified: s.EmailVerified}
}
