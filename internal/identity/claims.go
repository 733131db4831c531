package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the ID-token claims the dashboard reads.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Admin         bool
	ExpiresAt     time.Time
}

// ParseClaims reads claims without verifying the signature. Signatures are
// verified by the user-management API, which is the party that trusts them.
func ParseClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("parse id token: empty token")
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse id token: %w", err)
	}

	claims := Claims{}
	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if email, ok := mc["email"].(string); ok {
		claims.Email = email
	}
	claims.EmailVerified = boolClaim(mc, "email_verified")
	claims.Admin = boolClaim(mc, "admin")
	return claims, nil
}

func boolClaim(mc jwt.MapClaims, key string) bool {
	switch v := mc[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
