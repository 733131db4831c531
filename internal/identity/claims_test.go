package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signed(t, jwt.MapClaims{
		"sub":            "uid-1",
		"email":          "admin@example.com",
		"email_verified": true,
		"admin":          true,
		"exp":            exp.Unix(),
	})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.True(t, claims.EmailVerified)
	assert.True(t, claims.Admin)
	assert.True(t, exp.Equal(claims.ExpiresAt))
}

func TestParseClaimsDefaultsMissingFlags(t *testing.T) {
	claims, err := ParseClaims(signed(t, jwt.MapClaims{"sub": "uid-2"}))
	require.NoError(t, err)
	assert.False(t, claims.Admin)
	assert.False(t, claims.EmailVerified)
	assert.True(t, claims.ExpiresAt.IsZero())
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	_, err := ParseClaims("not-a-jwt")
	assert.Error(t, err)

	_, err = ParseClaims("   ")
	assert.Error(t, err)
}
