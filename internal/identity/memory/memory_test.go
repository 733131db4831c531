package memory

import (
	"context"
	"testing"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInIssuesClaims(t *testing.T) {
	dir := NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	provider := dir.NewProvider()

	user, err := provider.SignInWithPassword(context.Background(), "ADMIN@example.com", "admin123")
	require.NoError(t, err)

	token, err := user.IDToken(context.Background())
	require.NoError(t, err)
	claims, err := identity.ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, user.UID(), claims.Subject)
	assert.True(t, claims.Admin)
	assert.True(t, claims.EmailVerified)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt, time.Minute)
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	dir := NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)

	_, err := dir.NewProvider().SignInWithPassword(context.Background(), "admin@example.com", "nope")
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestDisabledAccountIsSignedOutOnTokenUse(t *testing.T) {
	dir := NewDirectory()
	dir.AddAccount("user@example.com", "secret1", false)
	provider := dir.NewProvider()

	user, err := provider.SignInWithPassword(context.Background(), "user@example.com", "secret1")
	require.NoError(t, err)

	dir.Disable("user@example.com")
	_, err = user.IDToken(context.Background())
	require.ErrorIs(t, err, authdomain.ErrSessionExpired)
	assert.Nil(t, provider.CurrentUser())
}

func TestResumeWaitsForResolveDelay(t *testing.T) {
	dir := NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	dir.ResolveDelay = 50 * time.Millisecond

	first := dir.NewProvider()
	_, err := first.SignInWithPassword(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)
	creds, ok := first.Credentials()
	require.True(t, ok)

	second := dir.NewProvider()
	start := time.Now()
	require.NoError(t, second.Resume(context.Background(), creds))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.NotNil(t, second.CurrentUser())
}

func TestResumeHonoursContext(t *testing.T) {
	dir := NewDirectory()
	dir.ResolveDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, dir.NewProvider().Resume(ctx, identity.Credentials{}), context.Canceled)
}

func TestExpirePublishesSignOut(t *testing.T) {
	dir := NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	provider := dir.NewProvider()
	_, err := provider.SignInWithPassword(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)

	var states []bool
	provider.SubscribeAuthState(func(u identity.User) { states = append(states, u != nil) })
	provider.Expire()

	assert.Equal(t, []bool{true, false}, states)
	_, ok := provider.Credentials()
	assert.False(t, ok)
}

func TestCreateAccount(t *testing.T) {
	dir := NewDirectory()

	uid, err := dir.CreateAccount(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, uid)

	_, err = dir.CreateAccount(context.Background(), "new@example.com", "secret1")
	var authErr *authdomain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "EMAIL_EXISTS", authErr.Code)

	_, err = dir.CreateAccount(context.Background(), "weak@example.com", "123")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "WEAK_PASSWORD", authErr.Code)
}
