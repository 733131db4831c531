package firebase

import (
	"context"
	"strings"
	"sync"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"go.uber.org/zap"
)

// Provider is one browser's signed-in state against Firebase.
type Provider struct {
	client   *Client
	notifier identity.Notifier

	mu   sync.Mutex
	user *user
}

func (c *Client) NewProvider() *Provider {
	return &Provider{client: c}
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (identity.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, authdomain.NewAuthError(authdomain.ErrInvalidCredentials, "MISSING_PASSWORD", "Email and password are required", nil)
	}

	grant, err := p.client.signInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	u := p.newUser(grant)
	if claims, err := identity.ParseClaims(grant.IDToken); err == nil {
		u.emailVerified = claims.EmailVerified
	}
	p.setUser(u)
	return u, nil
}

// SignOut clears local state. Firebase has no server-side sign-out for
// password sessions; the refresh token is simply discarded.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return authdomain.NewAuthError(authdomain.ErrNetworkFailure, "", "sign out interrupted", err)
	}
	p.setUser(nil)
	return nil
}

func (p *Provider) SubscribeAuthState(handler func(identity.User)) func() {
	return p.notifier.Subscribe(handler)
}

func (p *Provider) CurrentUser() identity.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	return p.user
}

// Credentials exports the refresh token so the session can be restored.
func (p *Provider) Credentials() (identity.Credentials, bool) {
	p.mu.Lock()
	u := p.user
	p.mu.Unlock()
	if u == nil {
		return identity.Credentials{}, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return identity.Credentials{UID: u.uid, Email: u.email, RefreshToken: u.refreshToken}, true
}

// Resume exchanges a stored refresh token for a fresh session. Empty
// credentials resolve the provider as signed out.
func (p *Provider) Resume(ctx context.Context, creds identity.Credentials) error {
	if strings.TrimSpace(creds.RefreshToken) == "" {
		p.setUser(nil)
		return nil
	}

	grant, err := p.client.refresh(ctx, creds.RefreshToken)
	if err != nil {
		p.setUser(nil)
		return err
	}
	info, err := p.client.lookup(ctx, grant.IDToken)
	if err != nil {
		p.setUser(nil)
		return err
	}
	if info.Disabled {
		p.setUser(nil)
		return authdomain.NewAuthError(authdomain.ErrInvalidCredentials, "USER_DISABLED", friendlyMessages["USER_DISABLED"], nil)
	}

	grant.UID = info.UID
	grant.Email = info.Email
	u := p.newUser(grant)
	u.emailVerified = info.EmailVerified
	p.setUser(u)
	return nil
}

func (p *Provider) newUser(grant *tokenGrant) *user {
	return &user{
		provider:     p,
		uid:          grant.UID,
		email:        grant.Email,
		idToken:      grant.IDToken,
		refreshToken: grant.RefreshToken,
		expiresAt:    grant.ExpiresAt,
	}
}

func (p *Provider) setUser(u *user) {
	p.mu.Lock()
	p.user = u
	p.mu.Unlock()
	if u == nil {
		p.notifier.Publish(nil)
		return
	}
	p.notifier.Publish(u)
}

// revoke signs out u if it is still the current user.
func (p *Provider) revoke(u *user) {
	p.mu.Lock()
	if p.user != u {
		p.mu.Unlock()
		return
	}
	p.user = nil
	p.mu.Unlock()
	p.client.log.Info("identity provider revoked session", zap.String("uid", u.uid))
	p.notifier.Publish(nil)
}

type user struct {
	provider *Provider

	mu            sync.Mutex
	uid           string
	email         string
	emailVerified bool
	idToken       string
	refreshToken  string
	expiresAt     time.Time
}

func (u *user) UID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uid
}

func (u *user) Email() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.email
}

func (u *user) EmailVerified() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.emailVerified
}

// IDToken returns the cached ID token, refreshing it when it expires within
// refreshWindow. A refresh rejected because the account or refresh token is
// gone signs the user out.
func (u *user) IDToken(ctx context.Context) (string, error) {
	u.mu.Lock()
	now := u.provider.client.now()
	if u.idToken != "" && u.expiresAt.Sub(now) > refreshWindow {
		token := u.idToken
		u.mu.Unlock()
		return token, nil
	}

	grant, err := u.provider.client.refresh(ctx, u.refreshToken)
	if err != nil {
		u.mu.Unlock()
		if isRevoked(err) {
			u.provider.revoke(u)
			return "", sessionExpired(err)
		}
		return "", err
	}
	u.idToken = grant.IDToken
	if grant.RefreshToken != "" {
		u.refreshToken = grant.RefreshToken
	}
	u.expiresAt = grant.ExpiresAt
	token := u.idToken
	u.mu.Unlock()
	return token, nil
}

var (
	_ identity.Provider  = (*Provider)(nil)
	_ identity.Resumable = (*Provider)(nil)
)
