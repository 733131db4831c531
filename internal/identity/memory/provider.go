package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
)

// Provider is one browser's view of the Directory.
type Provider struct {
	dir      *Directory
	notifier identity.Notifier

	mu   sync.Mutex
	user *user
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, authdomain.NewAuthError(authdomain.ErrNetworkFailure, "", "identity provider unreachable", err)
	}
	acct, refreshToken, err := p.dir.authenticate(email, password)
	if err != nil {
		return nil, err
	}
	u := &user{provider: p, acct: acct, refreshToken: refreshToken}
	p.set(u)
	return u, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return authdomain.NewAuthError(authdomain.ErrNetworkFailure, "", "identity provider unreachable", err)
	}
	p.mu.Lock()
	u := p.user
	p.mu.Unlock()
	if u != nil {
		p.dir.revokeToken(u.refreshToken)
	}
	p.set(nil)
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

func (p *Provider) Credentials() (identity.Credentials, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return identity.Credentials{}, false
	}
	return identity.Credentials{
		UID:          p.user.acct.uid,
		Email:        p.user.acct.email,
		RefreshToken: p.user.refreshToken,
	}, true
}

// Resume publishes the initial auth state after the directory's
// ResolveDelay.
func (p *Provider) Resume(ctx context.Context, creds identity.Credentials) error {
	if delay := p.dir.ResolveDelay; delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if strings.TrimSpace(creds.RefreshToken) == "" {
		p.set(nil)
		return nil
	}
	acct, err := p.dir.byRefreshToken(creds.RefreshToken)
	if err != nil {
		p.set(nil)
		return err
	}
	p.set(&user{provider: p, acct: acct, refreshToken: creds.RefreshToken})
	return nil
}

// Expire simulates a provider-side sign-out such as a revoked refresh token.
func (p *Provider) Expire() {
	p.mu.Lock()
	u := p.user
	p.mu.Unlock()
	if u == nil {
		return
	}
	p.dir.revokeToken(u.refreshToken)
	p.revoke(u)
}

func (p *Provider) set(u *user) {
	p.mu.Lock()
	p.user = u
	p.mu.Unlock()
	if u == nil {
		p.notifier.Publish(nil)
		return
	}
	p.notifier.Publish(u)
}

func (p *Provider) revoke(u *user) {
	p.mu.Lock()
	if p.user != u {
		p.mu.Unlock()
		return
	}
	p.user = nil
	p.mu.Unlock()
	p.notifier.Publish(nil)
}

type user struct {
	provider     *Provider
	acct         *account
	refreshToken string
}

func (u *user) UID() string         { return u.acct.uid }
func (u *user) Email() string       { return u.acct.email }
func (u *user) EmailVerified() bool { return u.acct.verified }

// IDToken mints a fresh token on every call. A revoked refresh token or a
// disabled account signs the user out.
func (u *user) IDToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", authdomain.NewAuthError(authdomain.ErrNetworkFailure, "", "identity provider unreachable", err)
	}
	acct, err := u.provider.dir.byRefreshToken(u.refreshToken)
	if err != nil {
		u.provider.revoke(u)
		return "", err
	}
	return u.provider.dir.mint(acct)
}

var (
	_ identity.Provider    = (*Provider)(nil)
	_ identity.Resumable   = (*Provider)(nil)
	_ identity.Provisioner = (*Directory)(nil)
)
