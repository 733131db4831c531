// Package memory is an in-process identity provider used in mock mode and
// tests. It issues HS256-signed ID tokens carrying the same claims Firebase
// issues.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = time.Hour

type account struct {
	uid      string
	email    string
	password string
	verified bool
	admin    bool
	disabled bool
}

// Directory is the shared account store. Providers opened from it model
// independent browsers.
type Directory struct {
	// ResolveDelay postpones the initial auth state of each provider.
	ResolveDelay time.Duration

	mu       sync.Mutex
	accounts map[string]*account // by lower-cased email
	refresh  map[string]string   // refresh token -> uid
	key      []byte
	now      func() time.Time
}

func NewDirectory() *Directory {
	return &Directory{
		accounts: make(map[string]*account),
		refresh:  make(map[string]string),
		key:      []byte(uuid.NewString()),
		now:      time.Now,
	}
}

// AddAccount registers a verified account and returns its uid.
func (d *Directory) AddAccount(email, password string, admin bool) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := &account{
		uid:      uuid.NewString(),
		email:    strings.TrimSpace(email),
		password: password,
		verified: true,
		admin:    admin,
	}
	d.accounts[strings.ToLower(acct.email)] = acct
	return acct.uid
}

// CreateAccount implements identity.Provisioner.
func (d *Directory) CreateAccount(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", authdomain.NewAuthError(authdomain.ErrNetworkFailure, "", "identity provider unreachable", err)
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", authdomain.NewAuthError(authdomain.ErrInvalidCredentials, "MISSING_PASSWORD", "Email and password are required", nil)
	}
	if len(password) < 6 {
		return "", authdomain.NewAuthError(authdomain.ErrProviderError, "WEAK_PASSWORD", "Password should be at least 6 characters", nil)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[strings.ToLower(email)]; exists {
		return "", authdomain.NewAuthError(authdomain.ErrProviderError, "EMAIL_EXISTS", "An account with this email already exists", nil)
	}
	acct := &account{uid: uuid.NewString(), email: email, password: password}
	d.accounts[strings.ToLower(email)] = acct
	return acct.uid, nil
}

// Disable blocks sign-in and token refresh for email.
func (d *Directory) Disable(email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if acct, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]; ok {
		acct.disabled = true
	}
}

func (d *Directory) Factory() identity.Factory {
	return func() identity.Provider { return d.NewProvider() }
}

func (d *Directory) NewProvider() *Provider {
	return &Provider{dir: d}
}

func (d *Directory) authenticate(email, password string) (*account, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || acct.password != password {
		return nil, "", authdomain.NewAuthError(authdomain.ErrInvalidCredentials, "INVALID_LOGIN_CREDENTIALS", "Invalid email or password", nil)
	}
	if acct.disabled {
		return nil, "", authdomain.NewAuthError(authdomain.ErrInvalidCredentials, "USER_DISABLED", "This account has been disabled", nil)
	}
	token := uuid.NewString()
	d.refresh[token] = acct.uid
	return acct, token, nil
}

func (d *Directory) byRefreshToken(token string) (*account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	uid, ok := d.refresh[token]
	if !ok {
		return nil, authdomain.NewAuthError(authdomain.ErrSessionExpired, "TOKEN_EXPIRED", "session expired", nil)
	}
	for _, acct := range d.accounts {
		if acct.uid != uid {
			continue
		}
		if acct.disabled {
			return nil, authdomain.NewAuthError(authdomain.ErrSessionExpired, "USER_DISABLED", "This account has been disabled", nil)
		}
		return acct, nil
	}
	return nil, authdomain.NewAuthError(authdomain.ErrProviderError, "USER_NOT_FOUND", "account not found", nil)
}

func (d *Directory) revokeToken(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.refresh, token)
}

func (d *Directory) mint(acct *account) (string, error) {
	d.mu.Lock()
	snapshot := *acct
	d.mu.Unlock()
	acct = &snapshot

	now := d.now()
	claims := jwt.MapClaims{
		"sub":            acct.uid,
		"user_id":        acct.uid,
		"email":          acct.email,
		"email_verified": acct.verified,
		"iat":            now.Unix(),
		"exp":            now.Add(tokenTTL).Unix(),
		"iss":            "ntadmin-memory",
	}
	if acct.admin {
		claims["admin"] = true
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.key)
}
