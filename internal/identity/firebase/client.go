// Package firebase talks to Firebase Authentication over its REST API.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	obstracing "github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/tracing"
	"go.uber.org/zap"
)

// refreshWindow is how close to expiry an ID token may get before IDToken
// refreshes it.
const refreshWindow = 5 * time.Minute

// Client holds the shared endpoints and transport. Each browser gets its own
// Provider from NewProvider.
type Client struct {
	apiKey      string
	identityURL string
	tokenURL    string
	httpClient  *http.Client
	log         *zap.Logger
	now         func() time.Time
}

func New(cfg config.Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	identityURL := strings.TrimRight(strings.TrimSpace(cfg.Identity.IdentityURL), "/")
	if identityURL == "" {
		identityURL = config.DefaultIdentityURL
	}
	tokenURL := strings.TrimSpace(cfg.Identity.TokenURL)
	if tokenURL == "" {
		tokenURL = config.DefaultTokenURL
	}
	return &Client{
		apiKey:      cfg.Identity.APIKey,
		identityURL: identityURL,
		tokenURL:    tokenURL,
		httpClient:  obstracing.WrapHTTPClient(&http.Client{Timeout: cfg.Directory.Timeout}),
		log:         log.Named("firebase"),
		now:         time.Now,
	}
}

// Factory returns an identity.Factory backed by this client.
func (c *Client) Factory() identity.Factory {
	return func() identity.Provider { return c.NewProvider() }
}

type tokenGrant struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

type passwordResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
		Disabled      bool   `json:"disabled"`
	} `json:"users"`
}

func (c *Client) signInWithPassword(ctx context.Context, email, password string) (*tokenGrant, error) {
	var resp passwordResponse
	err := c.postJSON(ctx, c.endpoint("accounts:signInWithPassword"), map[string]any{
		"email":             strings.TrimSpace(email),
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.grant(resp.LocalID, resp.Email, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (c *Client) signUp(ctx context.Context, email, password string) (*tokenGrant, error) {
	var resp passwordResponse
	err := c.postJSON(ctx, c.endpoint("accounts:signUp"), map[string]any{
		"email":             strings.TrimSpace(email),
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.grant(resp.LocalID, resp.Email, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

type accountInfo struct {
	UID           string
	Email         string
	EmailVerified bool
	Disabled      bool
}

func (c *Client) lookup(ctx context.Context, idToken string) (*accountInfo, error) {
	var resp lookupResponse
	if err := c.postJSON(ctx, c.endpoint("accounts:lookup"), map[string]any{"idToken": idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, authdomain.NewAuthError(authdomain.ErrProviderError, "USER_NOT_FOUND", "account not found", nil)
	}
	u := resp.Users[0]
	return &accountInfo{UID: u.LocalID, Email: u.Email, EmailVerified: u.EmailVerified, Disabled: u.Disabled}, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*tokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	target := c.tokenURL + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var resp refreshResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return c.grant(resp.UserID, "", resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (c *Client) endpoint(method string) string {
	return c.identityURL + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
}

func (c *Client) postJSON(ctx context.Context, target string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		authErr := classifyResponse(resp.StatusCode, body)
		c.log.Debug("identity provider rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("code", authErr.Code),
		)
		return authErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return authdomain.NewAuthError(authdomain.ErrProviderError, "", "malformed identity provider response", err)
	}
	return nil
}

func (c *Client) grant(uid, email, idToken, refreshToken, expiresIn string) *tokenGrant {
	seconds, err := strconv.Atoi(strings.TrimSpace(expiresIn))
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	expiresAt := c.now().Add(time.Duration(seconds) * time.Second)
	if claims, err := identity.ParseClaims(idToken); err == nil && !claims.ExpiresAt.IsZero() {
		expiresAt = claims.ExpiresAt
	}
	return &tokenGrant{
		UID:          uid,
		Email:        email,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}
