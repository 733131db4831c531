// Package identity defines the identity provider contract the session
// manager consumes. Adapters live in the firebase and memory subpackages.
package identity

import "context"

// User is the provider's view of a signed-in account.
type User interface {
	UID() string
	Email() string
	EmailVerified() bool
	// IDToken returns a bearer credential, refreshing it when needed.
	IDToken(ctx context.Context) (string, error)
}

// Provider is one browser's connection to the identity provider. Its state
// changes independently of callers, e.g. when a refresh token is revoked.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (User, error)
	SignOut(ctx context.Context) error
	// SubscribeAuthState calls handler once the initial state is known and
	// again on every transition, in emission order. Handlers must not block.
	SubscribeAuthState(handler func(User)) (unsubscribe func())
	CurrentUser() User
}

// Factory opens a new provider connection.
type Factory func() Provider

// Provisioner creates identity accounts for new dashboard users.
type Provisioner interface {
	CreateAccount(ctx context.Context, email, password string) (uid string, err error)
}

// Credentials is the minimum needed to restore a signed-in provider.
type Credentials struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
}

// Resumable providers can export and restore their signed-in state.
type Resumable interface {
	Credentials() (Credentials, bool)
	Resume(ctx context.Context, creds Credentials) error
}
