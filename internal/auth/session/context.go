package session

import (
	"context"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
)

type managerKey struct{}

// WithManager binds the browser's manager to a request context.
func WithManager(ctx context.Context, m *Manager) context.Context {
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, managerKey{}, m)
}

func FromContext(ctx context.Context) (*Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	m, ok := ctx.Value(managerKey{}).(*Manager)
	return m, ok && m != nil
}

// CurrentFromContext returns the live session of the manager bound to ctx,
// or nil when there is none.
func CurrentFromContext(ctx context.Context) *authdomain.Session {
	m, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return m.Current()
}
