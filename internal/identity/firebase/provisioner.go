package firebase

import (
	"context"
	"strings"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"go.uber.org/zap"
)

// CreateAccount provisions a password account and returns its uid. The
// caller's own session is not affected.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", authdomain.NewAuthError(authdomain.ErrInvalidCredentials, "MISSING_PASSWORD", "Email and password are required", nil)
	}
	grant, err := c.signUp(ctx, email, password)
	if err != nil {
		return "", err
	}
	c.log.Info("identity account provisioned", zap.String("uid", grant.UID))
	return grant.UID, nil
}

var _ identity.Provisioner = (*Client)(nil)
