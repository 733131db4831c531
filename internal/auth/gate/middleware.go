package gate

import (
	"context"
	"net/http"
	"net/url"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/session"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	obscontext "github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/context"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	DefaultPendingWait = 300 * time.Millisecond
	DefaultLoginPath   = "/login"

	// SessionKey holds the authenticated SessionView on the gin context.
	SessionKey = "gate.session"

	actorTypeAdmin = "admin"
)

// Options configures Middleware.
type Options struct {
	// PendingWait bounds how long a request waits for the session to resolve
	// before the pending response is sent.
	PendingWait time.Duration
	LoginPath   string
	// JSON switches the pending and unauthenticated responses to API form.
	JSON bool
	// RequireAdmin rejects sessions whose ID token lacks the admin claim.
	RequireAdmin bool
	// OnPending replaces the default pending response.
	OnPending gin.HandlerFunc
}

// Middleware guards the routes behind it. The browser's manager is bound to
// the request context only when the gate resolves to Authenticated.
func Middleware(registry *session.Registry, opts Options) gin.HandlerFunc {
	if opts.PendingWait <= 0 {
		opts.PendingWait = DefaultPendingWait
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}

	return func(c *gin.Context) {
		manager, ok := registry.Resolve(c)
		if !ok {
			renderUnauthenticated(c, opts)
			return
		}
		g := Mount(manager)
		defer g.Teardown()

		waitCtx, cancel := context.WithTimeout(c.Request.Context(), opts.PendingWait)
		state := g.Wait(waitCtx)
		cancel()

		switch state {
		case Pending:
			if c.Request.Context().Err() != nil {
				c.Abort()
				return
			}
			if opts.OnPending != nil {
				opts.OnPending(c)
				c.Abort()
				return
			}
			renderPending(c, opts)
			return
		case Unauthenticated:
			renderUnauthenticated(c, opts)
			return
		}

		current := g.Session()
		if opts.RequireAdmin && !hasAdminClaim(c.Request.Context(), current) {
			renderForbidden(c, opts)
			return
		}

		ctx := session.WithManager(c.Request.Context(), manager)
		ctx = obscontext.WithActor(ctx, actorTypeAdmin, current.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(SessionKey, current.View())
		c.Next()
	}
}

// SessionView returns the view stored by Middleware.
func SessionView(c *gin.Context) (authdomain.SessionView, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return authdomain.SessionView{}, false
	}
	view, ok := v.(authdomain.SessionView)
	return view, ok
}

func hasAdminClaim(ctx context.Context, s *authdomain.Session) bool {
	token, err := s.Token(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("admin claim check failed", zap.Error(err))
		return false
	}
	claims, err := identity.ParseClaims(token)
	if err != nil {
		logger.FromContext(ctx).Warn("admin claim check failed", zap.Error(err))
		return false
	}
	return claims.Admin
}

func renderPending(c *gin.Context, opts Options) {
	c.Header("Cache-Control", "no-store")
	if opts.JSON {
		c.Header("Retry-After", "1")
		abortJSON(c, http.StatusServiceUnavailable, "service_unavailable", "session is still resolving")
		return
	}
	c.Header("Refresh", "1")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loadingPage))
	c.Abort()
}

func renderUnauthenticated(c *gin.Context, opts Options) {
	if opts.JSON {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusSeeOther, LoginURL(opts.LoginPath, c.Request.URL.RequestURI()))
	c.Abort()
}

func renderForbidden(c *gin.Context, opts Options) {
	if opts.JSON {
		abortJSON(c, http.StatusForbidden, "forbidden", "admin access required")
		return
	}
	c.Data(http.StatusForbidden, "text/html; charset=utf-8", []byte(forbiddenPage))
	c.Abort()
}

func abortJSON(c *gin.Context, status int, errType, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"type":    errType,
			"message": message,
		},
	})
}

// LoginURL builds the login redirect that returns to next after sign-in.
func LoginURL(loginPath, next string) string {
	if next == "" || next == loginPath {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

const loadingPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Loading</title></head>
<body><p>Loading...</p></body>
</html>
`

const forbiddenPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Forbidden</title></head>
<body><p>This account is not allowed to use the admin dashboard.</p></body>
</html>
`
