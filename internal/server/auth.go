package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/gate"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	loginResultSuccess   = "success"
	loginResultFailure   = "failure"
	loginResultForbidden = "forbidden"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

func (s *Server) LoginPage(c *gin.Context) {
	next := c.Query("next")
	if s.signedIn(c) {
		c.Redirect(http.StatusSeeOther, safeNext(next))
		return
	}
	s.renderLogin(c, http.StatusOK, loginPage{Next: next})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		s.rejectLogin(c, req, invalidRequestError())
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		s.rejectLogin(c, req, newValidationError("credentials", "required", "email and password are required"))
		return
	}

	ctx := c.Request.Context()
	manager, _ := s.registry.Acquire(c)
	// A sign-in racing the initial resume would be overwritten by it.
	select {
	case <-manager.Ready():
	case <-ctx.Done():
		c.Abort()
		return
	}
	current, err := manager.Login(ctx, email, req.Password)
	if err != nil {
		s.recordLogin(ctx, loginResultFailure)
		s.rejectLogin(c, req, err)
		return
	}

	if s.cfg.Session.RequireAdminClaim && !isAdmin(ctx, current) {
		if err := manager.Logout(ctx); err != nil {
			logger.FromContext(ctx).Warn("sign out of non-admin account failed", zap.Error(err))
		}
		s.recordLogin(ctx, loginResultForbidden)
		s.rejectLogin(c, req, authdomain.ErrAdminRequired)
		return
	}

	s.recordLogin(ctx, loginResultSuccess)
	logger.FromContext(ctx).Info("admin signed in", zap.String("uid", current.ID))

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"data": current.View()})
		return
	}
	c.Redirect(http.StatusSeeOther, safeNext(req.Next))
}

func (s *Server) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if sid, ok := s.cookies.Read(c); ok {
		if manager, ok := s.registry.Lookup(sid); ok {
			if err := manager.Logout(ctx); err != nil {
				logger.FromContext(ctx).Warn("sign out failed", zap.Error(err))
			}
		}
		// An evicted manager still has a snapshot that would resume it.
		if err := s.registry.Forget(ctx, sid); err != nil {
			logger.FromContext(ctx).Warn("session snapshot delete failed", zap.Error(err))
		}
	}
	s.cookies.Clear(c)

	if wantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (s *Server) rejectLogin(c *gin.Context, req LoginRequest, err error) {
	if wantsJSON(c) {
		AbortWithError(c, err)
		return
	}
	status, _ := mapError(err)
	s.renderLogin(c, status, loginPage{
		Email: strings.TrimSpace(req.Email),
		Next:  req.Next,
		Error: loginMessage(err),
	})
}

// signedIn waits briefly for the browser's session to resolve.
func (s *Server) signedIn(c *gin.Context) bool {
	manager, ok := s.registry.Resolve(c)
	if !ok {
		return false
	}
	g := gate.Mount(manager)
	defer g.Teardown()

	wait := s.cfg.Session.GatePendingWait
	if wait <= 0 {
		wait = gate.DefaultPendingWait
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
	defer cancel()
	return g.Wait(ctx) == gate.Authenticated
}

func (s *Server) recordLogin(ctx context.Context, result string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordLogin(ctx, result)
}

func isAdmin(ctx context.Context, current *authdomain.Session) bool {
	token, err := current.Token(ctx)
	if err != nil {
		return false
	}
	claims, err := identity.ParseClaims(token)
	if err != nil {
		return false
	}
	return claims.Admin
}

func loginMessage(err error) string {
	switch {
	case asValidationErrors(err) != nil:
		return "Enter your email and password."
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, authdomain.ErrAdminRequired):
		return "This account is not allowed to use the admin dashboard."
	case errors.Is(err, authdomain.ErrNetworkFailure):
		return "Unable to reach the sign-in service. Try again."
	default:
		return "Sign-in failed: " + err.Error()
	}
}
