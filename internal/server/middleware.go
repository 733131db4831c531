package server

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	obsmetrics "github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/metrics"
	"github.com/buger/jsonparser"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitEndpointLogin = "login"
	rateLimitReasonLogin   = "login-rate"
)

// LoginRateLimit throttles POST /login per client IP and submitted email.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.loginLimiter == nil || !s.loginLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		email, err := readLoginEmail(c)
		if err != nil {
			logger.FromContext(ctx).Warn("login rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		result, err := s.loginLimiter.Allow(ctx, c.ClientIP(), email)
		if err != nil {
			logger.FromContext(ctx).Warn("login rate limit check failed", zap.Error(err))
		}
		if result != nil && !result.Allowed {
			s.denyLogin(c, result.RetryAfter)
			return
		}

		recordRateLimitAllowed(ctx, rateLimitEndpointLogin, s.obsMetrics)
		c.Next()
	}
}

func (s *Server) denyLogin(c *gin.Context, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("login rate limit exceeded", zap.String("client_ip", c.ClientIP()))
	recordRateLimitDenied(ctx, rateLimitEndpointLogin, rateLimitReasonLogin, s.obsMetrics)

	seconds := retrySeconds(retryAfter)
	c.Header("Retry-After", strconv.Itoa(seconds))
	if wantsJSON(c) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}
	s.renderLogin(c, http.StatusTooManyRequests, loginPage{
		Email: strings.TrimSpace(c.PostForm("email")),
		Next:  c.PostForm("next"),
		Error: "Too many sign-in attempts. Try again in " + strconv.Itoa(seconds) + "s.",
	})
	c.Abort()
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

// readLoginEmail peeks at the submitted email without consuming the body
// the login handler binds.
func readLoginEmail(c *gin.Context) (string, error) {
	if !isJSONRequest(c) {
		return strings.TrimSpace(c.PostForm("email")), nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}
	email, err := jsonparser.GetString(body, "email")
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(email), nil
}

func retrySeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func isJSONRequest(c *gin.Context) bool {
	return strings.HasPrefix(strings.ToLower(c.ContentType()), "application/json")
}

// wantsJSON reports whether the caller is an API client rather than a
// browser form.
func wantsJSON(c *gin.Context) bool {
	if isJSONRequest(c) {
		return true
	}
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// stale reports that the client is gone. Handlers drop their result rather
// than write it.
func stale(c *gin.Context) bool {
	if c.Request.Context().Err() == nil {
		return false
	}
	c.Abort()
	return true
}

// sessionID returns the browser's session id. Gated handlers always have one.
func (s *Server) sessionID(c *gin.Context) string {
	sid, _ := s.cookies.Read(c)
	return sid
}

// guardMutation holds the per-browser mutation guard for resource until the
// returned release is called. A guard outage admits the request.
func (s *Server) guardMutation(c *gin.Context, resource string) (func(), bool) {
	if s.mutations == nil {
		return func() {}, true
	}
	ctx := c.Request.Context()
	release, ok, err := s.mutations.Acquire(ctx, s.sessionID(c), resource)
	if err != nil {
		logger.FromContext(ctx).Warn("mutation guard unavailable", zap.String("resource", resource), zap.Error(err))
		return func() {}, true
	}
	return release, ok
}
