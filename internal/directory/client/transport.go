package client

import (
	"net/http"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/session"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	"github.com/Cookseyyyyyy/ntadmindashboard/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// bearerTransport decorates every outbound request with the JSON headers,
// a correlation id, and the live session's bearer token. The token is read
// from the request context on each call and never stored.
type bearerTransport struct {
	base http.RoundTripper
	log  *zap.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)
	out.Header.Set("Content-Type", "application/json")
	out.Header.Set("Accept", "application/json")

	_, cid := correlation.EnsureCorrelationID(ctx)
	out.Header.Set(correlation.HeaderName, cid)

	if current := session.CurrentFromContext(ctx); current != nil {
		token, err := current.Token(ctx)
		switch {
		case err != nil:
			logger.WithContext(ctx, t.log).Warn("bearer token unavailable, sending unauthenticated",
				zap.String("path", out.URL.Path),
				zap.Error(err),
			)
		case token != "":
			out.Header.Set("Authorization", "Bearer "+token)
		}
	} else {
		logger.WithContext(ctx, t.log).Debug("no session, sending unauthenticated",
			zap.String("path", out.URL.Path),
		)
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}
