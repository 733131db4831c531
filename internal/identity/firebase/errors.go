package firebase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
)

// Error codes treated as a wrong email or password.
var credentialCodes = map[string]struct{}{
	"INVALID_PASSWORD":          {},
	"EMAIL_NOT_FOUND":           {},
	"INVALID_LOGIN_CREDENTIALS": {},
	"INVALID_EMAIL":             {},
	"USER_DISABLED":             {},
	"MISSING_PASSWORD":          {},
}

// Refresh failures meaning the provider has signed the user out.
var revokedCodes = map[string]struct{}{
	"TOKEN_EXPIRED":         {},
	"USER_NOT_FOUND":        {},
	"USER_DISABLED":         {},
	"INVALID_REFRESH_TOKEN": {},
}

var friendlyMessages = map[string]string{
	"INVALID_PASSWORD":            "Invalid email or password",
	"EMAIL_NOT_FOUND":             "Invalid email or password",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password",
	"INVALID_EMAIL":               "Invalid email address",
	"USER_DISABLED":               "This account has been disabled",
	"MISSING_PASSWORD":            "Password is required",
	"EMAIL_EXISTS":                "An account with this email already exists",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts, try again later",
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// classifyResponse turns a non-2xx provider response into an AuthError.
func classifyResponse(status int, body []byte) *authdomain.AuthError {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return authdomain.NewAuthError(authdomain.ErrProviderError, fmt.Sprintf("HTTP_%d", status), "identity provider request failed", nil)
	}

	code, detail := splitMessage(payload.Error.Message)
	message := detail
	if friendly, ok := friendlyMessages[code]; ok && message == "" {
		message = friendly
	}
	if message == "" {
		message = strings.ToLower(strings.ReplaceAll(code, "_", " "))
	}

	kind := authdomain.ErrProviderError
	if _, ok := credentialCodes[code]; ok {
		kind = authdomain.ErrInvalidCredentials
	}
	return authdomain.NewAuthError(kind, code, message, nil)
}

// splitMessage separates "WEAK_PASSWORD : Password should be ..." into code
// and detail.
func splitMessage(raw string) (string, string) {
	code, detail, found := strings.Cut(raw, " : ")
	if !found {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(code), strings.TrimSpace(detail)
}

func networkError(err error) *authdomain.AuthError {
	return authdomain.NewAuthError(authdomain.ErrNetworkFailure, "", "identity provider unreachable", err)
}

// sessionExpired re-kinds a revoked refresh so callers can tell it from an
// outage.
func sessionExpired(err error) *authdomain.AuthError {
	var authErr *authdomain.AuthError
	if !errors.As(err, &authErr) {
		return authdomain.NewAuthError(authdomain.ErrSessionExpired, "", "session expired", err)
	}
	return authdomain.NewAuthError(authdomain.ErrSessionExpired, authErr.Code, "session expired", err)
}

func isRevoked(err error) bool {
	var authErr *authdomain.AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	_, ok := revokedCodes[authErr.Code]
	return ok
}
