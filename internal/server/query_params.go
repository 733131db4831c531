package server

import (
	"strconv"
	"strings"

	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/gin-gonic/gin"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseCheckbox reads an HTML checkbox. Browsers send "on" for a checked box
// without a value attribute and nothing at all for an unchecked one.
func parseCheckbox(value string) bool {
	if strings.EqualFold(strings.TrimSpace(value), "on") {
		return true
	}
	parsed, err := parseOptionalBool(value)
	if err != nil || parsed == nil {
		return false
	}
	return *parsed
}

func parseRole(value string) directorydomain.Role {
	return directorydomain.Role(strings.ToLower(strings.TrimSpace(value)))
}

func userIDParam(c *gin.Context) (directorydomain.UserID, bool) {
	return directorydomain.ParseUserID(c.Param("id"))
}

// safeNext accepts only same-origin paths as a post-login destination.
func safeNext(raw string) string {
	next := strings.TrimSpace(raw)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return dashboardPath
	}
	if next == loginPath {
		return dashboardPath
	}
	return next
}
