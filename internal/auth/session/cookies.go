package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/gin-gonic/gin"
)

const DefaultCookieName = "_sid"

// Cookies reads and writes the browser session id cookie.
type Cookies struct {
	cookieName string
	secure     bool
}

func NewCookies(cfg config.Config) *Cookies {
	return &Cookies{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
	}
}

func (m *Cookies) CookieName() string {
	return m.cookieName
}

func (m *Cookies) Read(c *gin.Context) (string, bool) {
	sid, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	sid = strings.TrimSpace(sid)
	if !validSID(sid) {
		return "", false
	}
	return sid, true
}

func (m *Cookies) Set(c *gin.Context, sid string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, sid, maxAge, "/", "", m.secure, true)
}

func (m *Cookies) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

// validSID accepts the uuid strings minted by the registry.
func validSID(sid string) bool {
	if len(sid) != 36 {
		return false
	}
	for _, r := range sid {
		if r != '-' && !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
