package server

import (
	"embed"
	"html/template"
	"net/http"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/gate"
	dashboarddomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/domain"
	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// layout is the chrome every page shares.
type layout struct {
	Brand   string
	Title   string
	Session *authdomain.SessionView
	Flash   *dashboarddomain.Flash
}

type loginPage struct {
	layout
	Email string
	Next  string
	Error string
}

type usersPage struct {
	layout
	Users            []dashboarddomain.UserRow
	ShowSubscription bool
	Error            string
}

type userForm struct {
	Email       string
	DisplayName string
	Role        directorydomain.Role
	IsActive    bool
}

type userFormPage struct {
	layout
	Action  string
	Editing bool
	Form    userForm
	Error   string
}

type deletePage struct {
	layout
	User  *directorydomain.UserRecord
	Error string
}

type subscriptionPage struct {
	layout
	User    *directorydomain.UserRecord
	Info    directorydomain.SubscriptionInfo
	Details string
}

type errorPage struct {
	layout
	Error string
}

// chrome builds the shared layout, consuming the browser's pending flash.
func (s *Server) chrome(c *gin.Context, title string) layout {
	l := layout{
		Brand: s.settings.Get().BrandName,
		Title: title,
	}
	if view, ok := gate.SessionView(c); ok {
		l.Session = &view
	}
	if sid := s.sessionID(c); sid != "" && s.flashes != nil {
		if flash, ok := s.flashes.Pop(sid); ok {
			l.Flash = &flash
		}
	}
	return l
}

func (s *Server) flash(c *gin.Context, kind dashboarddomain.FlashKind, message string) {
	if s.flashes == nil {
		return
	}
	s.flashes.Put(s.sessionID(c), dashboarddomain.Flash{Kind: kind, Message: message})
}

func (s *Server) renderLogin(c *gin.Context, status int, page loginPage) {
	page.layout = layout{Brand: s.settings.Get().BrandName, Title: "Sign in"}
	c.Header("Cache-Control", "no-store")
	c.HTML(status, "login.html", page)
}

func (s *Server) renderError(c *gin.Context, err error) {
	status, _ := mapError(err)
	c.HTML(status, "error.html", errorPage{
		layout: s.chrome(c, http.StatusText(status)),
		Error:  userMessage(err),
	})
}
