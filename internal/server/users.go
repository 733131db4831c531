package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	dashboarddomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/domain"
	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const newUserResource = "users:new"

func (s *Server) UsersPage(c *gin.Context) {
	rows, err := s.dashboard.ListUsers(c.Request.Context())
	if stale(c) {
		return
	}

	page := usersPage{
		layout:           s.chrome(c, "Users"),
		Users:            rows,
		ShowSubscription: s.settings.Get().ShowSubscription,
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("list users failed", zap.Error(err))
		page.Error = "Failed to load users: " + userMessage(err)
	}
	c.HTML(http.StatusOK, "users.html", page)
}

func (s *Server) NewUserPage(c *gin.Context) {
	c.HTML(http.StatusOK, "user_form.html", userFormPage{
		layout: s.chrome(c, "Add user"),
		Action: dashboardPath + "/users",
		Form:   userForm{Role: directorydomain.RoleUser, IsActive: true},
	})
}

func (s *Server) CreateUserForm(c *gin.Context) {
	form := userForm{
		Email:       strings.TrimSpace(c.PostForm("email")),
		DisplayName: strings.TrimSpace(c.PostForm("displayName")),
		Role:        parseRole(c.PostForm("role")),
		IsActive:    parseCheckbox(c.PostForm("isActive")),
	}
	fail := func(err error) {
		status, _ := mapError(err)
		c.HTML(status, "user_form.html", userFormPage{
			layout: s.chrome(c, "Add user"),
			Action: dashboardPath + "/users",
			Form:   form,
			Error:  "Failed to create user: " + userMessage(err),
		})
	}

	release, ok := s.guardMutation(c, newUserResource)
	if !ok {
		fail(dashboarddomain.ErrDuplicateSubmit)
		return
	}
	defer release()

	ctx := c.Request.Context()
	record, err := s.dashboard.CreateUser(ctx, dashboarddomain.CreateUserRequest{
		Email:       form.Email,
		DisplayName: form.DisplayName,
		Role:        form.Role,
		IsActive:    form.IsActive,
		Password:    c.PostForm("password"),
	})
	if stale(c) {
		return
	}
	if err != nil {
		fail(err)
		return
	}

	logger.FromContext(ctx).Info("user created", zap.String("user_id", record.ID.String()))
	s.flash(c, dashboarddomain.FlashSuccess, "User created successfully")
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (s *Server) EditUserPage(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		s.renderError(c, ErrNotFound)
		return
	}
	record, err := s.dashboard.GetUser(c.Request.Context(), id)
	if stale(c) {
		return
	}
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "user_form.html", userFormPage{
		layout:  s.chrome(c, "Edit user"),
		Action:  dashboardPath + "/users/" + id.String(),
		Editing: true,
		Form: userForm{
			Email:       record.Email,
			DisplayName: record.DisplayName,
			Role:        record.Role,
			IsActive:    record.IsActive,
		},
	})
}

func (s *Server) UpdateUserForm(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		s.renderError(c, ErrNotFound)
		return
	}
	form := userForm{
		Email:       strings.TrimSpace(c.PostForm("email")),
		DisplayName: strings.TrimSpace(c.PostForm("displayName")),
		Role:        parseRole(c.PostForm("role")),
		IsActive:    parseCheckbox(c.PostForm("isActive")),
	}
	fail := func(err error) {
		status, _ := mapError(err)
		c.HTML(status, "user_form.html", userFormPage{
			layout:  s.chrome(c, "Edit user"),
			Action:  dashboardPath + "/users/" + id.String(),
			Editing: true,
			Form:    form,
			Error:   "Failed to update user: " + userMessage(err),
		})
	}

	release, ok := s.guardMutation(c, "users:"+id.String())
	if !ok {
		fail(dashboarddomain.ErrDuplicateSubmit)
		return
	}
	defer release()

	ctx := c.Request.Context()
	err := s.dashboard.UpdateUser(ctx, id, dashboarddomain.UpdateUserRequest{
		DisplayName: form.DisplayName,
		Role:        form.Role,
		IsActive:    form.IsActive,
		Password:    c.PostForm("password"),
	})
	if stale(c) {
		return
	}
	if err != nil {
		fail(err)
		return
	}

	logger.FromContext(ctx).Info("user updated", zap.String("user_id", id.String()))
	s.flash(c, dashboarddomain.FlashSuccess, "User updated successfully")
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (s *Server) DeleteUserPage(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		s.renderError(c, ErrNotFound)
		return
	}
	record, err := s.dashboard.GetUser(c.Request.Context(), id)
	if stale(c) {
		return
	}
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "user_delete.html", deletePage{
		layout: s.chrome(c, "Delete user"),
		User:   record,
	})
}

func (s *Server) DeleteUserForm(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		s.renderError(c, ErrNotFound)
		return
	}

	release, ok := s.guardMutation(c, "users:"+id.String())
	if !ok {
		s.flash(c, dashboarddomain.FlashError, "Failed to delete user: "+userMessage(dashboarddomain.ErrDuplicateSubmit))
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}
	defer release()

	ctx := c.Request.Context()
	message, err := s.dashboard.DeleteUser(ctx, id)
	if stale(c) {
		return
	}
	if err != nil {
		s.flash(c, dashboarddomain.FlashError, "Failed to delete user: "+userMessage(err))
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}

	logger.FromContext(ctx).Info("user deleted", zap.String("user_id", id.String()))
	s.flash(c, dashboarddomain.FlashSuccess, message)
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (s *Server) SubscriptionPage(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		s.renderError(c, ErrNotFound)
		return
	}
	ctx := c.Request.Context()
	record, err := s.dashboard.GetUser(ctx, id)
	if err != nil {
		if !stale(c) {
			s.renderError(c, err)
		}
		return
	}
	info, err := s.dashboard.Subscription(ctx, id)
	if stale(c) {
		return
	}
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "subscription.html", subscriptionPage{
		layout:  s.chrome(c, "Subscription"),
		User:    record,
		Info:    info,
		Details: indentRaw(info.Subscription),
	})
}

// userMessage turns a failure into text for a form or flash.
func userMessage(err error) string {
	var apiErr *directorydomain.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var authErr *authdomain.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, directorydomain.ErrNotFound):
		return "user not found"
	case errors.Is(err, directorydomain.ErrNetworkFailure):
		return "the user service is unreachable"
	case errors.Is(err, directorydomain.ErrUnauthorized):
		return "the user service rejected your session"
	default:
		return err.Error()
	}
}

func indentRaw(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
