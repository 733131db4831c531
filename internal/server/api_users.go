package server

import (
	"net/http"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/gate"
	dashboarddomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/domain"
	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/gin-gonic/gin"
)

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	IsActive    *bool  `json:"isActive"`
	Password    string `json:"password"`
}

// updateUserRequest fields left out keep their current value.
type updateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"isActive"`
	Password    string  `json:"password"`
}

func (s *Server) CurrentSession(c *gin.Context) {
	view, ok := gate.SessionView(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) ListUsers(c *gin.Context) {
	rows, err := s.dashboard.ListUsers(c.Request.Context())
	if stale(c) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	record, err := s.dashboard.GetUser(c.Request.Context(), id)
	if stale(c) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	release, ok := s.guardMutation(c, newUserResource)
	if !ok {
		AbortWithError(c, dashboarddomain.ErrDuplicateSubmit)
		return
	}
	defer release()

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	role := parseRole(req.Role)
	if role == "" {
		role = directorydomain.RoleUser
	}

	record, err := s.dashboard.CreateUser(c.Request.Context(), dashboarddomain.CreateUserRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        role,
		IsActive:    active,
		Password:    req.Password,
	})
	if stale(c) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (s *Server) UpdateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	release, ok := s.guardMutation(c, "users:"+id.String())
	if !ok {
		AbortWithError(c, dashboarddomain.ErrDuplicateSubmit)
		return
	}
	defer release()

	ctx := c.Request.Context()
	current, err := s.dashboard.GetUser(ctx, id)
	if err != nil {
		if !stale(c) {
			AbortWithError(c, err)
		}
		return
	}

	update := dashboarddomain.UpdateUserRequest{
		DisplayName: current.DisplayName,
		Role:        current.Role,
		IsActive:    current.IsActive,
		Password:    req.Password,
	}
	if req.DisplayName != nil {
		update.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		update.Role = parseRole(*req.Role)
	}
	if req.IsActive != nil {
		update.IsActive = *req.IsActive
	}

	if err := s.dashboard.UpdateUser(ctx, id, update); err != nil {
		if !stale(c) {
			AbortWithError(c, err)
		}
		return
	}

	updated, err := s.dashboard.GetUser(ctx, id)
	if stale(c) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) DeleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	release, ok := s.guardMutation(c, "users:"+id.String())
	if !ok {
		AbortWithError(c, dashboarddomain.ErrDuplicateSubmit)
		return
	}
	defer release()

	message, err := s.dashboard.DeleteUser(c.Request.Context(), id)
	if stale(c) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (s *Server) GetUserSubscription(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	info, err := s.dashboard.Subscription(c.Request.Context(), id)
	if stale(c) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": info})
}
