package domain

import (
	"context"
	"errors"

	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
)

const MinPasswordLength = 6

var (
	ErrPasswordRequired = errors.New("password is required for new users")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrDuplicateSubmit  = errors.New("another change to this user is in progress")
)

// CreateUserRequest is the add-user form. Password provisions the identity
// account and is discarded afterwards.
type CreateUserRequest struct {
	Email       string
	DisplayName string
	Role        directorydomain.Role
	IsActive    bool
	Password    string
}

type UpdateUserRequest struct {
	DisplayName string
	Role        directorydomain.Role
	IsActive    bool
	// Password is optional. Empty leaves it unchanged.
	Password string
}

// UserRow is one line of the user table.
type UserRow struct {
	directorydomain.UserRecord
	Tier directorydomain.Tier `json:"tier"`
}

// Service holds the dashboard's user-management use cases. Callers re-list
// after every mutation rather than patching a cached list.
type Service interface {
	ListUsers(ctx context.Context) ([]UserRow, error)
	GetUser(ctx context.Context, id directorydomain.UserID) (*directorydomain.UserRecord, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*directorydomain.UserRecord, error)
	UpdateUser(ctx context.Context, id directorydomain.UserID, req UpdateUserRequest) error
	DeleteUser(ctx context.Context, id directorydomain.UserID) (string, error)
	Subscription(ctx context.Context, id directorydomain.UserID) (directorydomain.SubscriptionInfo, error)
}
