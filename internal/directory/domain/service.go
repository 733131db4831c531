package domain

import "context"

// Directory is the user-management API as consumed by the dashboard.
type Directory interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
	GetUser(ctx context.Context, id UserID) (*UserRecord, error)
	CreateUser(ctx context.Context, in NewUser) (*UserRecord, error)
	UpdateUser(ctx context.Context, id UserID, in UserUpdate) (*UserRecord, error)
	DeleteUser(ctx context.Context, id UserID) (string, error)
	GetUserSubscription(ctx context.Context, id UserID) (SubscriptionInfo, error)
}
