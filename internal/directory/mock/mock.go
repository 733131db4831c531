// Package mock is an in-memory user directory used when the dashboard runs
// without the user-management API.
package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/bwmarrin/snowflake"
)

const deletedMessage = "User deleted successfully"

// Directory implements domain.Directory in process. Records keep insertion
// order so listings are stable.
type Directory struct {
	node *snowflake.Node
	now  func() time.Time

	mu    sync.Mutex
	users []domain.UserRecord
}

var _ domain.Directory = (*Directory)(nil)

// New returns a directory seeded with an admin and a regular user.
func New(node *snowflake.Node) *Directory {
	return &Directory{
		node:  node,
		now:   time.Now,
		users: seed(),
	}
}

func seed() []domain.UserRecord {
	adminCreated := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	userCreated := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	return []domain.UserRecord{
		{
			ID:               "1",
			Email:            "admin@example.com",
			DisplayName:      "Admin User",
			Role:             domain.RoleAdmin,
			IsActive:         true,
			SubscriptionTier: domain.TierFree,
			CreatedAt:        &adminCreated,
		},
		{
			ID:               "2",
			Email:            "user@example.com",
			DisplayName:      "Regular User",
			Role:             domain.RoleUser,
			IsActive:         true,
			SubscriptionTier: domain.TierFree,
			CreatedAt:        &userCreated,
		},
	}
}

func (d *Directory) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.UserRecord, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, clone(u))
	}
	return out, nil
}

func (d *Directory) GetUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.indexOf(id)
	if !ok {
		return nil, notFound()
	}
	u := clone(d.users[i])
	return &u, nil
}

func (d *Directory) CreateUser(ctx context.Context, in domain.NewUser) (*domain.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, domain.NewAPIError(domain.ErrValidationFailure, 409, "A user with this email already exists", nil)
		}
	}

	created := d.now().UTC()
	record := domain.UserRecord{
		ID:               domain.UserID(d.node.Generate().String()),
		Email:            strings.TrimSpace(in.Email),
		DisplayName:      strings.TrimSpace(in.DisplayName),
		Role:             in.Role,
		IsActive:         in.IsActive,
		SubscriptionTier: domain.TierFree,
		FirebaseUID:      strings.TrimSpace(in.FirebaseUID),
		CreatedAt:        &created,
	}
	d.users = append(d.users, record)
	out := clone(record)
	return &out, nil
}

// UpdateUser merges the provided fields. Email and FirebaseUID are never
// touched and passwords are not stored.
func (d *Directory) UpdateUser(ctx context.Context, id domain.UserID, in domain.UserUpdate) (*domain.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.indexOf(id)
	if !ok {
		return nil, notFound()
	}
	u := &d.users[i]
	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	out := clone(*u)
	return &out, nil
}

func (d *Directory) DeleteUser(ctx context.Context, id domain.UserID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", canceled(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.indexOf(id)
	if !ok {
		return "", notFound()
	}
	d.users = append(d.users[:i], d.users[i+1:]...)
	return deletedMessage, nil
}

// GetUserSubscription derives the subscription from the record's tier.
func (d *Directory) GetUserSubscription(ctx context.Context, id domain.UserID) (domain.SubscriptionInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.SubscriptionInfo{}, canceled(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.indexOf(id)
	if !ok {
		return domain.DefaultSubscription(), nil
	}
	tier := d.users[i].Tier()
	if tier == domain.TierFree {
		return domain.DefaultSubscription(), nil
	}
	raw, err := json.Marshal(map[string]string{"plan": string(tier), "status": "active"})
	if err != nil {
		return domain.SubscriptionInfo{}, domain.NewAPIError(domain.ErrServerError, 0, "encode subscription", err)
	}
	return domain.SubscriptionInfo{Subscription: raw, HasSubscription: true, Tier: tier}, nil
}

// SetTier changes a record's subscription tier. Tiers are billing-owned and
// cannot be changed through UpdateUser.
func (d *Directory) SetTier(id domain.UserID, tier domain.Tier) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.indexOf(id)
	if !ok {
		return false
	}
	d.users[i].SubscriptionTier = domain.NormalizeTier(string(tier))
	return true
}

func (d *Directory) indexOf(id domain.UserID) (int, bool) {
	for i, u := range d.users {
		if u.ID == id {
			return i, true
		}
	}
	return -1, false
}

func clone(u domain.UserRecord) domain.UserRecord {
	if u.CreatedAt != nil {
		created := *u.CreatedAt
		u.CreatedAt = &created
	}
	return u
}

func notFound() error {
	return domain.NewAPIError(domain.ErrNotFound, 404, "User not found", nil)
}

func canceled(err error) error {
	return domain.NewAPIError(domain.ErrNetworkFailure, 0, "request canceled", err)
}
