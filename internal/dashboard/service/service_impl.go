package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/domain"
	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Directory   directorydomain.Directory
	Provisioner identity.Provisioner
}

type Service struct {
	log         *zap.Logger
	directory   directorydomain.Directory
	provisioner identity.Provisioner
}

func New(p Params) domain.Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		log:         log.Named("dashboard.service"),
		directory:   p.Directory,
		provisioner: p.Provisioner,
	}
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserRow, error) {
	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, domain.UserRow{UserRecord: u, Tier: u.Tier()})
	}
	return rows, nil
}

func (s *Service) GetUser(ctx context.Context, id directorydomain.UserID) (*directorydomain.UserRecord, error) {
	return s.directory.GetUser(ctx, id)
}

// CreateUser provisions the identity account first and then registers the
// record against the returned uid. The password goes only to the identity
// provider.
func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*directorydomain.UserRecord, error) {
	password := req.Password
	if password == "" {
		return nil, domain.ErrPasswordRequired
	}
	if len(password) < domain.MinPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}

	in := directorydomain.NewUser{
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        req.Role,
		IsActive:    req.IsActive,
		// Validated with a placeholder so bad input never reaches the provider.
		FirebaseUID: "pending",
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	uid, err := s.provisioner.CreateAccount(ctx, in.Email, password)
	if err != nil {
		return nil, fmt.Errorf("provision identity account: %w", err)
	}
	in.FirebaseUID = uid

	record, err := s.directory.CreateUser(ctx, in)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("identity account created without a user record",
			zap.String("firebase_uid", uid),
			zap.Error(err),
		)
		return nil, err
	}
	return record, nil
}

func (s *Service) UpdateUser(ctx context.Context, id directorydomain.UserID, req domain.UpdateUserRequest) error {
	if req.Password != "" && len(req.Password) < domain.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	displayName := strings.TrimSpace(req.DisplayName)
	role := req.Role
	active := req.IsActive
	password := req.Password

	_, err := s.directory.UpdateUser(ctx, id, directorydomain.UserUpdate{
		DisplayName: &displayName,
		Role:        &role,
		IsActive:    &active,
		Password:    &password,
	})
	return err
}

func (s *Service) DeleteUser(ctx context.Context, id directorydomain.UserID) (string, error) {
	return s.directory.DeleteUser(ctx, id)
}

func (s *Service) Subscription(ctx context.Context, id directorydomain.UserID) (directorydomain.SubscriptionInfo, error) {
	return s.directory.GetUserSubscription(ctx, id)
}
