// Package admin implements administrator account management.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/auth"
)

// Service exposes user administration.
type Service struct {
	users  repository.UserRepository
	auth   auth.Service
	logger *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, authSvc auth.Service, logger *slog.Logger) Service {
	return Service{users: users, auth: authSvc, logger: logger}
}

// CounselorInput is the payload for creating a counselor account.
type CounselorInput struct {
	Name           string
	Email          string
	Password       string
	Specialization string
	Qualifications string
	Bio            string
	Location       string
	Phone          string
}

// AddCounselor provisions a counselor account.
func (s Service) AddCounselor(ctx context.Context, actor *domain.User, in CounselorInput) (*domain.User, error) {
	if strings.TrimSpace(in.Specialization) == "" {
		return nil, apperr.Validation("specialization", "specialization is required")
	}
	user, err := s.auth.Provision(ctx, auth.Registration{
		Name:           in.Name,
		Email:          in.Email,
		Password:       in.Password,
		Role:           domain.RoleCounselor,
		Specialization: strings.TrimSpace(in.Specialization),
		Qualifications: strings.TrimSpace(in.Qualifications),
		Bio:            in.Bio,
		Location:       strings.TrimSpace(in.Location),
		Phone:          in.Phone,
	}, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("counselor added", "user_id", user.ID, "actor_id", actor.ID)
	return user, nil
}

// ListUsers returns every account, newest first.
func (s Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// SetActive deactivates or reactivates an account. Admins cannot deactivate themselves.
func (s Service) SetActive(ctx context.Context, actor *domain.User, userID string, active bool) (*domain.User, error) {
	if actor != nil && actor.ID == userID && !active {
		return nil, apperr.Validation("isActive", "cannot deactivate your own account")
	}
	user, err := s.users.SetUserActive(ctx, userID, active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	s.logger.Info("user activation changed", "user_id", userID, "active", active, "actor_id", actor.ID)
	return user, nil
}
