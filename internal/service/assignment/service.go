// Package assignment manages the victim to counselor relationship.
package assignment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

// NoCounselorMessage accompanies an empty my-counselor lookup.
const NoCounselorMessage = "No counselor currently assigned. Please contact support."

// Service reads and mutates assignments.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger) Service {
	return Service{users: users, logger: logger}
}

// MyCounselor returns the counselor currently assigned to victimID, or nil when there is none.
func (s Service) MyCounselor(ctx context.Context, victimID string) (*domain.User, error) {
	victim, err := s.users.GetUserByID(ctx, victimID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	if victim.AssignedCounselorID == nil {
		return nil, nil
	}
	counselor, err := s.users.GetUserByID(ctx, *victim.AssignedCounselorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	return counselor, nil
}

// Assign points victimID at counselorID. When expected is non-nil the write only happens if the
// victim's current counselor equals it (empty string meaning unassigned).
func (s Service) Assign(ctx context.Context, actor *domain.User, victimID, counselorID string, expected *string) (*domain.User, error) {
	victimID = strings.TrimSpace(victimID)
	counselorID = strings.TrimSpace(counselorID)
	if victimID == "" {
		return nil, apperr.Validation("victimId", "victimId is required")
	}
	if counselorID == "" {
		return nil, apperr.Validation("counselorId", "counselorId is required")
	}

	victim, err := s.users.AssignCounselor(ctx, victimID, counselorID, expected)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("victim not found")
	case errors.Is(err, repository.ErrInvalidReference):
		return nil, apperr.NotFound("counselor not found")
	case errors.Is(err, repository.ErrStale):
		return nil, apperr.Conflict("assignment changed since it was read", err)
	default:
		return nil, apperr.Internal(err)
	}

	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	s.logger.Info("counselor assigned", "victim_id", victimID, "counselor_id", counselorID, "actor_id", actorID)
	return victim, nil
}
