// Package access implements the role, relationship and conversation gates.
package access

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

// Engine answers authorization questions against freshly loaded identities.
type Engine struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// New constructs an Engine.
func New(users repository.UserRepository, logger *slog.Logger) Engine {
	return Engine{users: users, logger: logger}
}

// RequireRole fails with Forbidden unless user holds one of roles.
func (Engine) RequireRole(user *domain.User, roles ...domain.Role) error {
	if user == nil {
		return apperr.Unauthenticated("authentication required", nil)
	}
	if !slices.Contains(roles, user.Role) {
		return apperr.Forbidden("role not permitted", nil)
	}
	return nil
}

// RequireAssignment loads victimID and fails with Forbidden unless it is assigned to counselor.
// The victim is read on every call so reassignment takes effect immediately.
func (e Engine) RequireAssignment(ctx context.Context, counselor *domain.User, victimID string) (*domain.User, error) {
	if err := e.RequireRole(counselor, domain.RoleCounselor); err != nil {
		return nil, err
	}
	victim, err := e.users.GetUserByID(ctx, victimID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Forbidden("not assigned to this victim", nil)
		}
		return nil, apperr.Internal(err)
	}
	if !victim.IsAssignedTo(counselor.ID) {
		e.logger.Debug("relationship gate denied", "counselor_id", counselor.ID, "victim_id", victimID)
		return nil, apperr.Forbidden("not assigned to this victim", nil)
	}
	return victim, nil
}

// RequireVictimAccess admits admins, the victim itself and the victim's assigned counselor.
func (e Engine) RequireVictimAccess(ctx context.Context, caller *domain.User, victimID string) (*domain.User, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("authentication required", nil)
	}
	switch caller.Role {
	case domain.RoleCounselor:
		return e.RequireAssignment(ctx, caller, victimID)
	case domain.RoleAdmin:
	case domain.RoleVictim:
		if caller.ID != victimID {
			return nil, apperr.Forbidden("cannot access another victim's records", nil)
		}
	default:
		return nil, apperr.Forbidden("role not permitted", nil)
	}
	victim, err := e.users.GetUserByID(ctx, victimID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("victim not found")
		}
		return nil, apperr.Internal(err)
	}
	if victim.Role != domain.RoleVictim {
		return nil, apperr.NotFound("victim not found")
	}
	return victim, nil
}

// RequireConversation checks that caller may exchange messages with otherID and returns the other party.
//
// Victims talk to their assigned counselor and to admins. Counselors talk to their assigned
// victims, other counselors and admins. Admins talk to anyone.
func (e Engine) RequireConversation(ctx context.Context, caller *domain.User, otherID string) (*domain.User, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("authentication required", nil)
	}
	if otherID == caller.ID {
		return nil, apperr.Validation("to", "cannot message yourself")
	}
	other, err := e.users.GetUserByID(ctx, otherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("recipient not found")
		}
		return nil, apperr.Internal(err)
	}
	if caller.Role == domain.RoleAdmin || other.Role == domain.RoleAdmin {
		return other, nil
	}

	switch {
	case caller.Role == domain.RoleCounselor && other.Role == domain.RoleCounselor:
		return other, nil
	case caller.Role == domain.RoleCounselor && other.Role == domain.RoleVictim:
		if other.IsAssignedTo(caller.ID) {
			return other, nil
		}
	case caller.Role == domain.RoleVictim && other.Role == domain.RoleCounselor:
		self, err := e.users.GetUserByID(ctx, caller.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.Unauthenticated("invalid credentials", nil)
			}
			return nil, apperr.Internal(err)
		}
		if self.IsAssignedTo(other.ID) {
			return other, nil
		}
	}
	e.logger.Debug("conversation denied", "caller_id", caller.ID, "caller_role", caller.Role, "other_id", otherID, "other_role", other.Role)
	return nil, apperr.Forbidden("conversation not permitted", nil)
}

// RequireParticipant fails unless caller is one of the two conversation ids.
func (Engine) RequireParticipant(caller *domain.User, userA, userB string) error {
	if caller == nil {
		return apperr.Unauthenticated("authentication required", nil)
	}
	if caller.ID != userA && caller.ID != userB {
		return apperr.Forbidden("not a participant of this conversation", nil)
	}
	return nil
}
