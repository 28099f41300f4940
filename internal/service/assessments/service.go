// Package assessments records daily self-assessments.
package assessments

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/access"
)

// Service submits and lists assessments.
type Service struct {
	assessments repository.AssessmentRepository
	access      access.Engine
	logger      *slog.Logger
	now         func() time.Time
}

// New constructs a Service.
func New(assessments repository.AssessmentRepository, engine access.Engine, logger *slog.Logger) Service {
	return Service{assessments: assessments, access: engine, logger: logger, now: time.Now}
}

// Submit stores today's assessment for victim. A second submission on the same UTC day conflicts.
func (s Service) Submit(ctx context.Context, victim *domain.User, score float64, answers []domain.AssessmentAnswer) (*domain.Assessment, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return nil, apperr.Validation("score", "score must be a non-negative number")
	}
	if len(answers) == 0 {
		return nil, apperr.Validation("answers", "answers are required")
	}
	for _, a := range answers {
		if a.QuestionIndex < 0 {
			return nil, apperr.Validation("answers", "questionIndex must be non-negative")
		}
	}
	now := s.now().UTC()
	assessment := &domain.Assessment{
		ID:        uuid.NewString(),
		UserID:    victim.ID,
		DateTaken: now,
		Score:     score,
		Answers:   answers,
		CreatedAt: now,
	}
	if err := s.assessments.CreateAssessment(ctx, assessment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("assessment already submitted today", err)
		}
		return nil, apperr.Internal(err)
	}
	s.logger.Info("assessment submitted", "assessment_id", assessment.ID, "user_id", victim.ID, "score", score)
	return assessment, nil
}

// ListOwn returns the caller's assessments, newest first.
func (s Service) ListOwn(ctx context.Context, victim *domain.User) ([]domain.Assessment, error) {
	out, err := s.assessments.ListAssessmentsByUser(ctx, victim.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// ListForUser returns userID's assessments to an admin, the assigned counselor or the victim.
func (s Service) ListForUser(ctx context.Context, caller *domain.User, userID string) ([]domain.Assessment, error) {
	if _, err := s.access.RequireVictimAccess(ctx, caller, userID); err != nil {
		return nil, err
	}
	out, err := s.assessments.ListAssessmentsByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
