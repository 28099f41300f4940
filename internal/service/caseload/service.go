// Package caseload reports on a counselor's assigned victims.
package caseload

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

// CheckinWindowDays is the look-back used by the check-in summary.
const CheckinWindowDays = 7

// Service lists caseloads and summarizes check-ins.
type Service struct {
	users       repository.UserRepository
	assessments repository.AssessmentRepository
	logger      *slog.Logger
	now         func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, assessments repository.AssessmentRepository, logger *slog.Logger) Service {
	return Service{users: users, assessments: assessments, logger: logger, now: time.Now}
}

// ForCounselor returns the victims assigned to counselorID ordered by most recent contact.
func (s Service) ForCounselor(ctx context.Context, counselorID string) ([]domain.CaseloadEntry, error) {
	counselor, err := s.users.GetUserByID(ctx, counselorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("counselor not found")
		}
		return nil, apperr.Internal(err)
	}
	if counselor.Role != domain.RoleCounselor {
		return nil, apperr.NotFound("counselor not found")
	}
	entries, err := s.users.ListCaseload(ctx, counselorID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}

// CheckinSummary compares assessments taken by the caseload over the last week with one per
// victim per day.
func (s Service) CheckinSummary(ctx context.Context, counselorID string) (domain.CheckinSummary, error) {
	since := s.now().UTC().AddDate(0, 0, -CheckinWindowDays)
	victims, completed, err := s.assessments.CountCaseloadAssessments(ctx, counselorID, since)
	if err != nil {
		return domain.CheckinSummary{}, apperr.Internal(err)
	}
	summary := domain.CheckinSummary{Completed: completed, Expected: victims * CheckinWindowDays}
	if summary.Expected > 0 {
		summary.Percentage = int(math.Round(float64(completed) / float64(summary.Expected) * 100))
	}
	return summary, nil
}
