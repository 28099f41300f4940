// Package appointments books and transitions counseling sessions.
package appointments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

// Service implements booking, listing and status changes.
type Service struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	logger       *slog.Logger
	now          func() time.Time
}

// New constructs a Service.
func New(appointments repository.AppointmentRepository, users repository.UserRepository, logger *slog.Logger) Service {
	return Service{appointments: appointments, users: users, logger: logger, now: time.Now}
}

// Booking is a victim's appointment request.
type Booking struct {
	CounselorID string
	Time        time.Time
	Mode        string
}

// Book schedules an appointment between victim and its assigned counselor.
func (s Service) Book(ctx context.Context, victim *domain.User, in Booking) (*domain.Appointment, error) {
	in.CounselorID = strings.TrimSpace(in.CounselorID)
	in.Mode = strings.TrimSpace(in.Mode)
	if in.CounselorID == "" {
		return nil, apperr.Validation("counselorId", "counselorId is required")
	}
	if in.Time.IsZero() {
		return nil, apperr.Validation("time", "time is required")
	}
	now := s.now().UTC()
	if !in.Time.After(now) {
		return nil, apperr.Validation("time", "cannot book an appointment in the past")
	}
	switch in.Mode {
	case "":
		in.Mode = domain.AppointmentOnline
	case domain.AppointmentOnline, domain.AppointmentInPerson:
	default:
		return nil, apperr.Validation("mode", "mode must be online or in-person")
	}

	counselor, err := s.users.GetUserByID(ctx, in.CounselorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err)
	}
	if err != nil || counselor.Role != domain.RoleCounselor || !counselor.IsActive {
		return nil, apperr.NotFound("counselor not found")
	}
	self, err := s.users.GetUserByID(ctx, victim.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !self.IsAssignedTo(counselor.ID) {
		return nil, apperr.Forbidden("appointments can only be booked with your assigned counselor", nil)
	}

	appt := &domain.Appointment{
		ID:          uuid.NewString(),
		PatientID:   victim.ID,
		CounselorID: counselor.ID,
		Time:        in.Time.UTC(),
		Mode:        in.Mode,
		Status:      domain.AppointmentScheduled,
		CreatedAt:   now,
	}
	if err := s.appointments.CreateAppointment(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("counselor already has an appointment at this time", err)
		}
		return nil, apperr.Internal(err)
	}
	patient, other := self.Summary(), counselor.Summary()
	appt.Patient, appt.Counselor = &patient, &other
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "patient_id", victim.ID, "counselor_id", counselor.ID, "time", appt.Time)
	return appt, nil
}

// List returns the caller's appointments.
func (s Service) List(ctx context.Context, caller *domain.User) ([]domain.Appointment, error) {
	if caller.Role != domain.RoleVictim && caller.Role != domain.RoleCounselor {
		return nil, apperr.Forbidden("role not permitted", nil)
	}
	appts, err := s.appointments.ListAppointments(ctx, caller.ID, caller.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return appts, nil
}

// UpdateStatus cancels or completes a scheduled appointment. Either participant may cancel;
// only the counselor may complete.
func (s Service) UpdateStatus(ctx context.Context, caller *domain.User, id, status string) (*domain.Appointment, error) {
	status = strings.TrimSpace(status)
	if status != domain.AppointmentCancelled && status != domain.AppointmentCompleted {
		return nil, apperr.Validation("status", "status must be cancelled or completed")
	}
	appt, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, apperr.Internal(err)
	}
	if caller.ID != appt.PatientID && caller.ID != appt.CounselorID {
		return nil, apperr.Forbidden("not a participant of this appointment", nil)
	}
	if status == domain.AppointmentCompleted && caller.ID != appt.CounselorID {
		return nil, apperr.Forbidden("only the counselor can complete an appointment", nil)
	}

	updated, err := s.appointments.TransitionAppointment(ctx, id, status)
	switch {
	case errors.Is(err, repository.ErrStale):
		return nil, apperr.Conflict("only scheduled appointments can be updated", err)
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("appointment not found")
	case err != nil:
		return nil, apperr.Internal(err)
	}
	s.logger.Info("appointment updated", "appointment_id", id, "status", status, "actor_id", caller.ID)
	return updated, nil
}
