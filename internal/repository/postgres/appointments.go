package postgres

import (
	"context"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

const appointmentSelect = `SELECT a.id, a.patient_id, a.counselor_id, a.scheduled_at, a.mode, a.status, a.created_at,
		p.name, p.email, p.role, c.name, c.email, c.role
	FROM appointments a
	JOIN users p ON p.id = a.patient_id
	JOIN users c ON c.id = a.counselor_id`

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var a domain.Appointment
	var patient, counselor domain.UserSummary
	var patientRole, counselorRole string
	if err := row.Scan(&a.ID, &a.PatientID, &a.CounselorID, &a.Time, &a.Mode, &a.Status, &a.CreatedAt,
		&patient.Name, &patient.Email, &patientRole, &counselor.Name, &counselor.Email, &counselorRole); err != nil {
		return nil, err
	}
	patient.ID, patient.Role = a.PatientID, domain.Role(patientRole)
	counselor.ID, counselor.Role = a.CounselorID, domain.Role(counselorRole)
	a.Patient, a.Counselor = &patient, &counselor
	return &a, nil
}

// CreateAppointment inserts an appointment; the partial unique index rejects double booking.
func (r *Repository) CreateAppointment(ctx context.Context, appt *domain.Appointment) error {
	const query = `INSERT INTO appointments (id, patient_id, counselor_id, scheduled_at, mode, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, appt.ID, appt.PatientID, appt.CounselorID, appt.Time, appt.Mode, appt.Status, appt.CreatedAt)
	return mapError(err)
}

// GetAppointment fetches an appointment by identifier.
func (r *Repository) GetAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

// ListAppointments returns the appointments a user takes part in, latest first.
func (r *Repository) ListAppointments(ctx context.Context, userID string, role domain.Role) ([]domain.Appointment, error) {
	filter := ` WHERE a.patient_id = $1`
	if role == domain.RoleCounselor {
		filter = ` WHERE a.counselor_id = $1`
	}
	rows, err := r.pool.Query(ctx, appointmentSelect+filter+` ORDER BY a.scheduled_at DESC, a.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

// TransitionAppointment moves a scheduled appointment to a terminal status.
func (r *Repository) TransitionAppointment(ctx context.Context, id, status string) (*domain.Appointment, error) {
	const query = `UPDATE appointments SET status = $2 WHERE id = $1 AND status = 'scheduled'`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return nil, mapError(err)
	}
	appt, err := r.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return appt, repository.ErrStale
	}
	return appt, nil
}
