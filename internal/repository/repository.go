package repository

import (
	"context"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
)

// UserRepository persists identities and the assignment relation.
type UserRepository interface {
	// CreateUser inserts user, returning ErrConflict for a duplicate email. When autoAssign is
	// set and the user is a victim, the least recently added active counselor is assigned in the
	// same statement and written back to user.AssignedCounselorID.
	CreateUser(ctx context.Context, user *domain.User, autoAssign bool) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetUserActive(ctx context.Context, id string, active bool) (*domain.User, error)
	// AssignCounselor sets victimID's counselor when the victim exists with role victim and
	// counselorID is an active counselor. A non-nil expected is compared with the current value
	// (nil pointer to empty string means unassigned) and ErrStale returned on mismatch.
	AssignCounselor(ctx context.Context, victimID, counselorID string, expected *string) (*domain.User, error)
	ListCaseload(ctx context.Context, counselorID string) ([]domain.CaseloadEntry, error)
}

// MessageRepository persists chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
}

// NoteRepository persists counselor notes.
type NoteRepository interface {
	CreateNote(ctx context.Context, note *domain.Note) error
	GetNote(ctx context.Context, id string) (*domain.Note, error)
	ListNotesByVictim(ctx context.Context, victimID string) ([]domain.Note, error)
	UpdateNote(ctx context.Context, note *domain.Note) error
	DeleteNote(ctx context.Context, id string) error
}

// AppointmentRepository persists appointments.
type AppointmentRepository interface {
	// CreateAppointment returns ErrConflict when the counselor already has a scheduled slot at that time.
	CreateAppointment(ctx context.Context, appt *domain.Appointment) error
	GetAppointment(ctx context.Context, id string) (*domain.Appointment, error)
	ListAppointments(ctx context.Context, userID string, role domain.Role) ([]domain.Appointment, error)
	// TransitionAppointment moves a scheduled appointment to status, ErrStale when it is no longer scheduled.
	TransitionAppointment(ctx context.Context, id, status string) (*domain.Appointment, error)
}

// AssessmentRepository persists self-assessments.
type AssessmentRepository interface {
	// CreateAssessment returns ErrConflict when the user already has an assessment on that UTC day.
	CreateAssessment(ctx context.Context, assessment *domain.Assessment) error
	ListAssessmentsByUser(ctx context.Context, userID string) ([]domain.Assessment, error)
	CountCaseloadAssessments(ctx context.Context, counselorID string, since time.Time) (victims, completed int, err error)
}
