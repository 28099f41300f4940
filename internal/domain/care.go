package domain

import "time"

// NoteMaxLength bounds clinical note content.
const NoteMaxLength = 1000

// Note is a counselor's free-text record about a victim.
type Note struct {
	ID          string
	CounselorID string
	VictimID    string
	Content     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Counselor   *UserSummary
}

// AppointmentMode values.
const (
	AppointmentOnline   = "online"
	AppointmentInPerson = "in-person"
)

// AppointmentStatus values.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Appointment is a booked session between a victim (patient) and a counselor.
type Appointment struct {
	ID          string
	PatientID   string
	CounselorID string
	Time        time.Time
	Mode        string
	Status      string
	CreatedAt   time.Time
	Patient     *UserSummary
	Counselor   *UserSummary
}

// AssessmentAnswer is one scored answer of a self-assessment.
type AssessmentAnswer struct {
	QuestionIndex int `json:"questionIndex"`
	Value         int `json:"value"`
}

// Assessment is a victim's daily self-assessment.
type Assessment struct {
	ID        string
	UserID    string
	DateTaken time.Time
	Score     float64
	Answers   []AssessmentAnswer
	CreatedAt time.Time
}
