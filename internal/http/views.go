package httpx

import (
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/ws"
)

type userResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	Phone             string     `json:"phone,omitempty"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	Qualifications    string     `json:"qualifications,omitempty"`
	Bio               string     `json:"bio,omitempty"`
	Specialization    string     `json:"specialization,omitempty"`
	Location          string     `json:"location,omitempty"`
	RecoveryScore     int        `json:"recoveryScore"`
	AssignedCounselor *string    `json:"assignedCounselor"`
	IsActive          bool       `json:"isActive"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// newUserResponse never carries the password hash.
func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              string(u.Role),
		Phone:             u.Phone,
		DateOfBirth:       u.DateOfBirth,
		Gender:            u.Gender,
		Qualifications:    u.Qualifications,
		Bio:               u.Bio,
		Specialization:    u.Specialization,
		Location:          u.Location,
		RecoveryScore:     u.RecoveryScore,
		AssignedCounselor: u.AssignedCounselorID,
		IsActive:          u.IsActive,
		LastLogin:         u.LastLogin,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func newUserResponses(users []domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	return out
}

type caseloadResponse struct {
	userResponse
	LastContact *time.Time `json:"lastContact"`
}

func newCaseloadResponses(entries []domain.CaseloadEntry) []caseloadResponse {
	out := make([]caseloadResponse, 0, len(entries))
	for i := range entries {
		out = append(out, caseloadResponse{
			userResponse: newUserResponse(&entries[i].Victim),
			LastContact:  entries[i].LastContact,
		})
	}
	return out
}

type noteResponse struct {
	ID        string              `json:"id"`
	VictimID  string              `json:"victimId"`
	Counselor *domain.UserSummary `json:"counselor"`
	Content   string              `json:"content"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func newNoteResponse(n *domain.Note) noteResponse {
	counselor := n.Counselor
	if counselor == nil {
		counselor = &domain.UserSummary{ID: n.CounselorID}
	}
	return noteResponse{
		ID:        n.ID,
		VictimID:  n.VictimID,
		Counselor: counselor,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

type appointmentResponse struct {
	ID        string              `json:"id"`
	Patient   *domain.UserSummary `json:"patient"`
	Counselor *domain.UserSummary `json:"counselor"`
	Time      time.Time           `json:"time"`
	Mode      string              `json:"mode"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

func newAppointmentResponse(a *domain.Appointment) appointmentResponse {
	patient, counselor := a.Patient, a.Counselor
	if patient == nil {
		patient = &domain.UserSummary{ID: a.PatientID}
	}
	if counselor == nil {
		counselor = &domain.UserSummary{ID: a.CounselorID}
	}
	return appointmentResponse{
		ID:        a.ID,
		Patient:   patient,
		Counselor: counselor,
		Time:      a.Time,
		Mode:      a.Mode,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}

type assessmentResponse struct {
	ID        string                    `json:"id"`
	UserID    string                    `json:"userId"`
	DateTaken time.Time                 `json:"dateTaken"`
	Score     float64                   `json:"score"`
	Answers   []domain.AssessmentAnswer `json:"answers"`
}

func newAssessmentResponse(a *domain.Assessment) assessmentResponse {
	answers := a.Answers
	if answers == nil {
		answers = []domain.AssessmentAnswer{}
	}
	return assessmentResponse{ID: a.ID, UserID: a.UserID, DateTaken: a.DateTaken, Score: a.Score, Answers: answers}
}

func newMessageResponses(messages []domain.Message) []ws.MessagePayload {
	out := make([]ws.MessagePayload, 0, len(messages))
	for _, m := range messages {
		out = append(out, ws.NewMessagePayload(m))
	}
	return out
}
