package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

// CreateMessage stores msg and assigns its sequence and timestamp.
func (s *Store) CreateMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[msg.FromID]; !ok {
		return repository.ErrInvalidReference
	}
	if _, ok := s.users[msg.ToID]; !ok {
		return repository.ErrInvalidReference
	}
	s.seq++
	msg.Seq = s.seq
	msg.CreatedAt = s.now()
	stored := *msg
	stored.From, stored.To = nil, nil
	s.messages = append(s.messages, stored)
	return nil
}

func (s *Store) withSummaries(m domain.Message) domain.Message {
	m.From = s.summary(m.FromID)
	m.To = s.summary(m.ToID)
	return m
}

// GetMessage fetches a message by id.
func (s *Store) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			out := s.withSummaries(m)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListConversation returns both directions between two users, oldest first.
func (s *Store) ListConversation(_ context.Context, userA, userB string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, 0)
	for _, m := range s.messages {
		if (m.FromID == userA && m.ToID == userB) || (m.FromID == userB && m.ToID == userA) {
			out = append(out, s.withSummaries(m))
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Message) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Seq, b.Seq))
	})
	return out, nil
}

// CreateNote stores a note.
func (s *Store) CreateNote(_ context.Context, note *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[note.CounselorID]; !ok {
		return repository.ErrInvalidReference
	}
	if _, ok := s.users[note.VictimID]; !ok {
		return repository.ErrInvalidReference
	}
	note.UpdatedAt = note.CreatedAt
	stored := *note
	stored.Counselor = nil
	s.notes[note.ID] = stored
	return nil
}

// GetNote fetches a note.
func (s *Store) GetNote(_ context.Context, id string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	n.Counselor = s.summary(n.CounselorID)
	return &n, nil
}

// ListNotesByVictim returns a victim's notes, newest first.
func (s *Store) ListNotesByVictim(_ context.Context, victimID string) ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Note, 0)
	for _, n := range s.notes {
		if n.VictimID == victimID {
			n.Counselor = s.summary(n.CounselorID)
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b domain.Note) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// UpdateNote rewrites a note's content.
func (s *Store) UpdateNote(_ context.Context, note *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[note.ID]
	if !ok {
		return repository.ErrNotFound
	}
	n.Content = note.Content
	n.UpdatedAt = note.UpdatedAt
	s.notes[note.ID] = n
	return nil
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

// CreateAppointment stores appt unless the counselor already holds a scheduled slot at that time.
func (s *Store) CreateAppointment(_ context.Context, appt *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appointments {
		if a.CounselorID == appt.CounselorID && a.Status == domain.AppointmentScheduled && a.Time.Equal(appt.Time) {
			return repository.ErrConflict
		}
	}
	stored := *appt
	stored.Patient, stored.Counselor = nil, nil
	s.appointments[appt.ID] = stored
	return nil
}

func (s *Store) appointmentView(a domain.Appointment) domain.Appointment {
	a.Patient = s.summary(a.PatientID)
	a.Counselor = s.summary(a.CounselorID)
	return a
}

// GetAppointment fetches an appointment.
func (s *Store) GetAppointment(_ context.Context, id string) (*domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.appointmentView(a)
	return &out, nil
}

// ListAppointments returns a participant's appointments, latest first.
func (s *Store) ListAppointments(_ context.Context, userID string, role domain.Role) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Appointment, 0)
	for _, a := range s.appointments {
		owner := a.PatientID
		if role == domain.RoleCounselor {
			owner = a.CounselorID
		}
		if owner == userID {
			out = append(out, s.appointmentView(a))
		}
	}
	slices.SortFunc(out, func(a, b domain.Appointment) int {
		return cmp.Or(b.Time.Compare(a.Time), b.CreatedAt.Compare(a.CreatedAt))
	})
	return out, nil
}

// TransitionAppointment moves a scheduled appointment to status.
func (s *Store) TransitionAppointment(_ context.Context, id, status string) (*domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != domain.AppointmentScheduled {
		out := s.appointmentView(a)
		return &out, repository.ErrStale
	}
	a.Status = status
	s.appointments[id] = a
	out := s.appointmentView(a)
	return &out, nil
}

func utcDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// CreateAssessment stores an assessment, one per user per UTC day.
func (s *Store) CreateAssessment(_ context.Context, assessment *domain.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := utcDay(assessment.DateTaken)
	for _, a := range s.assessments {
		if a.UserID == assessment.UserID && utcDay(a.DateTaken) == day {
			return repository.ErrConflict
		}
	}
	stored := *assessment
	stored.Answers = slices.Clone(assessment.Answers)
	s.assessments[assessment.ID] = stored
	return nil
}

// ListAssessmentsByUser returns a user's assessments, newest first.
func (s *Store) ListAssessmentsByUser(_ context.Context, userID string) ([]domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Assessment, 0)
	for _, a := range s.assessments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Assessment) int {
		return b.DateTaken.Compare(a.DateTaken)
	})
	return out, nil
}

// CountCaseloadAssessments counts a counselor's victims and their assessments taken since.
func (s *Store) CountCaseloadAssessments(_ context.Context, counselorID string, since time.Time) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	victims := 0
	for _, u := range s.users {
		if u.IsAssignedTo(counselorID) {
			victims++
		}
	}
	completed := 0
	for _, a := range s.assessments {
		u, ok := s.users[a.UserID]
		if ok && u.IsAssignedTo(counselorID) && !a.DateTaken.Before(since) {
			completed++
		}
	}
	return victims, completed, nil
}
