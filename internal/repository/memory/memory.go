// Package memory is an in-process implementation of the repository interfaces.
// It enforces the same uniqueness and conditional-write rules as the Postgres schema.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

var (
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.MessageRepository     = (*Store)(nil)
	_ repository.NoteRepository        = (*Store)(nil)
	_ repository.AppointmentRepository = (*Store)(nil)
	_ repository.AssessmentRepository  = (*Store)(nil)
)

// Store keeps every record in maps guarded by a single lock.
type Store struct {
	mu           sync.RWMutex
	users        map[string]domain.User
	messages     []domain.Message
	notes        map[string]domain.Note
	appointments map[string]domain.Appointment
	assessments  map[string]domain.Assessment
	seq          int64
	now          func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		notes:        make(map[string]domain.Note),
		appointments: make(map[string]domain.Appointment),
		assessments:  make(map[string]domain.Assessment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Messages returns the stored message rows as persisted, without decryption.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

func (s *Store) summary(id string) *domain.UserSummary {
	u, ok := s.users[id]
	if !ok {
		return &domain.UserSummary{ID: id}
	}
	sum := u.Summary()
	return &sum
}

func clone(u domain.User) *domain.User {
	if u.AssignedCounselorID != nil {
		id := *u.AssignedCounselorID
		u.AssignedCounselorID = &id
	}
	u.PasswordHash = slices.Clone(u.PasswordHash)
	return &u
}

// CreateUser inserts user, optionally auto-assigning the least recently added active counselor.
func (s *Store) CreateUser(_ context.Context, user *domain.User, autoAssign bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	if user.AssignedCounselorID != nil {
		c, ok := s.users[*user.AssignedCounselorID]
		if !ok || c.Role != domain.RoleCounselor || user.Role != domain.RoleVictim {
			return repository.ErrInvalidReference
		}
	} else if autoAssign && user.Role == domain.RoleVictim {
		if id, ok := s.oldestCounselor(); ok {
			user.AssignedCounselorID = &id
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *clone(*user)
	return nil
}

func (s *Store) oldestCounselor() (string, bool) {
	var best *domain.User
	for _, u := range s.users {
		if u.Role != domain.RoleCounselor || !u.IsActive {
			continue
		}
		if best == nil || u.CreatedAt.Before(best.CreatedAt) || (u.CreatedAt.Equal(best.CreatedAt) && u.ID < best.ID) {
			best = &u
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

// GetUserByEmail looks a user up case-insensitively.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByID fetches a user.
func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *clone(u))
	}
	slices.SortFunc(out, func(a, b domain.User) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

// SetUserActive flips the activation flag.
func (s *Store) SetUserActive(_ context.Context, id string, active bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = s.now()
	s.users[id] = u
	return clone(u), nil
}

// AssignCounselor performs the compare-and-set assignment under the store lock.
func (s *Store) AssignCounselor(_ context.Context, victimID, counselorID string, expected *string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	victim, ok := s.users[victimID]
	if !ok || victim.Role != domain.RoleVictim {
		return nil, repository.ErrNotFound
	}
	counselor, ok := s.users[counselorID]
	if !ok || counselor.Role != domain.RoleCounselor || !counselor.IsActive {
		return nil, repository.ErrInvalidReference
	}
	if expected != nil {
		current := ""
		if victim.AssignedCounselorID != nil {
			current = *victim.AssignedCounselorID
		}
		if current != *expected {
			return nil, repository.ErrStale
		}
	}
	id := counselorID
	victim.AssignedCounselorID = &id
	victim.UpdatedAt = s.now()
	s.users[victimID] = victim
	return clone(victim), nil
}

// ListCaseload returns the counselor's victims with their latest contact.
func (s *Store) ListCaseload(_ context.Context, counselorID string) ([]domain.CaseloadEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CaseloadEntry, 0)
	for _, u := range s.users {
		if !u.IsAssignedTo(counselorID) {
			continue
		}
		entry := domain.CaseloadEntry{Victim: *clone(u)}
		for _, m := range s.messages {
			pair := (m.FromID == u.ID && m.ToID == counselorID) || (m.FromID == counselorID && m.ToID == u.ID)
			if pair && (entry.LastContact == nil || m.CreatedAt.After(*entry.LastContact)) {
				at := m.CreatedAt
				entry.LastContact = &at
			}
		}
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b domain.CaseloadEntry) int {
		switch {
		case a.LastContact != nil && b.LastContact == nil:
			return -1
		case a.LastContact == nil && b.LastContact != nil:
			return 1
		case a.LastContact != nil && b.LastContact != nil:
			if c := b.LastContact.Compare(*a.LastContact); c != 0 {
				return c
			}
		}
		return b.Victim.CreatedAt.Compare(a.Victim.CreatedAt)
	})
	return out, nil
}
