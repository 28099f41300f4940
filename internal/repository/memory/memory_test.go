package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

func seed(t *testing.T, s *Store, id string, role domain.Role, created time.Time) {
	t.Helper()
	u := &domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role, IsActive: true, CreatedAt: created}
	if err := s.CreateUser(context.Background(), u, false); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestCreateUserRejectsDuplicateEmailAnyCase(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateUser(ctx, &domain.User{ID: "1", Email: "a@example.com", Role: domain.RoleVictim}, false); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.CreateUser(ctx, &domain.User{ID: "2", Email: "A@Example.com", Role: domain.RoleVictim}, false)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAutoAssignPicksOldestActiveCounselor(t *testing.T) {
	s := New()
	base := time.Now().Add(-time.Hour)
	seed(t, s, "c-new", domain.RoleCounselor, base.Add(time.Minute))
	seed(t, s, "c-old", domain.RoleCounselor, base)
	if _, err := s.SetUserActive(context.Background(), "c-old", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	victim := &domain.User{ID: "v", Email: "v@example.com", Role: domain.RoleVictim}
	if err := s.CreateUser(context.Background(), victim, true); err != nil {
		t.Fatalf("create victim: %v", err)
	}
	if victim.AssignedCounselorID == nil || *victim.AssignedCounselorID != "c-new" {
		t.Fatalf("expected c-new, got %v", victim.AssignedCounselorID)
	}
}

func TestAssignCounselorCompareAndSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	seed(t, s, "c1", domain.RoleCounselor, now)
	seed(t, s, "c2", domain.RoleCounselor, now)
	seed(t, s, "v", domain.RoleVictim, now)

	unassigned := ""
	if _, err := s.AssignCounselor(ctx, "v", "c1", &unassigned); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := s.AssignCounselor(ctx, "v", "c2", &unassigned); !errors.Is(err, repository.ErrStale) {
		t.Fatalf("expected stale, got %v", err)
	}
	if _, err := s.AssignCounselor(ctx, "v", "v", nil); !errors.Is(err, repository.ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
	if _, err := s.AssignCounselor(ctx, "c1", "c2", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found for non-victim, got %v", err)
	}
}

func TestScheduledSlotIsExclusive(t *testing.T) {
	s := New()
	ctx := context.Background()
	slot := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	first := &domain.Appointment{ID: "a1", PatientID: "v1", CounselorID: "c", Time: slot, Status: domain.AppointmentScheduled}
	if err := s.CreateAppointment(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &domain.Appointment{ID: "a2", PatientID: "v2", CounselorID: "c", Time: slot, Status: domain.AppointmentScheduled}
	if err := s.CreateAppointment(ctx, second); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.TransitionAppointment(ctx, "a1", domain.AppointmentCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.CreateAppointment(ctx, second); err != nil {
		t.Fatalf("slot should be free after cancel: %v", err)
	}
	if _, err := s.TransitionAppointment(ctx, "a1", domain.AppointmentCompleted); !errors.Is(err, repository.ErrStale) {
		t.Fatalf("expected stale, got %v", err)
	}
}
