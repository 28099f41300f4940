package assignment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository/memory"
)

func setup(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	for id, role := range map[string]domain.Role{"admin": domain.RoleAdmin, "c1": domain.RoleCounselor, "c2": domain.RoleCounselor, "v": domain.RoleVictim} {
		u := &domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role, IsActive: true, CreatedAt: time.Now()}
		if err := store.CreateUser(context.Background(), u, false); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestMyCounselor(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}

	counselor, err := svc.MyCounselor(ctx, "v")
	if err != nil || counselor != nil {
		t.Fatalf("expected no counselor, got %v, %v", counselor, err)
	}
	if _, err := svc.Assign(ctx, admin, "v", "c1", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	counselor, err = svc.MyCounselor(ctx, "v")
	if err != nil || counselor == nil || counselor.ID != "c1" {
		t.Fatalf("expected c1, got %v, %v", counselor, err)
	}
}

func TestAssignErrors(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}

	if _, err := svc.Assign(ctx, admin, "missing", "c1", nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found victim, got %v", err)
	}
	if _, err := svc.Assign(ctx, admin, "v", "admin", nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found counselor, got %v", err)
	}
	if _, err := svc.Assign(ctx, admin, "", "c1", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}

	none := ""
	if _, err := svc.Assign(ctx, admin, "v", "c1", &none); err != nil {
		t.Fatalf("cas from unassigned: %v", err)
	}
	if _, err := svc.Assign(ctx, admin, "v", "c2", &none); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on stale expectation, got %v", err)
	}
	current := "c1"
	victim, err := svc.Assign(ctx, admin, "v", "c2", &current)
	if err != nil {
		t.Fatalf("cas from c1: %v", err)
	}
	if !victim.IsAssignedTo("c2") {
		t.Fatalf("expected c2, got %v", victim.AssignedCounselorID)
	}
}
