package access

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

type fixture struct {
	engine    Engine
	store     *memory.Store
	admin     *domain.User
	counselor *domain.User
	other     *domain.User
	victim    *domain.User
	lonely    *domain.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	mk := func(id string, role domain.Role) *domain.User {
		u := &domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role, IsActive: true, CreatedAt: time.Now()}
		if err := store.CreateUser(ctx, u, false); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		return u
	}
	f := fixture{
		store:     store,
		admin:     mk("admin", domain.RoleAdmin),
		counselor: mk("counselor", domain.RoleCounselor),
		other:     mk("other-counselor", domain.RoleCounselor),
		victim:    mk("victim", domain.RoleVictim),
		lonely:    mk("lonely", domain.RoleVictim),
	}
	if _, err := store.AssignCounselor(ctx, "victim", "counselor", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.victim.AssignedCounselorID = &f.counselor.ID
	f.engine = New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.RequireRole(f.admin, domain.RoleAdmin); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}
	if err := f.engine.RequireRole(f.victim, domain.RoleAdmin, domain.RoleCounselor); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.engine.RequireRole(nil, domain.RoleAdmin); !apperr.Is(err, apperr.KindAuth) {
		t.Fatalf("expected auth error for nil user, got %v", err)
	}
}

func TestRequireAssignmentFollowsReassignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.RequireAssignment(ctx, f.other, "victim"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("unassigned counselor should be forbidden, got %v", err)
	}
	if _, err := f.engine.RequireAssignment(ctx, f.counselor, "victim"); err != nil {
		t.Fatalf("assigned counselor should pass: %v", err)
	}

	if _, err := f.store.AssignCounselor(ctx, "victim", "other-counselor", nil); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if _, err := f.engine.RequireAssignment(ctx, f.other, "victim"); err != nil {
		t.Fatalf("new counselor should pass: %v", err)
	}
	if _, err := f.engine.RequireAssignment(ctx, f.counselor, "victim"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("previous counselor should lose access, got %v", err)
	}
	if _, err := f.engine.RequireAssignment(ctx, f.counselor, "missing"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("missing victim should be forbidden, got %v", err)
	}
}

func TestRequireConversationPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	allowed := []struct {
		caller *domain.User
		other  string
	}{
		{f.victim, "counselor"},
		{f.victim, "admin"},
		{f.counselor, "victim"},
		{f.counselor, "other-counselor"},
		{f.admin, "lonely"},
		{f.lonely, "admin"},
	}
	for _, tc := range allowed {
		if _, err := f.engine.RequireConversation(ctx, tc.caller, tc.other); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.caller.ID, tc.other, err)
		}
	}

	denied := []struct {
		caller *domain.User
		other  string
	}{
		{f.victim, "other-counselor"},
		{f.victim, "lonely"},
		{f.other, "victim"},
		{f.lonely, "counselor"},
	}
	for _, tc := range denied {
		if _, err := f.engine.RequireConversation(ctx, tc.caller, tc.other); !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("%s -> %s should be forbidden, got %v", tc.caller.ID, tc.other, err)
		}
	}

	if _, err := f.engine.RequireConversation(ctx, f.victim, "nobody"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.engine.RequireConversation(ctx, f.victim, "victim"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for self, got %v", err)
	}
}

func TestRequireVictimAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, caller := range []*domain.User{f.admin, f.counselor, f.victim} {
		if _, err := f.engine.RequireVictimAccess(ctx, caller, "victim"); err != nil {
			t.Fatalf("%s should see victim: %v", caller.ID, err)
		}
	}
	for _, caller := range []*domain.User{f.other, f.lonely} {
		if _, err := f.engine.RequireVictimAccess(ctx, caller, "victim"); !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("%s should be forbidden, got %v", caller.ID, err)
		}
	}
	if _, err := f.engine.RequireVictimAccess(ctx, f.admin, "counselor"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("non-victim target should be not found, got %v", err)
	}
}

func TestRequireParticipant(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.RequireParticipant(f.victim, "victim", "counselor"); err != nil {
		t.Fatalf("participant should pass: %v", err)
	}
	if err := f.engine.RequireParticipant(f.admin, "victim", "counselor"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("non participant should be forbidden, got %v", err)
	}
}
