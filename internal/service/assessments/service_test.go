package assessments

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository/memory"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/access"
)

func newAssessmentService(t *testing.T, now time.Time) (Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for _, u := range []*domain.User{
		{ID: "v", Email: "v@example.com", Role: domain.RoleVictim, IsActive: true},
		{ID: "c", Email: "c@example.com", Role: domain.RoleCounselor, IsActive: true},
		{ID: "c2", Email: "c2@example.com", Role: domain.RoleCounselor, IsActive: true},
	} {
		if err := store.CreateUser(ctx, u, false); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := store.AssignCounselor(ctx, "v", "c", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, access.New(store, log), log)
	svc.now = func() time.Time { return now }
	return svc, store
}

func TestSubmitOncePerUTCDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	svc, _ := newAssessmentService(t, day)
	ctx := context.Background()
	victim := &domain.User{ID: "v", Role: domain.RoleVictim}
	answers := []domain.AssessmentAnswer{{QuestionIndex: 0, Value: 3}}

	if _, err := svc.Submit(ctx, victim, 12, answers); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	svc.now = func() time.Time { return day.Add(20 * time.Minute) }
	if _, err := svc.Submit(ctx, victim, 9, answers); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("same day should conflict, got %v", err)
	}
	svc.now = func() time.Time { return day.Add(40 * time.Minute) }
	if _, err := svc.Submit(ctx, victim, 9, answers); err != nil {
		t.Fatalf("next UTC day should pass: %v", err)
	}

	list, err := svc.ListOwn(ctx, victim)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %d, %v", len(list), err)
	}
	if !list[0].DateTaken.After(list[1].DateTaken) {
		t.Fatal("expected newest first")
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newAssessmentService(t, time.Now())
	victim := &domain.User{ID: "v", Role: domain.RoleVictim}
	answers := []domain.AssessmentAnswer{{QuestionIndex: 0, Value: 1}}
	for name, score := range map[string]float64{"negative": -1, "nan": math.NaN()} {
		if _, err := svc.Submit(context.Background(), victim, score, answers); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation, got %v", name, err)
		}
	}
	if _, err := svc.Submit(context.Background(), victim, 1, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for missing answers, got %v", err)
	}
}

func TestListForUserRespectsRelationship(t *testing.T) {
	svc, _ := newAssessmentService(t, time.Now())
	ctx := context.Background()
	if _, err := svc.ListForUser(ctx, &domain.User{ID: "c", Role: domain.RoleCounselor}, "v"); err != nil {
		t.Fatalf("assigned counselor: %v", err)
	}
	if _, err := svc.ListForUser(ctx, &domain.User{ID: "c2", Role: domain.RoleCounselor}, "v"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.ListForUser(ctx, &domain.User{ID: "a", Role: domain.RoleAdmin}, "v"); err != nil {
		t.Fatalf("admin: %v", err)
	}
}
