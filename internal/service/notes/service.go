// Package notes manages counselor notes about assigned victims.
package notes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/access"
)

// Service creates, lists and edits notes behind the relationship gate.
type Service struct {
	notes  repository.NoteRepository
	access access.Engine
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(notes repository.NoteRepository, engine access.Engine, logger *slog.Logger) Service {
	return Service{notes: notes, access: engine, logger: logger, now: time.Now}
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("content", "content is required")
	}
	if utf8.RuneCountInString(content) > domain.NoteMaxLength {
		return "", apperr.Validation("content", "content must be at most 1000 characters")
	}
	return content, nil
}

// Create records a note about victimID written by counselor.
func (s Service) Create(ctx context.Context, counselor *domain.User, victimID, content string) (*domain.Note, error) {
	if strings.TrimSpace(victimID) == "" {
		return nil, apperr.Validation("victimId", "victimId is required")
	}
	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireAssignment(ctx, counselor, victimID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	note := &domain.Note{
		ID:          uuid.NewString(),
		CounselorID: counselor.ID,
		VictimID:    victimID,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		return nil, apperr.Internal(err)
	}
	summary := counselor.Summary()
	note.Counselor = &summary
	s.logger.Info("note created", "note_id", note.ID, "counselor_id", counselor.ID, "victim_id", victimID)
	return note, nil
}

// ListForVictim returns notes about victimID. Admins may read any victim's notes; counselors
// only those of their assigned victims.
func (s Service) ListForVictim(ctx context.Context, caller *domain.User, victimID string) ([]domain.Note, error) {
	if err := s.access.RequireRole(caller, domain.RoleAdmin, domain.RoleCounselor); err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleCounselor {
		if _, err := s.access.RequireAssignment(ctx, caller, victimID); err != nil {
			return nil, err
		}
	}
	notes, err := s.notes.ListNotesByVictim(ctx, victimID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return notes, nil
}

// authored loads noteID and checks that counselor wrote it and still holds the victim.
func (s Service) authored(ctx context.Context, counselor *domain.User, noteID string) (*domain.Note, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("note not found")
		}
		return nil, apperr.Internal(err)
	}
	if note.CounselorID != counselor.ID {
		return nil, apperr.Forbidden("only the author may modify this note", nil)
	}
	if _, err := s.access.RequireAssignment(ctx, counselor, note.VictimID); err != nil {
		return nil, err
	}
	return note, nil
}

// Update replaces the content of a note authored by counselor.
func (s Service) Update(ctx context.Context, counselor *domain.User, noteID, content string) (*domain.Note, error) {
	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	note, err := s.authored(ctx, counselor, noteID)
	if err != nil {
		return nil, err
	}
	note.Content = content
	note.UpdatedAt = s.now().UTC()
	if err := s.notes.UpdateNote(ctx, note); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("note not found")
		}
		return nil, apperr.Internal(err)
	}
	return note, nil
}

// Delete removes a note authored by counselor.
func (s Service) Delete(ctx context.Context, counselor *domain.User, noteID string) error {
	if _, err := s.authored(ctx, counselor, noteID); err != nil {
		return err
	}
	if err := s.notes.DeleteNote(ctx, noteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("note not found")
		}
		return apperr.Internal(err)
	}
	s.logger.Info("note deleted", "note_id", noteID, "counselor_id", counselor.ID)
	return nil
}
