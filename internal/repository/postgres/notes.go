package postgres

import (
	"context"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

const noteSelect = `SELECT n.id, n.counselor_id, n.victim_id, n.content, n.created_at, n.updated_at,
		c.name, c.email, c.role
	FROM notes n
	JOIN users c ON c.id = n.counselor_id`

func scanNote(row rowScanner) (*domain.Note, error) {
	var n domain.Note
	var counselor domain.UserSummary
	var role string
	if err := row.Scan(&n.ID, &n.CounselorID, &n.VictimID, &n.Content, &n.CreatedAt, &n.UpdatedAt,
		&counselor.Name, &counselor.Email, &role); err != nil {
		return nil, err
	}
	counselor.ID, counselor.Role = n.CounselorID, domain.Role(role)
	n.Counselor = &counselor
	return &n, nil
}

// CreateNote inserts a note.
func (r *Repository) CreateNote(ctx context.Context, note *domain.Note) error {
	const query = `INSERT INTO notes (id, counselor_id, victim_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`
	_, err := r.pool.Exec(ctx, query, note.ID, note.CounselorID, note.VictimID, note.Content, note.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	note.UpdatedAt = note.CreatedAt
	return nil
}

// GetNote fetches a note by identifier.
func (r *Repository) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	n, err := scanNote(r.pool.QueryRow(ctx, noteSelect+` WHERE n.id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return n, nil
}

// ListNotesByVictim returns a victim's notes, newest first.
func (r *Repository) ListNotesByVictim(ctx context.Context, victimID string) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, noteSelect+` WHERE n.victim_id = $1 ORDER BY n.created_at DESC, n.id`, victimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// UpdateNote rewrites note content.
func (r *Repository) UpdateNote(ctx context.Context, note *domain.Note) error {
	const query = `UPDATE notes SET content = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, note.ID, note.Content, note.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteNote removes a note.
func (r *Repository) DeleteNote(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
