package postgres

import (
	"context"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
)

const messageSelect = `SELECT m.id, m.seq, m.from_id, m.to_id, m.text, m.anonymous, m.created_at,
		f.name, f.email, f.role, t.name, t.email, t.role
	FROM messages m
	JOIN users f ON f.id = m.from_id
	JOIN users t ON t.id = m.to_id`

func scanMessage(row rowScanner) (*domain.Message, error) {
	var m domain.Message
	from := domain.UserSummary{}
	to := domain.UserSummary{}
	var fromRole, toRole string
	if err := row.Scan(&m.ID, &m.Seq, &m.FromID, &m.ToID, &m.Text, &m.Anonymous, &m.CreatedAt,
		&from.Name, &from.Email, &fromRole, &to.Name, &to.Email, &toRole); err != nil {
		return nil, err
	}
	from.ID, from.Role = m.FromID, domain.Role(fromRole)
	to.ID, to.Role = m.ToID, domain.Role(toRole)
	m.From, m.To = &from, &to
	return &m, nil
}

// CreateMessage inserts a message; the store assigns sequence and timestamp.
func (r *Repository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	const query = `INSERT INTO messages (id, from_id, to_id, text, anonymous)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq, created_at`
	row := r.pool.QueryRow(ctx, query, msg.ID, msg.FromID, msg.ToID, msg.Text, msg.Anonymous)
	if err := row.Scan(&msg.Seq, &msg.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

// GetMessage fetches a stored message with participant summaries.
func (r *Repository) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

// ListConversation returns messages exchanged between two users in creation order.
func (r *Repository) ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	query := messageSelect + `
		WHERE (m.from_id = $1 AND m.to_id = $2) OR (m.from_id = $2 AND m.to_id = $1)
		ORDER BY m.created_at ASC, m.seq ASC`
	rows, err := r.pool.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}
