package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
)

// CreateAssessment inserts an assessment; the (user, UTC day) unique index allows one per day.
func (r *Repository) CreateAssessment(ctx context.Context, assessment *domain.Assessment) error {
	answers, err := json.Marshal(assessment.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	const query = `INSERT INTO assessments (id, user_id, date_taken, taken_on, score, answers, created_at)
		VALUES ($1, $2, $3, ($3::timestamptz AT TIME ZONE 'UTC')::date, $4, $5::jsonb, $6)`
	_, err = r.pool.Exec(ctx, query, assessment.ID, assessment.UserID, assessment.DateTaken, assessment.Score, string(answers), assessment.CreatedAt)
	return mapError(err)
}

// ListAssessmentsByUser returns a user's assessments, most recent first.
func (r *Repository) ListAssessmentsByUser(ctx context.Context, userID string) ([]domain.Assessment, error) {
	const query = `SELECT id, user_id, date_taken, score, answers, created_at
		FROM assessments WHERE user_id = $1 ORDER BY date_taken DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Assessment, 0)
	for rows.Next() {
		var a domain.Assessment
		var answers []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.DateTaken, &a.Score, &answers, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &a.Answers); err != nil {
				return nil, fmt.Errorf("decode answers for %s: %w", a.ID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountCaseloadAssessments counts a counselor's victims and their assessments since a point in time.
func (r *Repository) CountCaseloadAssessments(ctx context.Context, counselorID string, since time.Time) (int, int, error) {
	const query = `SELECT
			(SELECT COUNT(1) FROM users WHERE assigned_counselor_id = $1 AND role = 'victim'),
			(SELECT COUNT(1) FROM assessments a
				JOIN users u ON u.id = a.user_id
				WHERE u.assigned_counselor_id = $1 AND u.role = 'victim' AND a.date_taken >= $2)`
	var victims, completed int
	if err := r.pool.QueryRow(ctx, query, counselorID, since).Scan(&victims, &completed); err != nil {
		return 0, 0, err
	}
	return victims, completed, nil
}
