package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
)

var userFields = []string{
	"id", "name", "email", "password_hash", "role", "phone", "date_of_birth", "gender", "agree_terms",
	"qualifications", "bio", "specialization", "location", "recovery_score", "assigned_counselor_id",
	"is_active", "last_login", "created_at", "updated_at",
}

// userColumns renders the user column list, optionally qualified by a table alias.
func userColumns(alias string) string {
	if alias == "" {
		return strings.Join(userFields, ", ")
	}
	cols := make([]string, len(userFields))
	for i, f := range userFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

func scanUser(row rowScanner, extra ...any) (*domain.User, error) {
	var u domain.User
	var role string
	dest := []any{
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Phone, &u.DateOfBirth, &u.Gender, &u.AgreeTerms,
		&u.Qualifications, &u.Bio, &u.Specialization, &u.Location, &u.RecoveryScore, &u.AssignedCounselorID,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// CreateUser inserts a user, optionally auto-assigning the least recently added counselor.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User, autoAssign bool) error {
	const query = `INSERT INTO users (id, name, email, password_hash, role, phone, date_of_birth, gender, agree_terms,
			qualifications, bio, specialization, location, assigned_counselor_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			COALESCE($14::text, CASE WHEN $15::boolean AND $5::text = 'victim' THEN (
				SELECT c.id FROM users c
				WHERE c.role = 'counselor' AND c.is_active
				ORDER BY c.created_at ASC, c.id ASC
				LIMIT 1
			) END),
			$16, $17, $17)
		RETURNING assigned_counselor_id`
	row := r.pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), user.Phone, user.DateOfBirth, user.Gender,
		user.AgreeTerms, user.Qualifications, user.Bio, user.Specialization, user.Location,
		user.AssignedCounselorID, autoAssign, user.IsActive, user.CreatedAt,
	)
	var assigned *string
	if err := row.Scan(&assigned); err != nil {
		return mapError(err)
	}
	user.AssignedCounselorID = assigned
	user.UpdatedAt = user.CreatedAt
	return nil
}

// GetUserByEmail fetches a user by email, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns("") + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns("") + ` FROM users WHERE id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// ListUsers returns every user, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns("") + ` FROM users ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetUserActive flips the activation flag.
func (r *Repository) SetUserActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	query := `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns("")
	u, err := scanUser(r.pool.QueryRow(ctx, query, id, active))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// AssignCounselor performs the assignment as a single conditional update.
func (r *Repository) AssignCounselor(ctx context.Context, victimID, counselorID string, expected *string) (*domain.User, error) {
	query := `UPDATE users v SET assigned_counselor_id = $2, updated_at = NOW()
		WHERE v.id = $1 AND v.role = 'victim'
			AND EXISTS (SELECT 1 FROM users c WHERE c.id = $2 AND c.role = 'counselor' AND c.is_active)
			AND (NOT $3::boolean OR COALESCE(v.assigned_counselor_id, '') = $4::text)
		RETURNING ` + userColumns("v")
	var want string
	if expected != nil {
		want = *expected
	}
	u, err := scanUser(r.pool.QueryRow(ctx, query, victimID, counselorID, expected != nil, want))
	if err == nil {
		return u, nil
	}
	if err := mapError(err); !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return nil, r.diagnoseAssignment(ctx, victimID, counselorID)
}

// diagnoseAssignment explains why the conditional update matched no row.
func (r *Repository) diagnoseAssignment(ctx context.Context, victimID, counselorID string) error {
	victim, err := r.GetUserByID(ctx, victimID)
	if err != nil {
		return err
	}
	if victim.Role != domain.RoleVictim {
		return repository.ErrNotFound
	}
	counselor, err := r.GetUserByID(ctx, counselorID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrInvalidReference
	}
	if err != nil {
		return err
	}
	if counselor.Role != domain.RoleCounselor || !counselor.IsActive {
		return repository.ErrInvalidReference
	}
	return repository.ErrStale
}

// ListCaseload returns victims assigned to a counselor with their latest message exchange.
func (r *Repository) ListCaseload(ctx context.Context, counselorID string) ([]domain.CaseloadEntry, error) {
	query := `SELECT ` + userColumns("u") + `,
			(SELECT MAX(m.created_at) FROM messages m
				WHERE (m.from_id = u.id AND m.to_id = $1) OR (m.from_id = $1 AND m.to_id = u.id)) AS last_contact
		FROM users u
		WHERE u.assigned_counselor_id = $1 AND u.role = 'victim'
		ORDER BY last_contact DESC NULLS LAST, u.created_at DESC`
	rows, err := r.pool.Query(ctx, query, counselorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CaseloadEntry, 0)
	for rows.Next() {
		var last *time.Time
		u, err := scanUser(rows, &last)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.CaseloadEntry{Victim: *u, LastContact: last})
	}
	return entries, rows.Err()
}
