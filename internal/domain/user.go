package domain

import "time"

// Role is an identity's access class.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCounselor Role = "counselor"
	RoleVictim    Role = "victim"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCounselor, RoleVictim:
		return true
	}
	return false
}

// Genders accepted on registration.
var Genders = []string{"Male", "Female", "Other", "Prefer not to say"}

// User represents an account.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        []byte
	Role                Role
	Phone               string
	DateOfBirth         *time.Time
	Gender              string
	AgreeTerms          bool
	Qualifications      string
	Bio                 string
	Specialization      string
	Location            string
	RecoveryScore       int
	AssignedCounselorID *string
	IsActive            bool
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsAssignedTo reports whether the user is a victim assigned to counselorID.
func (u *User) IsAssignedTo(counselorID string) bool {
	return u != nil && u.Role == RoleVictim && u.AssignedCounselorID != nil && *u.AssignedCounselorID == counselorID
}

// Summary returns the public projection used in nested payloads.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSummary is the subset of identity fields embedded in other resources.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// CaseloadEntry is a victim assigned to a counselor with the latest contact between them.
type CaseloadEntry struct {
	Victim      User
	LastContact *time.Time
}

// CheckinSummary aggregates assessment completion for a counselor's caseload.
type CheckinSummary struct {
	Percentage int `json:"percentage"`
	Completed  int `json:"completed"`
	Expected   int `json:"expected"`
}
