package auth

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
	"github.com/alvinkenyagah/hope-connect-server/pkg/config"
	"github.com/alvinkenyagah/hope-connect-server/pkg/crypto"
	jwtpkg "github.com/alvinkenyagah/hope-connect-server/pkg/jwt"
)

const (
	minPasswordLength = 6
	maxBioLength      = 500
	invalidCreds      = "invalid credentials"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Service handles registration, login and bearer token verification.
type Service struct {
	users     repository.UserRepository
	logger    *slog.Logger
	cfg       config.APIConfig
	dummyHash []byte
	now       func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) (Service, error) {
	dummy, err := crypto.HashPasswordWithCost(uuid.NewString(), cfg.BcryptCost)
	if err != nil {
		return Service{}, err
	}
	return Service{users: users, logger: logger, cfg: cfg, dummyHash: dummy, now: time.Now}, nil
}

// Registration carries the fields accepted when creating an identity.
type Registration struct {
	Name           string
	Email          string
	Password       string
	Role           domain.Role
	Phone          string
	DateOfBirth    *time.Time
	Gender         string
	AgreeTerms     bool
	Qualifications string
	Bio            string
	Specialization string
	Location       string
}

// Register creates a victim or counselor account and returns it with a fresh token.
func (s Service) Register(ctx context.Context, reg Registration) (*domain.User, string, error) {
	if reg.Role == domain.RoleAdmin {
		return nil, "", apperr.Validation("role", "admin accounts cannot self-register")
	}
	user, err := s.Provision(ctx, reg, s.cfg.AutoAssignCounselor)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Provision validates reg and inserts the identity. Duplicate emails surface as Conflict from the
// unique index rather than a pre-read.
func (s Service) Provision(ctx context.Context, reg Registration, autoAssign bool) (*domain.User, error) {
	if err := validateRegistration(&reg); err != nil {
		return nil, err
	}
	hash, err := crypto.HashPasswordWithCost(reg.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Name:           reg.Name,
		Email:          reg.Email,
		PasswordHash:   hash,
		Role:           reg.Role,
		Phone:          reg.Phone,
		DateOfBirth:    reg.DateOfBirth,
		Gender:         reg.Gender,
		AgreeTerms:     reg.AgreeTerms,
		Qualifications: reg.Qualifications,
		Bio:            reg.Bio,
		Specialization: reg.Specialization,
		Location:       reg.Location,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.CreateUser(ctx, user, autoAssign); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("user already exists", err)
		}
		return nil, apperr.Internal(err)
	}
	attrs := []any{"user_id", user.ID, "role", user.Role}
	if user.AssignedCounselorID != nil {
		attrs = append(attrs, "assigned_counselor_id", *user.AssignedCounselorID)
	}
	s.logger.Info("user registered", attrs...)
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator unless an account with that email exists.
func (s Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	existing, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			s.logger.Warn("bootstrap admin email belongs to a non-admin account", "user_id", existing.ID, "role", existing.Role)
		}
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	_, err = s.Provision(ctx, Registration{Name: name, Email: email, Password: password, Role: domain.RoleAdmin}, false)
	if apperr.Is(err, apperr.KindConflict) {
		return nil
	}
	return err
}

// Login verifies credentials. Every rejection, including missing fields, shares one error message;
// the reason is only logged at debug level.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		s.logger.Debug("login rejected", "reason", "missing credentials")
		return nil, "", apperr.Unauthenticated(invalidCreds, nil)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperr.Internal(err)
		}
		_ = crypto.ComparePassword(s.dummyHash, password)
		s.logger.Debug("login rejected", "reason", "unknown email")
		return nil, "", apperr.Unauthenticated(invalidCreds, nil)
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Debug("login rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, "", apperr.Unauthenticated(invalidCreds, nil)
	}
	if !user.IsActive {
		s.logger.Debug("login rejected", "reason", "account deactivated", "user_id", user.ID)
		return nil, "", apperr.Unauthenticated(invalidCreds, nil)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return user, token, nil
}

// IssueToken signs a bearer token for userID.
func (s Service) IssueToken(userID string) (string, error) {
	token, err := jwtpkg.GenerateToken(userID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

// Authorize validates a bearer token and returns the associated active user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, apperr.Unauthenticated("token required", nil)
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, apperr.Unauthenticated("invalid or expired token", err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.Unauthenticated("invalid or expired token", err)
		}
		return nil, nil, apperr.Internal(err)
	}
	if !user.IsActive {
		return nil, nil, apperr.Unauthenticated("invalid or expired token", nil)
	}
	return user, claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(reg *Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = normalizeEmail(reg.Email)
	reg.Password = strings.TrimSpace(reg.Password)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Gender = strings.TrimSpace(reg.Gender)

	switch {
	case reg.Name == "":
		return apperr.Validation("name", "name is required")
	case reg.Email == "":
		return apperr.Validation("email", "email is required")
	case reg.Password == "":
		return apperr.Validation("password", "password is required")
	case reg.Role == "":
		return apperr.Validation("role", "role is required")
	}
	if !reg.Role.Valid() {
		return apperr.Validation("role", "role must be victim, counselor or admin")
	}
	if !emailPattern.MatchString(reg.Email) {
		return apperr.Validation("email", "please enter a valid email address")
	}
	if len(reg.Password) < minPasswordLength {
		return apperr.Validation("password", "password must be at least 6 characters long")
	}
	if len([]rune(reg.Bio)) > maxBioLength {
		return apperr.Validation("bio", "bio must be at most 500 characters")
	}
	if reg.Role == domain.RoleVictim {
		switch {
		case reg.Phone == "":
			return apperr.Validation("phone", "phone is required for victims")
		case reg.DateOfBirth == nil:
			return apperr.Validation("dateOfBirth", "date of birth is required for victims")
		case reg.Gender == "":
			return apperr.Validation("gender", "gender is required for victims")
		}
	}
	if reg.Gender != "" && !slices.Contains(domain.Genders, reg.Gender) {
		return apperr.Validation("gender", "gender must be one of "+strings.Join(domain.Genders, ", "))
	}
	return nil
}
