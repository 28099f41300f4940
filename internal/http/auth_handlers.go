package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/auth"
)

type registerPayload struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Phone          string `json:"phone"`
	DateOfBirth    string `json:"dateOfBirth"`
	Gender         string `json:"gender"`
	AgreeTerms     bool   `json:"agreeTerms"`
	Qualifications string `json:"qualifications"`
	Bio            string `json:"bio"`
	Specialization string `json:"specialization"`
	Location       string `json:"location"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var payload registerPayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	dob, err := parseDate(payload.DateOfBirth)
	if err != nil {
		r.writeFailure(w, req, apperr.Validation("dateOfBirth", "dateOfBirth must be a date (YYYY-MM-DD)"))
		return
	}
	user, token, err := r.svc.Auth.Register(req.Context(), auth.Registration{
		Name:           payload.Name,
		Email:          payload.Email,
		Password:       payload.Password,
		Role:           domain.Role(strings.ToLower(strings.TrimSpace(payload.Role))),
		Phone:          payload.Phone,
		DateOfBirth:    dob,
		Gender:         payload.Gender,
		AgreeTerms:     payload.AgreeTerms,
		Qualifications: payload.Qualifications,
		Bio:            payload.Bio,
		Specialization: payload.Specialization,
		Location:       payload.Location,
	})
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  newUserResponse(user),
		"token": token,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, token, err := r.svc.Auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  newUserResponse(user),
		"token": token,
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp. Empty input yields nil.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	_, err := time.Parse(time.DateOnly, value)
	return nil, err
}
