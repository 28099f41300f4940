package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "admin@example.com" || body["password"] != "secret1" {
			t.Errorf("unexpected body %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":  map[string]any{"id": "u1", "email": "admin@example.com", "role": "admin"},
			"token": "tok",
		})
	}))
	defer srv.Close()

	cli, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	resp, err := cli.Login(context.Background(), "admin@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "tok" || resp.User.Role != "admin" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestErrorsCarryStatusAndField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"specialization is required","field":"specialization"}`))
	}))
	defer srv.Close()

	cli, _ := New(srv.URL)
	_, err := cli.AddCounselor(context.Background(), "tok", CounselorRequest{Name: "C"})
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Field != "specialization" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestAssignCounselorPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/assignments/v1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["counselorId"] != "c2" || body["expectedCounselorId"] != "c1" {
			t.Errorf("unexpected body %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"victim": map[string]any{"id": "v1", "assignedCounselor": "c2"}})
	}))
	defer srv.Close()

	cli, _ := New(srv.URL)
	expected := "c1"
	victim, err := cli.AssignCounselor(context.Background(), "tok", "v1", "c2", &expected)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if victim.AssignedCounselor == nil || *victim.AssignedCounselor != "c2" {
		t.Fatalf("unexpected victim %+v", victim)
	}
}

func TestNewDefaultsBaseURL(t *testing.T) {
	cli, err := New("  ")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cli.baseURL != defaultBaseURL {
		t.Fatalf("unexpected base url %q", cli.baseURL)
	}
	cli, _ = New("api.example.com/")
	if cli.baseURL != "http://api.example.com" {
		t.Fatalf("unexpected base url %q", cli.baseURL)
	}
}
