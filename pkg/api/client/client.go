package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:4000"

// Client provides typed access to the Hope Connect API for operator tooling.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	if e.Field != "" {
		return fmt.Sprintf("api request failed (%d): %s [%s]", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return extractError(resp.StatusCode, resp.Body)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(status int, body io.Reader) APIError {
	out := APIError{Status: status}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return out
	}
	var payload struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		out.Message = strings.TrimSpace(string(data))
		return out
	}
	out.Message = strings.TrimSpace(payload.Error)
	out.Field = payload.Field
	return out
}

// User reflects identity payloads. Credentials are never part of it.
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	Specialization    string     `json:"specialization,omitempty"`
	AssignedCounselor *string    `json:"assignedCounselor"`
	IsActive          bool       `json:"isActive"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// LoginResponse captures the identity and bearer token emitted by the API.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Me returns the identity behind token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, token, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// ListUsers returns every account, newest first. Admin only.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// CounselorRequest describes a counselor account to provision.
type CounselorRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Specialization string `json:"specialization"`
	Qualifications string `json:"qualifications,omitempty"`
	Location       string `json:"location,omitempty"`
}

// AddCounselor provisions a counselor account.
func (c *Client) AddCounselor(ctx context.Context, token string, in CounselorRequest) (User, error) {
	var resp struct {
		Counselor User `json:"counselor"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/counselor", in, token, &resp); err != nil {
		return User{}, err
	}
	return resp.Counselor, nil
}

// AssignCounselor points a victim at a counselor. A non-nil expected makes the write conditional
// on the victim's current counselor.
func (c *Client) AssignCounselor(ctx context.Context, token, victimID, counselorID string, expected *string) (User, error) {
	body := map[string]any{"counselorId": counselorID}
	if expected != nil {
		body["expectedCounselorId"] = *expected
	}
	var resp struct {
		Victim User `json:"victim"`
	}
	path := "/api/assignments/" + url.PathEscape(victimID)
	if err := c.do(ctx, http.MethodPut, path, body, token, &resp); err != nil {
		return User{}, err
	}
	return resp.Victim, nil
}

// SetActive deactivates or reactivates an account.
func (c *Client) SetActive(ctx context.Context, token, userID string, active bool) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	path := "/api/admin/users/" + url.PathEscape(userID) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, map[string]bool{"isActive": active}, token, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Participant is the identity summary embedded in messages.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Message is a decrypted chat message.
type Message struct {
	ID            string       `json:"id"`
	From          *Participant `json:"from"`
	To            *Participant `json:"to"`
	Text          string       `json:"text"`
	Anonymous     bool         `json:"anonymous"`
	Undecryptable bool         `json:"undecryptable"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// History returns the conversation between userID and otherID, oldest first.
func (c *Client) History(ctx context.Context, token, userID, otherID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	path := "/api/chat/" + url.PathEscape(userID) + "/" + url.PathEscape(otherID)
	if err := c.do(ctx, http.MethodGet, path, nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}
