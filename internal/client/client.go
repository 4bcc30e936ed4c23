// Package client is a Go client for the ember HTTP API and realtime
// endpoint. The terminal client, the load generator and end-to-end tests
// use it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ember/internal/models"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Profile is a partial profile update; empty fields are left unchanged.
type Profile struct {
	Name        string          `json:"name,omitempty"`
	Picture     string          `json:"picture,omitempty"`
	Bio         string          `json:"bio,omitempty"`
	Interests   models.Interest `json:"interests,omitempty"`
	MainPicture string          `json:"mainPicture,omitempty"`
	Age         int             `json:"age,omitempty"`
	Gender      models.Gender   `json:"gender,omitempty"`
}

// AuthResult is the answer of Authenticate.
type AuthResult struct {
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}

// Client talks to one ember server as one user. It is safe for sequential
// use; Authenticate must not race with other calls.
type Client struct {
	baseURL string
	http    *http.Client

	Token  string
	UserID uint
}

// New returns a client for baseURL, e.g. "http://localhost:8375".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Authenticate signs in (creating the user on first use) and keeps the token.
func (c *Client) Authenticate(ctx context.Context, email, name, picture string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "name": name, "picture": picture}
	if err := c.do(ctx, http.MethodPost, "/api/auth", body, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	if out.User != nil {
		c.UserID = out.User.ID
	}
	return &out, nil
}

// UpdateProfile applies p to the signed-in user.
func (c *Client) UpdateProfile(ctx context.Context, p Profile) (*models.User, error) {
	var u models.User
	return &u, c.do(ctx, http.MethodPut, "/api/users/me", p, &u)
}

// ProfileComplete reports whether the signed-in user may enter discovery.
func (c *Client) ProfileComplete(ctx context.Context) (bool, error) {
	var out struct {
		Complete bool `json:"complete"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/me/complete", nil, &out)
	return out.Complete, err
}

// Lookup returns the id of the user with email.
func (c *Client) Lookup(ctx context.Context, email string) (uint, error) {
	var out struct {
		ID uint `json:"id"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/lookup?email="+url.QueryEscape(email), nil, &out)
	return out.ID, err
}

// User returns the public profile of id.
func (c *Client) User(ctx context.Context, id uint) (*models.PublicProfile, error) {
	var p models.PublicProfile
	return &p, c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, &p)
}

// Showcase returns the landing-screen profiles. No sign-in needed.
func (c *Client) Showcase(ctx context.Context) ([]models.PublicProfile, error) {
	var out []models.PublicProfile
	return out, c.do(ctx, http.MethodGet, "/api/profiles/showcase", nil, &out)
}

// Candidates returns the next discovery batch.
func (c *Client) Candidates(ctx context.Context) ([]models.CandidateProfile, error) {
	var out []models.CandidateProfile
	return out, c.do(ctx, http.MethodGet, "/api/candidates", nil, &out)
}

// Swipe records a decision about target and reports whether it matched.
func (c *Client) Swipe(ctx context.Context, target uint, liked bool) (bool, error) {
	var out models.SwipeResult
	body := map[string]any{"targetId": target, "liked": liked}
	err := c.do(ctx, http.MethodPost, "/api/swipes", body, &out)
	return out.IsMatch, err
}

// Matches lists the signed-in user's matches.
func (c *Client) Matches(ctx context.Context) ([]models.MatchSummary, error) {
	var out []models.MatchSummary
	return out, c.do(ctx, http.MethodGet, "/api/matches", nil, &out)
}

// Messages returns the history with other, newest first.
func (c *Client) Messages(ctx context.Context, other uint) ([]models.Message, error) {
	var out []models.Message
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/api/matches/%d/messages", other), nil, &out)
}

// Send posts a message to other over HTTP.
func (c *Client) Send(ctx context.Context, other uint, content string) (*models.Message, error) {
	var m models.Message
	body := map[string]string{"content": content}
	return &m, c.do(ctx, http.MethodPost, fmt.Sprintf("/api/matches/%d/messages", other), body, &m)
}

// Ticket issues a single-use realtime ticket.
func (c *Client) Ticket(ctx context.Context) (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ws/ticket", nil, &out)
	return out.Ticket, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
