package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"spendwatch/internal/core"
)

// Credentials identify an account at login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the payload for creating an account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the outcome of a successful login.
type Session struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

type wireUser struct {
	MongoID      string     `json:"_id"`
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	MaxThreshold core.Money `json:"maxThreshold"`
	AlertEnabled bool       `json:"alertEnabled"`
}

func (w wireUser) user() core.User {
	return core.User{
		ID:           firstNonEmpty(w.ID, w.MongoID),
		Name:         w.Name,
		Email:        w.Email,
		MaxThreshold: w.MaxThreshold,
		AlertEnabled: w.AlertEnabled,
	}
}

type settingsBody struct {
	MaxThreshold *core.Money `json:"maxThreshold,omitempty"`
	AlertEnabled *bool       `json:"alertEnabled,omitempty"`
}

// Register creates an account. The server answers 201 on success.
func (c *Client) Register(ctx context.Context, r Registration) error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return fmt.Errorf("register: name, email and password are required")
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: r}, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Login exchanges credentials for a bearer token and the user record.
func (c *Client) Login(ctx context.Context, cred Credentials) (Session, error) {
	var resp struct {
		Token string   `json:"token"`
		User  wireUser `json:"user"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: cred}, &resp); err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return Session{}, fmt.Errorf("login: %w", ErrNoToken)
	}
	return Session{Token: resp.Token, User: resp.User.user()}, nil
}

// GetUser fetches the profile and alert settings of a user.
func (c *Client) GetUser(ctx context.Context, id string) (core.User, error) {
	if strings.TrimSpace(id) == "" {
		return core.User{}, fmt.Errorf("get user: %w", ErrNotFound)
	}
	var w wireUser
	path := "/auth/user/" + url.PathEscape(id)
	if err := c.do(ctx, request{method: http.MethodGet, path: path, auth: true}, &w); err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u := w.user()
	u.ID = id
	return u, nil
}

// UpdateSettings changes the user's threshold and/or alert toggle.
func (c *Client) UpdateSettings(ctx context.Context, id string, s core.Settings) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("update settings: %w", ErrNotFound)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	body := settingsBody{MaxThreshold: s.MaxThreshold, AlertEnabled: s.AlertEnabled}
	path := "/auth/user/" + url.PathEscape(id)
	if err := c.do(ctx, request{method: http.MethodPut, path: path, body: body, auth: true}, nil); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
