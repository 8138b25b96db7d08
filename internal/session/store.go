// Package session persists the login session (bearer token and user) on
// disk so that subsequent commands can call the API.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"spendwatch/internal/api"
)

var (
	ErrNoSession = errors.New("not logged in")
	ErrExpired   = errors.New("session expired")
)

type record struct {
	Session api.Session `json:"session"`
	SavedAt time.Time   `json:"savedAt"`
}

// Store keeps a single session in a JSON file. It implements
// api.TokenSource.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// DefaultPath returns the per-user session file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "spendwatch", "session.json")
}

func (s *Store) Path() string {
	return s.path
}

// Save writes the session, replacing any previous one.
func (s *Store) Save(sess api.Session) error {
	if sess.Token == "" {
		return api.ErrNoToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(record{Session: sess, SavedAt: s.now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load returns the stored session. Expired sessions yield ErrExpired.
func (s *Store) Load() (api.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return api.Session{}, ErrNoSession
	}
	if err != nil {
		return api.Session{}, fmt.Errorf("read session: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return api.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if rec.Session.Token == "" {
		return api.Session{}, ErrNoSession
	}

	claims := inspect(rec.Session.Token)
	if !claims.expiresAt.IsZero() && !s.now().Before(claims.expiresAt) {
		return api.Session{}, ErrExpired
	}
	if rec.Session.User.ID == "" {
		rec.Session.User.ID = claims.userID
	}
	return rec.Session, nil
}

// Clear removes the stored session. Clearing an absent session is not an
// error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Token implements api.TokenSource.
func (s *Store) Token() (string, error) {
	sess, err := s.Load()
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// UserID returns the logged-in user's ID.
func (s *Store) UserID() (string, error) {
	sess, err := s.Load()
	if err != nil {
		return "", err
	}
	if sess.User.ID == "" {
		return "", ErrNoSession
	}
	return sess.User.ID, nil
}

type tokenClaims struct {
	userID    string
	expiresAt time.Time
}

// inspect reads the claims of a JWT without verifying its signature; the
// server remains the authority. Opaque tokens yield empty claims.
func inspect(token string) tokenClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return tokenClaims{}
	}
	var tc tokenClaims
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.expiresAt = exp.Time
	}
	for _, key := range []string{"id", "userId", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			tc.userID = v
			break
		}
	}
	return tc
}
