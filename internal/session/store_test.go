package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwatch/internal/api"
	"spendwatch/internal/core"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	_, err := s.Load()
	assert.True(t, errors.Is(err, ErrNoSession))

	tok := signed(t, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, s.Save(api.Session{Token: tok, User: core.User{Name: "Asha"}}))

	sess, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, tok, sess.Token)
	assert.Equal(t, "u1", sess.User.ID, "user id falls back to the token claim")

	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = s.Token()
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestStoreExpiredToken(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"))
	tok := signed(t, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, s.Save(api.Session{Token: tok, User: core.User{ID: "u1"}}))

	_, err := s.Token()
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestStoreOpaqueToken(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, s.Save(api.Session{Token: "opaque", User: core.User{ID: "u2"}}))

	id, err := s.UserID()
	require.NoError(t, err)
	assert.Equal(t, "u2", id)
}

func TestStoreRejectsEmptyToken(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"))
	assert.True(t, errors.Is(s.Save(api.Session{}), api.ErrNoToken))
}
