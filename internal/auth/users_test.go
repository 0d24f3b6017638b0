package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	s := testUserStore(t, openTestDB(t))
	ctx := context.Background()

	u, err := s.Register(ctx, "  Alice@Example.com ", "secret123", "Alice")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", u.Name)
	assert.NotEmpty(t, u.WebAuthnHandle)

	got, err := s.Authenticate(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestAuthenticateRejects(t *testing.T) {
	s := testUserStore(t, openTestDB(t))
	registerUser(t, s, "alice@example.com")

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "alice@example.com", "nope-nope"},
		{"unknown email", "bob@example.com", "secret123"},
		{"empty password", "alice@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	s := testUserStore(t, openTestDB(t))
	registerUser(t, s, "taken@example.com")

	tests := []struct {
		name, email, password string
		want                  error
	}{
		{"empty email", "", "secret123", ErrInvalidEmail},
		{"malformed email", "not-an-email", "secret123", ErrInvalidEmail},
		{"display-name form", "Bob <bob@example.com>", "secret123", ErrInvalidEmail},
		{"short password", "bob@example.com", "12345", ErrPasswordTooShort},
		{"duplicate", "TAKEN@example.com", "secret123", ErrEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.email, tt.password, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWebAuthnHandlesAreUnique(t *testing.T) {
	s := testUserStore(t, openTestDB(t))
	a := registerUser(t, s, "a@example.com")
	b := registerUser(t, s, "b@example.com")

	assert.NotEqual(t, a.WebAuthnHandle, b.WebAuthnHandle)

	got, err := s.GetByWebAuthnHandle(context.Background(), b.WebAuthnHandle)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestGetByEmail(t *testing.T) {
	s := testUserStore(t, openTestDB(t))
	u := registerUser(t, s, "alice@example.com")

	got, err := s.GetByEmail(context.Background(), "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	s := testUserStore(t, openTestDB(t))
	registerUser(t, s, "zed@example.com")
	registerUser(t, s, "amy@example.com")

	users, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy@example.com", users[0].Email)
	assert.Equal(t, "zed@example.com", users[1].Email)
}

func TestDeleteUser(t *testing.T) {
	s := testUserStore(t, openTestDB(t))
	ctx := context.Background()
	u := registerUser(t, s, "bye@example.com")

	require.NoError(t, s.Delete(ctx, u.ID))

	_, err := s.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, s.Delete(ctx, u.ID), ErrUserNotFound)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Bob", (&User{Email: "bob@example.com", Name: "Bob"}).DisplayName())
	assert.Equal(t, "bob@example.com", (&User{Email: "bob@example.com"}).DisplayName())
}
