package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/grammable/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, d.Close())
	})
	return d
}

// testUserStore hashes with the minimum bcrypt cost to keep tests fast.
func testUserStore(t *testing.T, d *sql.DB) *UserStore {
	t.Helper()
	s := NewUserStore(d)
	s.cost = bcrypt.MinCost
	return s
}

func registerUser(t *testing.T, s *UserStore, email string) *User {
	t.Helper()
	u, err := s.Register(context.Background(), email, "secret123", "")
	require.NoError(t, err)
	return u
}

// sessionCookie extracts the session cookie set on a response.
func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("expected cookie named %q", cookieName)
	return nil
}
