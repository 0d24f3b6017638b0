package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const cookieName = "grammable_session"

// ErrNoSession is returned when a request carries no valid session.
var ErrNoSession = errors.New("no valid session")

// SessionStore manages sessions in SQLite.
type SessionStore struct {
	db     *sql.DB
	secure bool
	ttl    time.Duration
}

// NewSessionStore creates a session store. A ttl of zero uses DefaultSessionTTL.
func NewSessionStore(db *sql.DB, secure bool, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{db: db, secure: secure, ttl: ttl}
}

// Create starts a session for the user and sets the cookie.
func (s *SessionStore) Create(ctx context.Context, w http.ResponseWriter, userID int64) error {
	id, err := randomHex(32)
	if err != nil {
		return fmt.Errorf("generating session ID: %w", err)
	}

	expiresAt := time.Now().Add(s.ttl)

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		id, userID, expiresAt,
	); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Validate checks the session cookie and returns the user ID if valid.
// Returns ErrNoSession for missing, unknown or expired sessions.
func (s *SessionStore) Validate(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return 0, ErrNoSession
	}

	var userID int64
	var expiresAt time.Time

	err = s.db.QueryRowContext(r.Context(),
		"SELECT user_id, expires_at FROM sessions WHERE id = ?",
		cookie.Value,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("querying session: %w", err)
	}

	if time.Now().After(expiresAt) {
		if _, delErr := s.db.ExecContext(r.Context(), "DELETE FROM sessions WHERE id = ?", cookie.Value); delErr != nil {
			return 0, fmt.Errorf("deleting expired session: %w", delErr)
		}
		return 0, ErrNoSession
	}

	return userID, nil
}

// Destroy removes the session and clears the cookie.
func (s *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil // no session to destroy
	}

	if _, err := s.db.ExecContext(r.Context(), "DELETE FROM sessions WHERE id = ?", cookie.Value); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Cleanup removes expired sessions.
func (s *SessionStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?",
		time.Now(),
	); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
