package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

var (
	ErrInvalidEmail       = errors.New("email is invalid")
	ErrPasswordTooShort   = fmt.Errorf("password is too short (minimum is %d characters)", MinPasswordLength)
	ErrEmailTaken         = errors.New("email has already been taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// User is a registered account.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	WebAuthnHandle string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// DisplayName returns the name if set, otherwise the email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// UserStore manages user accounts in SQLite.
type UserStore struct {
	db   *sql.DB
	cost int
}

// NewUserStore creates a user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, cost: bcrypt.DefaultCost}
}

const userColumns = "id, email, name, webauthn_handle, created_at"

// Register creates an account with a bcrypt-hashed password.
func (s *UserStore) Register(ctx context.Context, email, password, name string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, webauthn_handle, name) VALUES (?, ?, ?, ?)",
		email, string(hash), uuid.NewString(), strings.TrimSpace(name),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("adding user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user ID: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Authenticate checks an email/password pair.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var hash string
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+", password_hash FROM users WHERE email = ?", email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.WebAuthnHandle, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &u, nil
}

// GetByID returns a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByEmail returns a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByWebAuthnHandle returns the user a passkey user handle belongs to.
func (s *UserStore) GetByWebAuthnHandle(ctx context.Context, handle string) (*User, error) {
	return s.getOne(ctx, "webauthn_handle = ?", handle)
}

func (s *UserStore) getOne(ctx context.Context, where string, arg interface{}) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &u.WebAuthnHandle, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// List returns all users ordered by email.
func (s *UserStore) List(ctx context.Context) (users []*User, err error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.WebAuthnHandle, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// Delete removes a user by ID. Their sessions, keys, grams and comments cascade.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
