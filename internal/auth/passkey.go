package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
)

// ErrPasskeyNotFound is returned when deleting a credential the user doesn't own.
var ErrPasskeyNotFound = errors.New("credential not found")

// PasskeyUser adapts a User to webauthn.User.
type PasskeyUser struct {
	user        *User
	credentials []webauthn.Credential
}

// NewPasskeyUser creates a PasskeyUser for the given account.
func NewPasskeyUser(user *User, credentials []webauthn.Credential) *PasskeyUser {
	return &PasskeyUser{user: user, credentials: credentials}
}

// WebAuthnID returns the user's random, stable handle.
func (u *PasskeyUser) WebAuthnID() []byte { return []byte(u.user.WebAuthnHandle) }

// WebAuthnName returns the email.
func (u *PasskeyUser) WebAuthnName() string { return u.user.Email }

// WebAuthnDisplayName returns the name, falling back to the email.
func (u *PasskeyUser) WebAuthnDisplayName() string { return u.user.DisplayName() }

// WebAuthnCredentials returns the stored credentials.
func (u *PasskeyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// User returns the wrapped account.
func (u *PasskeyUser) User() *User { return u.user }

// PasskeyStore manages passkey credentials in SQLite.
type PasskeyStore struct {
	db *sql.DB
}

// NewPasskeyStore creates a passkey store.
func NewPasskeyStore(db *sql.DB) *PasskeyStore {
	return &PasskeyStore{db: db}
}

// StoredCredential is a passkey credential with metadata.
type StoredCredential struct {
	ID         string
	UserID     int64
	Name       string
	Credential webauthn.Credential
}

// Save stores a new passkey credential.
func (s *PasskeyStore) Save(ctx context.Context, userID int64, name string, cred *webauthn.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}

	id := fmt.Sprintf("%x", cred.ID)
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO passkey_credentials (id, user_id, name, credential_json) VALUES (?, ?, ?, ?)",
		id, userID, name, string(data),
	); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	return nil
}

// ListByUser returns all credentials registered by the user.
func (s *PasskeyStore) ListByUser(ctx context.Context, userID int64) (result []StoredCredential, err error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, credential_json FROM passkey_credentials WHERE user_id = ? ORDER BY created_at",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var sc StoredCredential
		var data string
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Name, &data); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &sc.Credential); err != nil {
			return nil, fmt.Errorf("unmarshaling credential: %w", err)
		}
		result = append(result, sc)
	}

	return result, rows.Err()
}

// WebAuthnCredentials returns just the webauthn.Credential slice for the user.
func (s *PasskeyStore) WebAuthnCredentials(ctx context.Context, userID int64) ([]webauthn.Credential, error) {
	stored, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	creds := make([]webauthn.Credential, len(stored))
	for i, sc := range stored {
		creds[i] = sc.Credential
	}

	return creds, nil
}

// Delete removes one of the user's credentials.
func (s *PasskeyStore) Delete(ctx context.Context, id string, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM passkey_credentials WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return ErrPasskeyNotFound
	}

	return nil
}
