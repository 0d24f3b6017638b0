package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	apiKeyBytes  = 32 // 256-bit keys
	apiKeyPrefix = "gr_"
)

// ErrAPIKeyNotFound is returned when deleting a key the user doesn't own.
var ErrAPIKeyNotFound = errors.New("key not found")

// APIKey is the stored representation of an API key (no raw key).
type APIKey struct {
	ID         int64
	UserID     int64
	Name       string
	KeyPrefix  string // first 8 chars for identification
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// APIKeyStore manages API keys in SQLite.
type APIKeyStore struct {
	db *sql.DB
}

// NewAPIKeyStore creates an API key store.
func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// HasKeyPrefix reports whether s looks like a key issued by this store.
func HasKeyPrefix(s string) bool {
	return strings.HasPrefix(s, apiKeyPrefix)
}

// Create generates a new API key for the user.
// Returns the raw key (shown once to user) and the stored record.
func (s *APIKeyStore) Create(ctx context.Context, userID int64, name string) (string, *APIKey, error) {
	raw, err := randomHex(apiKeyBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}
	raw = apiKeyPrefix + raw

	prefix := raw[:8]

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (user_id, name, key_prefix, key_hash) VALUES (?, ?, ?, ?)",
		userID, name, prefix, hashAPIKey(raw),
	)
	if err != nil {
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("getting key id: %w", err)
	}

	key := &APIKey{
		ID:        id,
		UserID:    userID,
		Name:      name,
		KeyPrefix: prefix,
		CreatedAt: time.Now().UTC(),
	}

	return raw, key, nil
}

// ListByUser returns the user's API keys (without the raw key).
func (s *APIKeyStore) ListByUser(ctx context.Context, userID int64) (keys []APIKey, err error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, key_prefix, created_at, last_used_at FROM api_keys WHERE user_id = ? ORDER BY id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyPrefix, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// Delete revokes one of the user's API keys.
func (s *APIKeyStore) Delete(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// Validate checks a raw API key against stored hashes and returns the
// owning user's ID. ok is false for unknown keys. Updates last_used_at.
func (s *APIKeyStore) Validate(ctx context.Context, rawKey string) (userID int64, ok bool, err error) {
	hash := hashAPIKey(rawKey)

	err = s.db.QueryRowContext(ctx, "SELECT user_id FROM api_keys WHERE key_hash = ?", hash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("validating key: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ?",
		time.Now(), hash,
	); err != nil {
		return 0, false, fmt.Errorf("touching key: %w", err)
	}

	return userID, true, nil
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
