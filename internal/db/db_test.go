package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "grammable.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "grammable.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "grammable.db")
				d, err := Open(path)
				require.NoError(t, err)
				require.NoError(t, d.Close())
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, d.Close())
			}()

			_, err = os.Stat(path)
			assert.NoError(t, err, "database file was not created")
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	require.NoError(t, d.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	d := openTestDB(t)
	d.SetMaxOpenConns(4)

	// Hold several connections at once so the pool has to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		c, err := d.Conn(t.Context())
		require.NoError(t, err)
		conns = append(conns, c)
	}
	for _, c := range conns {
		var fk int
		require.NoError(t, c.QueryRowContext(t.Context(), "PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk)
		require.NoError(t, c.Close())
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		table string
		cols  []string
	}{
		{"users", []string{"id", "email", "password_hash", "webauthn_handle", "created_at", "name"}},
		{"sessions", []string{"id", "user_id", "expires_at", "created_at"}},
		{"grams", []string{"id", "user_id", "author", "message", "created_at", "updated_at"}},
		{"comments", []string{"id", "gram_id", "user_id", "body", "created_at", "author"}},
		{"passkey_credentials", []string{"id", "user_id", "name", "credential_json", "created_at"}},
		{"api_keys", []string{"id", "user_id", "name", "key_prefix", "key_hash", "created_at", "last_used_at"}},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.cols, tableColumns(t, d, tt.table))
		})
	}
}

func TestEmptyMessageConstraint(t *testing.T) {
	d := openTestDB(t)
	userID := insertUser(t, d, "a@example.com")

	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{"text is valid", "Hello!", false},
		{"empty is invalid", "", true},
		{"blank is invalid", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Exec(`INSERT INTO grams (user_id, message) VALUES (?, ?)`, userID, tt.message)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCascadeDelete(t *testing.T) {
	d := openTestDB(t)
	userID := insertUser(t, d, "cascade@example.com")

	res, err := d.Exec(`INSERT INTO grams (user_id, message) VALUES (?, ?)`, userID, "cascade")
	require.NoError(t, err)
	gramID, err := res.LastInsertId()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = d.Exec(
			`INSERT INTO comments (gram_id, user_id, body) VALUES (?, ?, ?)`,
			gramID, userID, fmt.Sprintf("comment %d", i),
		)
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM comments WHERE gram_id = ?`, gramID).Scan(&count))
	require.Equal(t, 3, count)

	_, err = d.Exec(`DELETE FROM grams WHERE id = ?`, gramID)
	require.NoError(t, err)

	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM comments WHERE gram_id = ?`, gramID).Scan(&count))
	assert.Zero(t, count, "comments should cascade with their gram")
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grammable.db")

	d1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d1.Close())

	d2, err := Open(path)
	require.NoError(t, err, "second open should not re-run failing migrations")
	require.NoError(t, d2.Close())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(PathEnv, "")
	p, err := DefaultPath()
	require.NoError(t, err)

	assert.Equal(t, "grammable.db", filepath.Base(p))
	assert.Equal(t, ".grammable", filepath.Base(filepath.Dir(p)))
}

func TestDefaultPathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "/srv/grammable/data.db")

	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/srv/grammable/data.db", p)
}

func TestOpenUnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := Open(filepath.Join(blocker, "grammable.db"))
	assert.Error(t, err)
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "grammable.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, d.Close())
	})
	return d
}

func insertUser(t *testing.T, d *sql.DB, email string) int64 {
	t.Helper()
	res, err := d.Exec(
		`INSERT INTO users (email, password_hash, webauthn_handle) VALUES (?, ?, ?)`,
		email, "x", "handle-"+email,
	)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, rows.Close())
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		require.NoError(t, rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}
