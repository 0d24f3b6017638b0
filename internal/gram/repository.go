package gram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository is the SQLite Store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a gram repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const selectColumns = `id, user_id, author, message, created_at, updated_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGram(s scanner) (*Gram, error) {
	var g Gram
	if err := s.Scan(&g.ID, &g.UserID, &g.Author, &g.Message, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns grams newest first.
func (r *Repository) List(ctx context.Context, opts ListOptions) (grams []*Gram, err error) {
	query := fmt.Sprintf("SELECT %s FROM grams", selectColumns)
	var args []interface{}

	if opts.UserID != 0 {
		query += " WHERE user_id = ?"
		args = append(args, opts.UserID)
	}

	query += " ORDER BY id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing grams: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		g, err := scanGram(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning gram: %w", err)
		}
		grams = append(grams, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grams: %w", err)
	}

	return grams, nil
}

// Find looks a gram up by id.
func (r *Repository) Find(ctx context.Context, id int64) (Lookup, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM grams WHERE id = ?", selectColumns), id)
	return lookupRow(row, fmt.Sprintf("querying gram %d", id))
}

// Last returns the most recently created gram.
func (r *Repository) Last(ctx context.Context) (Lookup, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM grams ORDER BY id DESC LIMIT 1", selectColumns))
	return lookupRow(row, "querying last gram")
}

func lookupRow(row *sql.Row, what string) (Lookup, error) {
	g, err := scanGram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound(), nil
	}
	if err != nil {
		return NotFound(), fmt.Errorf("%s: %w", what, err)
	}
	return Found(g), nil
}

// Count returns the number of grams.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM grams").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting grams: %w", err)
	}
	return n, nil
}

// Create validates and inserts a gram owned by userID.
func (r *Repository) Create(ctx context.Context, userID int64, author, message string) (*Gram, error) {
	if err := Validate(message); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO grams (user_id, author, message) VALUES (?, ?, ?)",
		userID, author, NormalizeMessage(message),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting gram: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.findExisting(ctx, id)
}

// UpdateMessage validates and replaces a gram's message.
// The stored gram is left untouched when validation fails.
func (r *Repository) UpdateMessage(ctx context.Context, id int64, message string) (*Gram, error) {
	if err := Validate(message); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE grams SET message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		NormalizeMessage(message), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating gram: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return r.findExisting(ctx, id)
}

// Delete removes a gram and, by cascade, its comments.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM grams WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting gram: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) findExisting(ctx context.Context, id int64) (*Gram, error) {
	lookup, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	g, ok := lookup.Gram()
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}
