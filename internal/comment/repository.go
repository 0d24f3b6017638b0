package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-sqlite3"

	"github.com/evcraddock/grammable/internal/gram"
)

// ErrNotFound is returned when deleting a comment that doesn't exist.
var ErrNotFound = errors.New("comment not found")

// Validate checks a comment body before it is persisted.
func Validate(body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return &gram.ValidationError{Field: "body", Message: "can't be blank"}
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return &gram.ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("is too long (maximum is %d characters)", MaxBodyLength),
		}
	}
	return nil
}

// Repository is the SQLite Store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const selectColumns = "id, gram_id, user_id, author, body, created_at"

// Add creates a new comment on a gram.
// Returns gram.ErrNotFound if the gram doesn't exist.
func (r *Repository) Add(ctx context.Context, gramID, userID int64, author, body string) (*Comment, error) {
	if err := Validate(body); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO comments (gram_id, user_id, author, body) VALUES (?, ?, ?, ?)",
		gramID, userID, author, strings.TrimSpace(body),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return nil, gram.ErrNotFound
		}
		return nil, fmt.Errorf("inserting comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	var c Comment
	err = r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM comments WHERE id = ?", selectColumns), id,
	).Scan(&c.ID, &c.GramID, &c.UserID, &c.Author, &c.Body, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading back comment: %w", err)
	}

	return &c, nil
}

// ListByGramID returns all comments for a gram, oldest first.
func (r *Repository) ListByGramID(ctx context.Context, gramID int64) ([]*Comment, error) {
	byGram, err := r.ListByGramIDs(ctx, []int64{gramID})
	if err != nil {
		return nil, err
	}
	return byGram[gramID], nil
}

// ListByGramIDs loads the comments of several grams in one query.
func (r *Repository) ListByGramIDs(ctx context.Context, gramIDs []int64) (result map[int64][]*Comment, err error) {
	result = make(map[int64][]*Comment, len(gramIDs))
	if len(gramIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(gramIDs)), ",")
	args := make([]interface{}, len(gramIDs))
	for i, id := range gramIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM comments WHERE gram_id IN (%s) ORDER BY gram_id, id", selectColumns, placeholders),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.GramID, &c.UserID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		result[c.GramID] = append(result[c.GramID], &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}

	return result, nil
}

// Delete removes a comment by ID.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
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
