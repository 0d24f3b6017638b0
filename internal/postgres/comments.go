package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
)

// CommentStore is the PostgreSQL comment.Store.
type CommentStore struct {
	db *gorm.DB
}

var _ comment.Store = (*CommentStore)(nil)

func (r *commentRow) toComment() *comment.Comment {
	return &comment.Comment{
		ID:        r.ID,
		GramID:    r.GramID,
		UserID:    r.UserID,
		Author:    r.Author,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
}

// Add creates a comment. Returns gram.ErrNotFound if the gram doesn't exist.
func (s *CommentStore) Add(ctx context.Context, gramID, userID int64, author, body string) (*comment.Comment, error) {
	if err := comment.Validate(body); err != nil {
		return nil, err
	}

	row := commentRow{
		GramID: gramID,
		UserID: userID,
		Author: author,
		Body:   strings.TrimSpace(body),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&gramRow{}).Where("id = ?", gramID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gram.ErrNotFound
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, gram.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}

	return row.toComment(), nil
}

// ListByGramID returns a gram's comments, oldest first.
func (s *CommentStore) ListByGramID(ctx context.Context, gramID int64) ([]*comment.Comment, error) {
	byGram, err := s.ListByGramIDs(ctx, []int64{gramID})
	if err != nil {
		return nil, err
	}
	return byGram[gramID], nil
}

// ListByGramIDs loads the comments of several grams in one query.
func (s *CommentStore) ListByGramIDs(ctx context.Context, gramIDs []int64) (map[int64][]*comment.Comment, error) {
	result := make(map[int64][]*comment.Comment, len(gramIDs))
	if len(gramIDs) == 0 {
		return result, nil
	}

	var rows []commentRow
	if err := s.db.WithContext(ctx).
		Where("gram_id IN ?", gramIDs).
		Order("gram_id, id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	for i := range rows {
		result[rows[i].GramID] = append(result[rows[i].GramID], rows[i].toComment())
	}
	return result, nil
}

// Delete removes a comment by id.
func (s *CommentStore) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&commentRow{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return comment.ErrNotFound
	}
	return nil
}
