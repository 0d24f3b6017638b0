package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/evcraddock/grammable/internal/gram"
)

// GramStore is the PostgreSQL gram.Store.
type GramStore struct {
	db *gorm.DB
}

var _ gram.Store = (*GramStore)(nil)

func (r *gramRow) toGram() *gram.Gram {
	return &gram.Gram{
		ID:        r.ID,
		UserID:    r.UserID,
		Author:    r.Author,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// List returns grams newest first.
func (s *GramStore) List(ctx context.Context, opts gram.ListOptions) ([]*gram.Gram, error) {
	query := s.db.WithContext(ctx).Order("id DESC")
	if opts.UserID != 0 {
		query = query.Where("user_id = ?", opts.UserID)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	var rows []gramRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing grams: %w", err)
	}

	grams := make([]*gram.Gram, len(rows))
	for i := range rows {
		grams[i] = rows[i].toGram()
	}
	return grams, nil
}

// Find looks up a gram by id.
func (s *GramStore) Find(ctx context.Context, id int64) (gram.Lookup, error) {
	return s.lookup(s.db.WithContext(ctx).Where("id = ?", id), "finding gram")
}

// Last returns the most recently created gram.
func (s *GramStore) Last(ctx context.Context) (gram.Lookup, error) {
	return s.lookup(s.db.WithContext(ctx).Order("id DESC"), "finding last gram")
}

func (s *GramStore) lookup(query *gorm.DB, what string) (gram.Lookup, error) {
	var row gramRow
	err := query.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gram.NotFound(), nil
	}
	if err != nil {
		return gram.NotFound(), fmt.Errorf("%s: %w", what, err)
	}
	return gram.Found(row.toGram()), nil
}

// Count returns the number of grams.
func (s *GramStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&gramRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting grams: %w", err)
	}
	return int(n), nil
}

// Create validates and inserts a gram.
func (s *GramStore) Create(ctx context.Context, userID int64, author, message string) (*gram.Gram, error) {
	if err := gram.Validate(message); err != nil {
		return nil, err
	}

	row := gramRow{
		UserID:  userID,
		Author:  author,
		Message: gram.NormalizeMessage(message),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("inserting gram: %w", err)
	}

	return row.toGram(), nil
}

// UpdateMessage validates and replaces a gram's message.
func (s *GramStore) UpdateMessage(ctx context.Context, id int64, message string) (*gram.Gram, error) {
	if err := gram.Validate(message); err != nil {
		return nil, err
	}

	var row gramRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gram.ErrNotFound
			}
			return err
		}
		row.Message = gram.NormalizeMessage(message)
		return tx.Save(&row).Error
	})
	if errors.Is(err, gram.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("updating gram: %w", err)
	}

	return row.toGram(), nil
}

// Delete removes a gram and its comments.
func (s *GramStore) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&gramRow{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting gram: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gram.ErrNotFound
	}
	return nil
}
