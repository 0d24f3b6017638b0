// Package comment provides the comment domain model and data access.
package comment

import (
	"context"
	"time"
)

// Comment is a reply left on a gram.
type Comment struct {
	ID        int64     `json:"id"`
	GramID    int64     `json:"gram_id"`
	UserID    int64     `json:"user_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxBodyLength is the longest comment body accepted, in runes.
const MaxBodyLength = 2000

// Store is the persistence contract for comments.
type Store interface {
	Add(ctx context.Context, gramID, userID int64, author, body string) (*Comment, error)
	ListByGramID(ctx context.Context, gramID int64) ([]*Comment, error)
	ListByGramIDs(ctx context.Context, gramIDs []int64) (map[int64][]*Comment, error)
	Delete(ctx context.Context, id int64) error
}
