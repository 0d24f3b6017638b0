package gram

import "context"

// Lookup is the result of finding a gram by id: either found, or not.
type Lookup struct {
	gram *Gram
}

// Found wraps a gram that exists.
func Found(g *Gram) Lookup {
	return Lookup{gram: g}
}

// NotFound is the lookup for a missing gram.
func NotFound() Lookup {
	return Lookup{}
}

// Found reports whether the lookup hit a gram.
func (l Lookup) Found() bool {
	return l.gram != nil
}

// Gram returns the gram and whether it was found.
func (l Lookup) Gram() (*Gram, bool) {
	return l.gram, l.gram != nil
}

// ListOptions controls List.
type ListOptions struct {
	Limit  int
	Offset int
	UserID int64 // 0 = all users
}

// Store is the persistence contract for grams.
type Store interface {
	List(ctx context.Context, opts ListOptions) ([]*Gram, error)
	Find(ctx context.Context, id int64) (Lookup, error)
	Last(ctx context.Context) (Lookup, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, userID int64, author, message string) (*Gram, error)
	UpdateMessage(ctx context.Context, id int64, message string) (*Gram, error)
	Delete(ctx context.Context, id int64) error
}
