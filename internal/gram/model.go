// Package gram provides the gram domain model and data access.
package gram

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the longest message a gram may carry, in runes.
const MaxMessageLength = 2000

// ErrNotFound is returned when no gram exists for an id.
var ErrNotFound = errors.New("gram not found")

// Gram is a short message posted by a user.
type Gram struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether the gram belongs to the given user.
func (g *Gram) OwnedBy(userID int64) bool {
	return g.UserID == userID
}

// ValidationError describes why a field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// NormalizeMessage trims surrounding whitespace.
func NormalizeMessage(message string) string {
	return strings.TrimSpace(message)
}

// Validate checks a message before it is persisted.
func Validate(message string) error {
	message = NormalizeMessage(message)
	if message == "" {
		return &ValidationError{Field: "message", Message: "can't be blank"}
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return &ValidationError{
			Field:   "message",
			Message: fmt.Sprintf("is too long (maximum is %d characters)", MaxMessageLength),
		}
	}
	return nil
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
