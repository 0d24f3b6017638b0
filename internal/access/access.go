// Package access decides whether an identity may act on a gram and maps
// the resulting errors to HTTP status codes.
//
// Checks always run in the same order: authentication, then lookup, then
// ownership. Validation is left to the store and comes last.
package access

import (
	"errors"
	"net/http"

	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
)

var (
	// ErrAuthenticationRequired means the request has no identity.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrForbidden means the identity does not own the record.
	ErrForbidden = errors.New("forbidden")
)

// RequireIdentity fails for anonymous requests.
func RequireIdentity(user *auth.User) error {
	if user == nil {
		return ErrAuthenticationRequired
	}
	return nil
}

// Authorize returns the gram if user may modify it. A missing gram is
// reported as gram.ErrNotFound even when the user owns nothing.
func Authorize(user *auth.User, lookup gram.Lookup) (*gram.Gram, error) {
	if err := RequireIdentity(user); err != nil {
		return nil, err
	}

	g, ok := lookup.Gram()
	if !ok {
		return nil, gram.ErrNotFound
	}

	if !g.OwnedBy(user.ID) {
		return nil, ErrForbidden
	}

	return g, nil
}

// StatusFor maps an error from a guard, store or identifier to a status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthenticationRequired), errors.Is(err, auth.ErrInvalidAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, gram.ErrNotFound),
		errors.Is(err, comment.ErrNotFound),
		errors.Is(err, auth.ErrAPIKeyNotFound),
		errors.Is(err, auth.ErrPasskeyNotFound):
		return http.StatusNotFound
	case gram.IsValidationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
