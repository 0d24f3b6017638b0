package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/grammable/internal/access"
	"github.com/evcraddock/grammable/internal/auth"
)

// identityHandler is a handler that receives the caller's identity
// explicitly. user is nil for anonymous requests.
type identityHandler func(w http.ResponseWriter, r *http.Request, user *auth.User)

// withIdentity resolves the session user for HTML routes.
func (s *Server) withIdentity(h identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.identifier.FromSession(r)
		if err != nil {
			slog.Error("resolving session", "err", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		h(w, r, user)
	}
}

// withAPIIdentity resolves a bearer API key, falling back to the session
// cookie when no Authorization header is sent.
func (s *Server) withAPIIdentity(h identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.identifier.FromAPIKey(r)
		if err == nil && user == nil {
			user, err = s.identifier.FromSession(r)
		}
		if err != nil {
			status := access.StatusFor(err)
			if status == http.StatusInternalServerError {
				slog.Error("resolving api identity", "err", err)
			}
			apiError(w, err.Error(), status)
			return
		}
		h(w, r, user)
	}
}

// methodOverride lets HTML forms reach PATCH, PUT and DELETE routes through
// a hidden _method field on a POST.
func methodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && isFormPost(r) {
			switch m := strings.ToUpper(r.PostFormValue("_method")); m {
			case http.MethodPatch, http.MethodPut, http.MethodDelete:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
