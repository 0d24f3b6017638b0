package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/grammable/internal/access"
	"github.com/evcraddock/grammable/internal/auth"
)

const signInRequired = "You need to sign in or sign up before continuing."

// layout carries what every page template needs.
type layout struct {
	User  *auth.User
	Flash string
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request, user *auth.User) layout {
	return layout{User: user, Flash: popFlash(w, r)}
}

type errorData struct {
	layout
	Status int
	Title  string
}

// fail maps an error to the HTML outcome: a redirect to sign-in for
// anonymous requests, otherwise an error page with the mapped status.
// Validation errors are handled by the caller, which re-renders its form.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, user *auth.User, err error) {
	status := access.StatusFor(err)
	if status == http.StatusUnauthorized {
		redirectWithFlash(w, r, signInPath, signInRequired)
		return
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.renderError(w, r, user, status)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, user *auth.User, status int) {
	s.render(w, status, "error.html", errorData{
		layout: s.layout(w, r, user),
		Status: status,
		Title:  http.StatusText(status),
	})
}

// idParam parses the {id} route parameter. ok is false for non-numeric ids.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "err", err)
	}
}
