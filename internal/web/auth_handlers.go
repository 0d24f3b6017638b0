package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/grammable/internal/auth"
)

type authData struct {
	layout
	Email string
	Name  string
	Error string
}

// handleSignInPage renders the sign-in form.
func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if user != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, http.StatusOK, "sign_in.html", authData{layout: s.layout(w, r, nil)})
}

// handleSignIn checks an email/password pair and starts a session.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))

	user, err := s.identifier.SignIn(r, email, r.PostFormValue("password"))
	if errors.Is(err, auth.ErrRateLimited) {
		slog.Warn("login rate limited", "email", email)
		s.render(w, http.StatusTooManyRequests, "sign_in.html", authData{
			layout: s.layout(w, r, nil),
			Email:  email,
			Error:  "Too many failed attempts. Try again in a minute.",
		})
		return
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Info("login failed", "email", email)
		s.render(w, http.StatusUnprocessableEntity, "sign_in.html", authData{
			layout: s.layout(w, r, nil),
			Email:  email,
			Error:  "Invalid email or password.",
		})
		return
	}
	if err != nil {
		s.fail(w, r, nil, err)
		return
	}

	if err := s.sessions.Create(r.Context(), w, user.ID); err != nil {
		s.fail(w, r, nil, err)
		return
	}

	slog.Info("login success", "user_id", user.ID, "method", "password")
	redirectWithFlash(w, r, "/", "Signed in successfully.")
}

// handleSignUpPage renders the registration form.
func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if user != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, http.StatusOK, "sign_up.html", authData{layout: s.layout(w, r, nil)})
}

// handleSignUp registers an account and signs it in.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	name := strings.TrimSpace(r.PostFormValue("name"))
	password := r.PostFormValue("password")

	rerender := func(msg string) {
		s.render(w, http.StatusUnprocessableEntity, "sign_up.html", authData{
			layout: s.layout(w, r, nil),
			Email:  email,
			Name:   name,
			Error:  msg,
		})
	}

	if password != r.PostFormValue("password_confirmation") {
		rerender("Password confirmation doesn't match Password")
		return
	}

	user, err := s.users.Register(r.Context(), email, password, name)
	switch {
	case errors.Is(err, auth.ErrInvalidEmail):
		rerender("Email is invalid")
		return
	case errors.Is(err, auth.ErrPasswordTooShort):
		rerender("Password is too short (minimum is 6 characters)")
		return
	case errors.Is(err, auth.ErrEmailTaken):
		rerender("Email has already been taken")
		return
	case err != nil:
		s.fail(w, r, nil, err)
		return
	}

	if err := s.sessions.Create(r.Context(), w, user.ID); err != nil {
		s.fail(w, r, nil, err)
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	redirectWithFlash(w, r, "/", "Welcome! You have signed up successfully.")
}

// handleSignOut destroys the session.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(w, r); err != nil {
		slog.Error("destroying session", "err", err)
	}
	redirectWithFlash(w, r, "/", "Signed out successfully.")
}
