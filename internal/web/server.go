// Package web provides the HTTP server and handlers for the grammable UI and
// JSON API.
package web

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
	"github.com/evcraddock/grammable/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const signInPath = "/users/sign_in"

// Options configures a Server.
type Options struct {
	Auth auth.Config
	// Grams and Comments default to the SQLite repositories over the
	// server's database.
	Grams    gram.Store
	Comments comment.Store
}

// Server is the grammable HTTP server.
type Server struct {
	db         *sql.DB
	grams      gram.Store
	comments   comment.Store
	users      *auth.UserStore
	sessions   *auth.SessionStore
	apiKeys    *auth.APIKeyStore
	passkeys   *auth.PasskeyStore
	identifier *auth.Identifier
	passkeyH   *passkeyHandlers
	templates  *template.Template
	router     chi.Router
}

// NewServer creates a server. Users, sessions and keys always live in db.
func NewServer(db *sql.DB, opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatTime": tmplFormatTime,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		db:        db,
		grams:     opts.Grams,
		comments:  opts.Comments,
		users:     auth.NewUserStore(db),
		sessions:  auth.NewSessionStore(db, opts.Auth.SecureCookies(), opts.Auth.SessionTTL),
		apiKeys:   auth.NewAPIKeyStore(db),
		passkeys:  auth.NewPasskeyStore(db),
		templates: tmpl,
	}
	if s.grams == nil {
		s.grams = gram.NewRepository(db)
	}
	if s.comments == nil {
		s.comments = comment.NewRepository(db)
	}
	s.identifier = auth.NewIdentifier(s.sessions, s.users, s.apiKeys)

	s.passkeyH, err = newPasskeyHandlers(opts.Auth, s.passkeys, s.sessions, s.users)
	if err != nil {
		return nil, fmt.Errorf("configuring passkeys: %w", err)
	}

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}

	s.router = s.routes(http.FileServer(http.FS(staticContent)))
	return s, nil
}

// routes builds the complete route table.
func (s *Server) routes(static http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(methodOverride)

	r.Handle("/static/*", http.StripPrefix("/static/", static))
	r.Get("/health", s.handleHealth)

	r.Get("/", s.withIdentity(s.handleIndex))
	r.Get("/grams", s.withIdentity(s.handleIndex))
	r.Get("/grams/new", s.withIdentity(s.handleNew))
	r.Post("/grams", s.withIdentity(s.handleCreate))
	r.Get("/grams/{id}", s.withIdentity(s.handleShow))
	r.Get("/grams/{id}/edit", s.withIdentity(s.handleEdit))
	r.Patch("/grams/{id}", s.withIdentity(s.handleUpdate))
	r.Put("/grams/{id}", s.withIdentity(s.handleUpdate))
	r.Delete("/grams/{id}", s.withIdentity(s.handleDestroy))
	r.Post("/grams/{id}/comments", s.withIdentity(s.handleCommentCreate))

	r.Get("/users/sign_in", s.withIdentity(s.handleSignInPage))
	r.Post("/users/sign_in", s.handleSignIn)
	r.Get("/users/sign_up", s.withIdentity(s.handleSignUpPage))
	r.Post("/users", s.handleSignUp)
	r.Delete("/users/sign_out", s.handleSignOut)

	r.Get("/settings", s.withIdentity(s.handleSettings))
	r.Post("/settings/keys", s.withIdentity(s.handleSettingsCreateKey))
	r.Delete("/settings/keys/{id}", s.withIdentity(s.handleSettingsDeleteKey))
	r.Delete("/settings/passkeys/{id}", s.withIdentity(s.handleSettingsDeletePasskey))

	r.Post("/passkeys/register/begin", s.withAPIIdentity(s.passkeyH.handleBeginRegistration))
	r.Post("/passkeys/register/finish", s.withAPIIdentity(s.passkeyH.handleFinishRegistration))
	r.Post("/passkeys/login/begin", s.passkeyH.handleBeginLogin)
	r.Post("/passkeys/login/finish", s.passkeyH.handleFinishLogin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/grams", s.withAPIIdentity(s.apiListGrams))
		r.Post("/grams", s.withAPIIdentity(s.apiCreateGram))
		r.Get("/grams/{id}", s.withAPIIdentity(s.apiGetGram))
		r.Patch("/grams/{id}", s.withAPIIdentity(s.apiUpdateGram))
		r.Delete("/grams/{id}", s.withAPIIdentity(s.apiDeleteGram))
		r.Get("/grams/{id}/comments", s.withAPIIdentity(s.apiListComments))
		r.Post("/grams/{id}/comments", s.withAPIIdentity(s.apiAddComment))

		r.Get("/keys", s.withAPIIdentity(s.apiListKeys))
		r.Post("/keys", s.withAPIIdentity(s.apiCreateKey))
		r.Delete("/keys/{id}", s.withAPIIdentity(s.apiDeleteKey))
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", "http://localhost"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		slog.Error("health check", "err", err)
		apiJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// render executes a page template. The page is buffered so a template
// error can still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("rendering template", "template", name, "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("writing response", "err", err)
	}
}

func tmplFormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}
