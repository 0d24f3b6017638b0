package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/evcraddock/grammable/internal/access"
	"github.com/evcraddock/grammable/internal/auth"
)

const (
	ceremonyCookie = "grammable_ceremony"
	ceremonyTTL    = 5 * time.Minute
)

// ceremony is an in-flight WebAuthn exchange.
type ceremony struct {
	data    *webauthn.SessionData
	userID  int64 // 0 for login
	expires time.Time
}

// passkeyHandlers holds WebAuthn-related HTTP handlers.
type passkeyHandlers struct {
	wan      *webauthn.WebAuthn
	passkeys *auth.PasskeyStore
	sessions *auth.SessionStore
	users    *auth.UserStore

	// Ceremonies are keyed by a random id kept in a short-lived cookie, so
	// concurrent logins from different browsers don't collide.
	mu         sync.Mutex
	ceremonies map[string]ceremony
	now        func() time.Time
}

func newPasskeyHandlers(cfg auth.Config, passkeys *auth.PasskeyStore, sessions *auth.SessionStore, users *auth.UserStore) (*passkeyHandlers, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	wan, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Grammable",
		RPID:          parsed.Hostname(),
		RPOrigins:     []string{cfg.BaseURL},
	})
	if err != nil {
		return nil, err
	}

	return &passkeyHandlers{
		wan:        wan,
		passkeys:   passkeys,
		sessions:   sessions,
		users:      users,
		ceremonies: make(map[string]ceremony),
		now:        time.Now,
	}, nil
}

// start stores a ceremony and hands its id to the browser.
func (h *passkeyHandlers) start(w http.ResponseWriter, data *webauthn.SessionData, userID int64) error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	id := hex.EncodeToString(b)
	now := h.now()

	h.mu.Lock()
	for k, c := range h.ceremonies {
		if now.After(c.expires) {
			delete(h.ceremonies, k)
		}
	}
	h.ceremonies[id] = ceremony{data: data, userID: userID, expires: now.Add(ceremonyTTL)}
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     ceremonyCookie,
		Value:    id,
		Path:     "/passkeys/",
		MaxAge:   int(ceremonyTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// finish removes and returns the request's ceremony.
func (h *passkeyHandlers) finish(r *http.Request) (ceremony, bool) {
	c, err := r.Cookie(ceremonyCookie)
	if err != nil {
		return ceremony{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	cer, ok := h.ceremonies[c.Value]
	delete(h.ceremonies, c.Value)
	if !ok || h.now().After(cer.expires) {
		return ceremony{}, false
	}
	return cer, true
}

func (h *passkeyHandlers) passkeyUser(ctx context.Context, user *auth.User) (*auth.PasskeyUser, error) {
	creds, err := h.passkeys.WebAuthnCredentials(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return auth.NewPasskeyUser(user, creds), nil
}

// handleBeginRegistration starts passkey registration for the signed-in user.
func (h *passkeyHandlers) handleBeginRegistration(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		apiFail(w, err)
		return
	}

	pu, err := h.passkeyUser(r.Context(), user)
	if err != nil {
		apiFail(w, err)
		return
	}

	// Exclude existing credentials so the same authenticator isn't registered twice
	creds := pu.WebAuthnCredentials()
	excludeList := make([]protocol.CredentialDescriptor, len(creds))
	for i, c := range creds {
		excludeList[i] = c.Descriptor()
	}

	creation, session, err := h.wan.BeginRegistration(pu, webauthn.WithExclusions(excludeList))
	if err != nil {
		apiFail(w, err)
		return
	}

	if err := h.start(w, session, user.ID); err != nil {
		apiFail(w, err)
		return
	}

	apiJSON(w, creation, http.StatusOK)
}

// handleFinishRegistration verifies the attestation and stores the credential.
func (h *passkeyHandlers) handleFinishRegistration(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		apiFail(w, err)
		return
	}

	cer, ok := h.finish(r)
	if !ok || cer.userID != user.ID {
		apiError(w, "no registration in progress", http.StatusBadRequest)
		return
	}

	pu, err := h.passkeyUser(r.Context(), user)
	if err != nil {
		apiFail(w, err)
		return
	}

	credential, err := h.wan.FinishRegistration(pu, *cer.data, r)
	if err != nil {
		slog.Warn("finishing registration", "user_id", user.ID, "err", err)
		apiError(w, "registration failed", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Passkey"
	}

	if err := h.passkeys.Save(r.Context(), user.ID, name, credential); err != nil {
		apiFail(w, err)
		return
	}

	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleBeginLogin starts a discoverable passkey login.
func (h *passkeyHandlers) handleBeginLogin(w http.ResponseWriter, r *http.Request) {
	assertion, session, err := h.wan.BeginDiscoverableLogin()
	if err != nil {
		apiFail(w, err)
		return
	}

	if err := h.start(w, session, 0); err != nil {
		apiFail(w, err)
		return
	}

	apiJSON(w, assertion, http.StatusOK)
}

// handleFinishLogin verifies the assertion and starts a session.
func (h *passkeyHandlers) handleFinishLogin(w http.ResponseWriter, r *http.Request) {
	cer, ok := h.finish(r)
	if !ok {
		apiError(w, "no login in progress", http.StatusBadRequest)
		return
	}

	var loggedIn *auth.User
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		user, err := h.users.GetByWebAuthnHandle(r.Context(), string(userHandle))
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		if err != nil {
			return nil, err
		}
		pu, err := h.passkeyUser(r.Context(), user)
		if err != nil {
			return nil, err
		}
		loggedIn = user
		return pu, nil
	}

	if _, _, err := h.wan.FinishPasskeyLogin(handler, *cer.data, r); err != nil {
		slog.Warn("finishing passkey login", "err", err)
		apiError(w, "login failed", http.StatusUnauthorized)
		return
	}

	if err := h.sessions.Create(r.Context(), w, loggedIn.ID); err != nil {
		apiFail(w, err)
		return
	}

	slog.Info("login success", "user_id", loggedIn.ID, "method", "passkey")
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
