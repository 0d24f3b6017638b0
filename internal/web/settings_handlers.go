package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/grammable/internal/access"
	"github.com/evcraddock/grammable/internal/auth"
)

type settingsData struct {
	layout
	Keys     []auth.APIKey
	Passkeys []auth.StoredCredential
	NewKey   string
}

// handleSettings lists the user's API keys and passkeys.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		s.fail(w, r, user, err)
		return
	}
	s.renderSettings(w, r, user, "")
}

func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request, user *auth.User, newKey string) {
	keys, err := s.apiKeys.ListByUser(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	passkeys, err := s.passkeys.ListByUser(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	s.render(w, http.StatusOK, "settings.html", settingsData{
		layout:   s.layout(w, r, user),
		Keys:     keys,
		Passkeys: passkeys,
		NewKey:   newKey,
	})
}

// handleSettingsCreateKey issues an API key and shows it once.
func (s *Server) handleSettingsCreateKey(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		s.fail(w, r, user, err)
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		name = "API Key"
	}

	raw, _, err := s.apiKeys.Create(r.Context(), user.ID, name)
	if err != nil {
		s.fail(w, r, user, err)
		return
	}

	s.renderSettings(w, r, user, raw)
}

// handleSettingsDeleteKey revokes one of the user's API keys.
func (s *Server) handleSettingsDeleteKey(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		s.fail(w, r, user, err)
		return
	}

	id, ok := idParam(r)
	if !ok {
		s.renderError(w, r, user, http.StatusNotFound)
		return
	}

	if err := s.apiKeys.Delete(r.Context(), id, user.ID); err != nil {
		s.fail(w, r, user, err)
		return
	}

	redirectWithFlash(w, r, "/settings", "API key revoked.")
}

// handleSettingsDeletePasskey removes one of the user's passkeys.
func (s *Server) handleSettingsDeletePasskey(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		s.fail(w, r, user, err)
		return
	}

	if err := s.passkeys.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		s.fail(w, r, user, err)
		return
	}

	redirectWithFlash(w, r, "/settings", "Passkey removed.")
}

// apiKeyResponse is the JSON form of a key; the raw key is never included.
type apiKeyResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	KeyPrefix  string  `json:"key_prefix"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

type apiKeyCreateResponse struct {
	Key    string         `json:"key"` // raw key, shown once
	APIKey apiKeyResponse `json:"api_key"`
}

const timeLayout = "2006-01-02T15:04:05Z"

func toAPIKeyResponse(k auth.APIKey) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		CreatedAt: k.CreatedAt.UTC().Format(timeLayout),
	}
	if k.LastUsedAt != nil {
		s := k.LastUsedAt.UTC().Format(timeLayout)
		resp.LastUsedAt = &s
	}
	return resp
}

// apiListKeys returns the caller's API keys.
func (s *Server) apiListKeys(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		apiFail(w, err)
		return
	}

	keys, err := s.apiKeys.ListByUser(r.Context(), user.ID)
	if err != nil {
		apiFail(w, err)
		return
	}

	resp := make([]apiKeyResponse, len(keys))
	for i, k := range keys {
		resp[i] = toAPIKeyResponse(k)
	}
	apiJSON(w, resp, http.StatusOK)
}

// apiCreateKey issues a key for the caller.
func (s *Server) apiCreateKey(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		apiFail(w, err)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = "API Key"
	}

	raw, key, err := s.apiKeys.Create(r.Context(), user.ID, name)
	if err != nil {
		apiFail(w, err)
		return
	}

	apiJSON(w, apiKeyCreateResponse{Key: raw, APIKey: toAPIKeyResponse(*key)}, http.StatusCreated)
}

// apiDeleteKey revokes one of the caller's keys.
func (s *Server) apiDeleteKey(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if err := access.RequireIdentity(user); err != nil {
		apiFail(w, err)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apiError(w, "invalid key ID", http.StatusBadRequest)
		return
	}

	if err := s.apiKeys.Delete(r.Context(), id, user.ID); err != nil {
		apiFail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
