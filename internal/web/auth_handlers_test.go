package web

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInPage(t *testing.T) {
	e := newTestEnv(t)

	w := e.get(signInPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/users/sign_in"`)

	alice := e.signUp("alice@example.com")
	assertRedirect(t, e.get(signInPath, &alice), "/")
}

func TestSignUpAndSignIn(t *testing.T) {
	e := newTestEnv(t)

	w := e.form("POST", "/users", url.Values{
		"email":                 {"new@example.com"},
		"password":              {"secret123"},
		"password_confirmation": {"secret123"},
	}, nil)
	assertRedirect(t, w, "/")
	session := cookieNamed(t, w, "grammable_session")
	assert.NotEmpty(t, session.Value)

	w = e.form("POST", signInPath, url.Values{
		"email":    {"NEW@example.com"},
		"password": {"secret123"},
	}, nil)
	assertRedirect(t, w, "/")

	signedIn := account{cookie: cookieNamed(t, w, "grammable_session")}
	assert.Equal(t, http.StatusOK, e.get("/grams/new", &signedIn).Code)
}

func TestSignUpErrors(t *testing.T) {
	e := newTestEnv(t)
	e.signUp("taken@example.com")

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"mismatch", url.Values{"email": {"a@example.com"}, "password": {"secret123"}, "password_confirmation": {"other123"}}, "doesn&#39;t match"},
		{"bad email", url.Values{"email": {"nope"}, "password": {"secret123"}, "password_confirmation": {"secret123"}}, "Email is invalid"},
		{"short password", url.Values{"email": {"a@example.com"}, "password": {"123"}, "password_confirmation": {"123"}}, "too short"},
		{"taken", url.Values{"email": {"taken@example.com"}, "password": {"secret123"}, "password_confirmation": {"secret123"}}, "already been taken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.form("POST", "/users", tt.form, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestSignInWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.signUp("alice@example.com")

	w := e.form("POST", signInPath, url.Values{"email": {"alice@example.com"}, "password": {"wrong-pass"}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password.")
	assert.Contains(t, w.Body.String(), `value="alice@example.com"`)
}

func TestSignInRateLimited(t *testing.T) {
	e := newTestEnv(t)
	e.signUp("alice@example.com")

	for i := 0; i < 10; i++ {
		w := e.form("POST", signInPath, url.Values{"email": {"alice@example.com"}, "password": {"wrong-pass"}}, nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	}

	w := e.form("POST", signInPath, url.Values{"email": {"alice@example.com"}, "password": {"secret123"}}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many failed attempts.")
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, "grammable_session", c.Name, "no session while limited")
	}
}

func TestSignOut(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp("alice@example.com")

	w := e.form("POST", "/users/sign_out", url.Values{"_method": {"delete"}}, &alice)
	assertRedirect(t, w, "/")

	assertRedirect(t, e.get("/grams/new", &alice), signInPath)
}

func TestSignInRedirectCarriesFlash(t *testing.T) {
	e := newTestEnv(t)

	w := e.get("/grams/new", nil)
	assertRedirect(t, w, signInPath)

	w = serveRequest(e, cookieRequest("GET", signInPath, cookieNamed(t, w, flashCookie)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You need to sign in or sign up before continuing.")
}
