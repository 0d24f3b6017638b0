package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/db"
	"github.com/evcraddock/grammable/internal/gram"
)

type testEnv struct {
	t   *testing.T
	srv *Server
	db  *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, d.Close())
	})

	srv, err := NewServer(d, Options{Auth: auth.Config{
		DevMode: true,
		BaseURL: "http://localhost:8080",
	}})
	require.NoError(t, err)

	return &testEnv{t: t, srv: srv, db: d}
}

// account is a registered user with a live session cookie.
type account struct {
	user   *auth.User
	cookie *http.Cookie
}

func (e *testEnv) signUp(email string) account {
	e.t.Helper()
	ctx := context.Background()
	u, err := e.srv.users.Register(ctx, email, "secret123", "")
	require.NoError(e.t, err)

	w := httptest.NewRecorder()
	require.NoError(e.t, e.srv.sessions.Create(ctx, w, u.ID))
	return account{user: u, cookie: cookieNamed(e.t, w, "grammable_session")}
}

func cookieNamed(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("expected cookie %q", name)
	return nil
}

// form sends a form-encoded request. A nil account is anonymous.
func (e *testEnv) form(method, path string, values url.Values, as *account) *httptest.ResponseRecorder {
	e.t.Helper()
	var body *strings.Reader
	if values != nil {
		body = strings.NewReader(values.Encode())
	} else {
		body = strings.NewReader("")
	}
	r := httptest.NewRequest(method, path, body)
	if values != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if as != nil {
		r.AddCookie(as.cookie)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, r)
	return w
}

func (e *testEnv) get(path string, as *account) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.form("GET", path, nil, as)
}

// api sends a JSON request with an optional bearer token.
func (e *testEnv) api(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, r)
	return w
}

func (e *testEnv) apiKey(a account) string {
	e.t.Helper()
	raw, _, err := e.srv.apiKeys.Create(context.Background(), a.user.ID, "test")
	require.NoError(e.t, err)
	return raw
}

func (e *testEnv) createGram(owner account, message string) *gram.Gram {
	e.t.Helper()
	g, err := e.srv.grams.Create(context.Background(), owner.user.ID, owner.user.Email, message)
	require.NoError(e.t, err)
	return g
}

func (e *testEnv) gramCount() int {
	e.t.Helper()
	n, err := e.srv.grams.Count(context.Background())
	require.NoError(e.t, err)
	return n
}

func (e *testEnv) reload(id int64) (*gram.Gram, bool) {
	e.t.Helper()
	lookup, err := e.srv.grams.Find(context.Background(), id)
	require.NoError(e.t, err)
	return lookup.Gram()
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, to string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, to, w.Header().Get("Location"))
}

func cookieRequest(method, path string, c *http.Cookie) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	r.AddCookie(c)
	return r
}

func serveRequest(e *testEnv, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, r)
	return w
}
