package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identityFixture struct {
	identifier *Identifier
	sessions   *SessionStore
	users      *UserStore
	apiKeys    *APIKeyStore
	user       *User
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	d := openTestDB(t)
	f := &identityFixture{
		sessions: NewSessionStore(d, false, 0),
		users:    testUserStore(t, d),
		apiKeys:  NewAPIKeyStore(d),
	}
	f.identifier = NewIdentifier(f.sessions, f.users, f.apiKeys)
	f.user = registerUser(t, f.users, "alice@example.com")
	return f
}

func TestFromSessionAnonymous(t *testing.T) {
	f := newIdentityFixture(t)

	u, err := f.identifier.FromSession(httptest.NewRequest("GET", "/grams", nil))
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestFromSessionSignedIn(t *testing.T) {
	f := newIdentityFixture(t)

	w := httptest.NewRecorder()
	require.NoError(t, f.sessions.Create(context.Background(), w, f.user.ID))

	r := httptest.NewRequest("GET", "/grams", nil)
	r.AddCookie(sessionCookie(t, w))

	u, err := f.identifier.FromSession(r)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, f.user.ID, u.ID)
}

func TestFromSessionDeletedUser(t *testing.T) {
	f := newIdentityFixture(t)

	w := httptest.NewRecorder()
	require.NoError(t, f.sessions.Create(context.Background(), w, f.user.ID))
	require.NoError(t, f.users.Delete(context.Background(), f.user.ID))

	r := httptest.NewRequest("GET", "/grams", nil)
	r.AddCookie(sessionCookie(t, w))

	u, err := f.identifier.FromSession(r)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestFromAPIKey(t *testing.T) {
	f := newIdentityFixture(t)
	raw, _, err := f.apiKeys.Create(context.Background(), f.user.ID, "cli")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		wantErr error
		wantID  int64
	}{
		{name: "no header"},
		{name: "valid key", header: "Bearer " + raw, wantID: f.user.ID},
		{name: "unknown key", header: "Bearer gr_nope", wantErr: ErrInvalidAPIKey},
		{name: "wrong scheme", header: "Basic abc", wantErr: ErrInvalidAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/grams", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			u, err := f.identifier.FromAPIKey(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantID == 0 {
				assert.Nil(t, u)
				return
			}
			require.NotNil(t, u)
			assert.Equal(t, tt.wantID, u.ID)
		})
	}
}

func TestFromAPIKeyRateLimited(t *testing.T) {
	f := newIdentityFixture(t)
	raw, _, err := f.apiKeys.Create(context.Background(), f.user.ID, "cli")
	require.NoError(t, err)

	for i := 0; i < rateLimitMaxFail; i++ {
		r := httptest.NewRequest("GET", "/api/grams", nil)
		r.Header.Set("Authorization", "Bearer gr_bad")
		_, err := f.identifier.FromAPIKey(r)
		require.ErrorIs(t, err, ErrInvalidAPIKey)
	}

	r := httptest.NewRequest("GET", "/api/grams", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	_, err = f.identifier.FromAPIKey(r)
	assert.ErrorIs(t, err, ErrRateLimited, "even a valid key is refused once the IP is limited")

	other := httptest.NewRequest("GET", "/api/grams", nil)
	other.RemoteAddr = "10.0.0.9:4444"
	other.Header.Set("Authorization", "Bearer "+raw)
	u, err := f.identifier.FromAPIKey(other)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, u.ID)
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(time.Minute, 2)
	rl.now = func() time.Time { return now }

	rl.recordFailure("1.2.3.4")
	assert.False(t, rl.limited("1.2.3.4"))
	rl.recordFailure("1.2.3.4")
	assert.True(t, rl.limited("1.2.3.4"))
	assert.False(t, rl.limited("5.6.7.8"))

	now = now.Add(61 * time.Second)
	assert.False(t, rl.limited("1.2.3.4"))
	assert.Empty(t, rl.attempts, "pruned entries are dropped")
}

func TestSuccessfulKeysAreNotCounted(t *testing.T) {
	f := newIdentityFixture(t)
	raw, _, err := f.apiKeys.Create(context.Background(), f.user.ID, "cli")
	require.NoError(t, err)

	for i := 0; i < rateLimitMaxFail*2; i++ {
		r := httptest.NewRequest("GET", "/api/grams", nil)
		r.Header.Set("Authorization", "Bearer "+raw)
		_, err := f.identifier.FromAPIKey(r)
		require.NoError(t, err)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.RemoteAddr = "bare"
	assert.Equal(t, "bare", clientIP(r))
}

func TestSignIn(t *testing.T) {
	f := newIdentityFixture(t)
	r := httptest.NewRequest("POST", "/users/sign_in", nil)

	u, err := f.identifier.SignIn(r, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, u.ID)

	_, err = f.identifier.SignIn(r, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInRateLimited(t *testing.T) {
	f := newIdentityFixture(t)
	r := httptest.NewRequest("POST", "/users/sign_in", nil)

	for i := 0; i < rateLimitMaxFail; i++ {
		_, err := f.identifier.SignIn(r, "alice@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.identifier.SignIn(r, "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrRateLimited, "correct password is refused while limited")

	other := httptest.NewRequest("POST", "/users/sign_in", nil)
	other.RemoteAddr = "10.0.0.9:4444"
	_, err = f.identifier.SignIn(other, "alice@example.com", "secret123")
	assert.NoError(t, err)
}

func TestSignInFailuresShareKeyLimit(t *testing.T) {
	f := newIdentityFixture(t)
	r := httptest.NewRequest("POST", "/users/sign_in", nil)

	for i := 0; i < rateLimitMaxFail; i++ {
		_, _ = f.identifier.SignIn(r, "alice@example.com", "wrong-password")
	}

	api := httptest.NewRequest("GET", "/api/grams", nil)
	api.Header.Set("Authorization", "Bearer gr_whatever")
	_, err := f.identifier.FromAPIKey(api)
	assert.ErrorIs(t, err, ErrRateLimited)
}
