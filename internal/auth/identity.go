package auth

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidAPIKey is returned for a malformed or unknown bearer key.
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrRateLimited is returned once an IP has too many recent failed
	// sign-in or API key attempts.
	ErrRateLimited = errors.New("too many requests")
)

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

// rateLimiter tracks failed credential attempts per IP.
type rateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	window   time.Duration
	maxFail  int
	now      func() time.Time
}

func newRateLimiter(window time.Duration, maxFail int) *rateLimiter {
	return &rateLimiter{
		attempts: make(map[string][]time.Time),
		window:   window,
		maxFail:  maxFail,
		now:      time.Now,
	}
}

// prune drops attempts outside the window. Caller holds mu.
func (rl *rateLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	valid := rl.attempts[ip][:0]
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = valid
	return valid
}

// limited reports whether ip has used up its failures for the window.
func (rl *rateLimiter) limited(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(ip, rl.now())) >= rl.maxFail
}

// recordFailure records a failed attempt.
func (rl *rateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	rl.attempts[ip] = append(rl.prune(ip, now), now)
}

// Identifier resolves the user behind a request, from a session cookie or
// a bearer API key. A nil user with a nil error means the request is anonymous.
type Identifier struct {
	sessions *SessionStore
	users    *UserStore
	apiKeys  *APIKeyStore
	limiter  *rateLimiter
}

// NewIdentifier creates an Identifier.
func NewIdentifier(sessions *SessionStore, users *UserStore, apiKeys *APIKeyStore) *Identifier {
	return &Identifier{
		sessions: sessions,
		users:    users,
		apiKeys:  apiKeys,
		limiter:  newRateLimiter(rateLimitWindow, rateLimitMaxFail),
	}
}

// FromSession returns the signed-in user, or nil for anonymous requests.
func (i *Identifier) FromSession(r *http.Request) (*User, error) {
	userID, err := i.sessions.Validate(r)
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u, err := i.users.GetByID(r.Context(), userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

// FromAPIKey returns the owner of the request's bearer key, or nil when no
// Authorization header is present. Returns ErrInvalidAPIKey for unknown keys
// and ErrRateLimited once an IP has failed too often.
func (i *Identifier) FromAPIKey(r *http.Request) (*User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, ErrInvalidAPIKey
	}
	key := strings.TrimPrefix(authHeader, "Bearer ")

	ip := clientIP(r)
	if i.limiter.limited(ip) {
		return nil, ErrRateLimited
	}

	userID, ok, err := i.apiKeys.Validate(r.Context(), key)
	if err != nil {
		return nil, err
	}
	if !ok {
		i.limiter.recordFailure(ip)
		return nil, ErrInvalidAPIKey
	}

	u, err := i.users.GetByID(r.Context(), userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidAPIKey
	}
	return u, err
}

// SignIn checks an email/password pair. Failures count against the same
// per-IP limit as bearer keys; once it is reached SignIn returns
// ErrRateLimited without checking the password.
func (i *Identifier) SignIn(r *http.Request, email, password string) (*User, error) {
	ip := clientIP(r)
	if i.limiter.limited(ip) {
		return nil, ErrRateLimited
	}

	u, err := i.users.Authenticate(r.Context(), email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		i.limiter.recordFailure(ip)
	}
	return u, err
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
