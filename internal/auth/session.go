package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the authorization state of one user session.
type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingCallback
	StateAuthorized
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateAuthorized:
		return "authorized"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenPair is the provider-issued credential set. The refresh token is
// single-use: every refresh rotates it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// expiresWithin reports whether the access token expires within margin of now.
func (p TokenPair) expiresWithin(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(p.ExpiresAt)
}

// Session holds the authorization state for one user session. All transitions
// go through the Coordinator; the mutex exists because net/http serves
// requests concurrently, and it makes the refresh path single-flight.
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	authURL    string
	oauthState string
	pair       TokenPair
}

// State returns the current authorization state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AuthURL returns the authorization URL issued by BeginAuthorization, if any.
func (s *Session) AuthURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authURL
}

// ExpiresAt returns the stored access token expiry, zero when not authorized.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair.ExpiresAt
}

// Registry owns the live sessions, keyed by the session cookie value.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// New creates and registers a fresh unauthenticated session.
func (r *Registry) New() *Session {
	s := &Session{ID: uuid.NewString(), state: StateUnauthenticated}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for id, or nil when unknown.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Delete removes the session for id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
