package session

import (
	"sync"
	"time"
)

// Identity is the authenticated user as the rest of the client sees it.
type Identity struct {
	UserID      string
	DisplayName string
	Role        Role
	// TokenExpiry is zero when the token never expires.
	TokenExpiry time.Time
}

// Persister stores the raw token between program runs. Implemented by
// localstate.Store; nil disables persistence.
type Persister interface {
	SaveSession(token string) error
	LoadSession() (string, error)
	ClearSession() error
}

// Store holds the current token and its derived Identity.
//
// Store is the sole writer of Identity. Everything that needs the current
// user gets a *Store injected; nothing reads ambient storage directly.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	token    string
	identity *Identity
	persist  Persister

	now func() time.Time // injectable for tests
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPersister attaches durable token storage. Set and Clear write through
// to it; persistence failures do not fail the in-memory update.
func WithPersister(p Persister) StoreOption {
	return func(s *Store) { s.persist = p }
}

// WithClock overrides the validity clock.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads a previously persisted token, if any. A token that fails
// to decode is discarded rather than surfaced - a corrupt persisted session
// is equivalent to being signed out.
func (s *Store) Restore() error {
	if s.persist == nil {
		return nil
	}
	token, err := s.persist.LoadSession()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	if err := s.set(token, ""); err != nil {
		_ = s.persist.ClearSession()
	}
	return nil
}

// Set installs a new token, deriving Identity from its claims.
//
// roleHint overrides an absent role claim (the login response may state the
// role explicitly); the claim wins when both are present.
func (s *Store) Set(token string, roleHint string) error {
	return s.set(token, roleHint)
}

func (s *Store) set(token, roleHint string) error {
	claims, err := DecodeClaims(token)
	if err != nil {
		return err
	}

	role := claims.Role
	if role == RoleCustomer && roleHint != "" {
		role = ParseRole(roleHint)
	}

	s.mu.Lock()
	s.token = token
	s.identity = &Identity{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Role:        role,
		TokenExpiry: claims.Expiry,
	}
	s.mu.Unlock()

	if s.persist != nil {
		return s.persist.SaveSession(token)
	}
	return nil
}

// Clear destroys the identity. Called on logout and on SessionExpired.
func (s *Store) Clear() {
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	if s.persist != nil {
		_ = s.persist.ClearSession()
	}
}

// Token returns the raw bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Get returns the current Identity. ok is false when signed out.
func (s *Store) Get() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Valid reports whether a usable identity is present: a token exists and
// has not passed its expiry. A zero expiry never expires.
func (s *Store) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.identity == nil {
		return false
	}
	if s.identity.TokenExpiry.IsZero() {
		return true
	}
	return s.now().Before(s.identity.TokenExpiry)
}
