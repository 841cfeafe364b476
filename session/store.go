package session

import (
	"maps"
	"sync"
)

// Well-known value names written by the OAuth flow.
const (
	// SocialNonceKey holds the anti-CSRF state issued when an OAuth login begins.
	SocialNonceKey = "socialNounce"
	// SocialUserKey holds the resolved social-login handle, e.g. "google:<sub>".
	SocialUserKey = "socialUser"
)

// Store is the per-request view of one session's key/value payload.
//
// Key and SID are fixed at construction. The value map is guarded by a mutex,
// so handlers running in different goroutines of one request may share a Store
// without extra locking.
type Store struct {
	key   string
	sid   string
	fresh bool

	mu       sync.Mutex
	values   map[string]string
	removed  map[string]struct{}
	modified bool
}

// New returns a Store for an existing identity populated with values.
// The map is copied.
func New(key, sid string, values map[string]string) *Store {
	s := &Store{key: key, sid: sid, values: make(map[string]string, len(values))}
	maps.Copy(s.values, values)
	return s
}

// Empty returns a Store for an existing identity with no values.
func Empty(key, sid string) *Store {
	return &Store{key: key, sid: sid, values: map[string]string{}}
}

// Fresh returns an empty Store for a newly minted identity.
func Fresh(key, sid string) *Store {
	s := Empty(key, sid)
	s.fresh = true
	return s
}

// Key returns the server-internal session key. It must never be sent to a client.
func (s *Store) Key() string { return s.key }

// SID returns the token to place in the outgoing cookie. It is constant for
// the Store's lifetime; mutation changes only the persisted payload.
func (s *Store) SID() string { return s.sid }

// IsNew reports whether the identity was minted for this request.
func (s *Store) IsNew() bool { return s.fresh }

// Get returns the value stored under name.
func (s *Store) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[name]
	return v, ok
}

// Set stores value under name.
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[name] = value
	delete(s.removed, name)
	s.modified = true
}

// Delete removes name. The removal is applied to the cache on the next persist.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, name)
	if s.removed == nil {
		s.removed = make(map[string]struct{})
	}
	s.removed[name] = struct{}{}
	s.modified = true
}

// Modified reports whether Set or Delete has been called.
func (s *Store) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// Values returns a copy of the current payload.
func (s *Store) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

// Snapshot returns a consistent copy of the payload and the pending removals.
func (s *Store) Snapshot() (values map[string]string, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values = make(map[string]string, len(s.values))
	maps.Copy(values, s.values)
	for name := range s.removed {
		removed = append(removed, name)
	}
	return values, removed
}
