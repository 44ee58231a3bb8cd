package session

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	currentSessionKey    = "current"
	storeCleanupInterval = time.Minute
)

// Store is the in-memory copy of the session. Readers either see no session
// or a complete one. A session disappears on its own once its refresh token
// expires.
type Store struct {
	cache    *gocache.Cache
	watchers *watchers
}

// watchers is kept apart from the cache. The eviction hook must not reference
// the cache, or the janitor goroutine keeps it reachable forever.
type watchers struct {
	mu     sync.Mutex
	fns    map[uint64]func(Session, bool)
	nextID uint64
}

func NewStore() *Store {
	w := &watchers{fns: make(map[uint64]func(Session, bool))}

	cache := gocache.New(gocache.NoExpiration, storeCleanupInterval)
	// fires for Clear and for the janitor removing an expired session
	cache.OnEvicted(func(string, any) {
		w.notify(Session{}, false)
	})

	return &Store{cache: cache, watchers: w}
}

func (s *Store) Current() (Session, bool) {
	v, ok := s.cache.Get(currentSessionKey)
	if !ok {
		return Session{}, false
	}

	//nolint:forcetypeassert
	return v.(Session), true
}

func (s *Store) Set(sess Session) {
	ttl := gocache.NoExpiration
	if !sess.RefreshTokenExpiry.IsZero() {
		ttl = time.Until(sess.RefreshTokenExpiry)
		if ttl <= 0 {
			s.Clear()
			return
		}
	}

	s.cache.Set(currentSessionKey, sess, ttl)
	s.watchers.notify(sess, true)
}

// Clear removes the session. Clearing an empty store is a no-op and does not
// notify watchers.
func (s *Store) Clear() {
	s.cache.Delete(currentSessionKey)
}

// Watch registers fn to be called on every session change. The returned
// function unregisters it.
func (s *Store) Watch(fn func(sess Session, ok bool)) (cancel func()) {
	w := s.watchers

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.fns[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.fns, id)
		w.mu.Unlock()
	}
}

func (w *watchers) notify(sess Session, ok bool) {
	w.mu.Lock()
	fns := make([]func(Session, bool), 0, len(w.fns))
	for _, fn := range w.fns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(sess, ok)
	}
}
