package sessionmock

import (
	"context"
	"net/http"
	"sync"

	"github.com/tourista/session-coordinator/internal/serviceerr"
	"github.com/tourista/session-coordinator/pkg/session"
)

type RepositoryOption func(*Repository)

// Repository is an in-memory cookie repository for tests. It is safe for
// concurrent use.
type Repository struct {
	mu          sync.Mutex
	cookies     map[string]*http.Cookie
	storeCalls  int
	deleteCalls int

	loadCookieErr, storeCookieErr, deleteCookieErr error
}

func WithCookie(c *http.Cookie) RepositoryOption {
	return func(r *Repository) { r.cookies[c.Name] = c }
}
func WithLoadCookieError(err error) RepositoryOption {
	return func(r *Repository) { r.loadCookieErr = err }
}
func WithStoreCookieError(err error) RepositoryOption {
	return func(r *Repository) { r.storeCookieErr = err }
}
func WithDeleteCookieError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteCookieErr = err }
}

var _ = session.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		cookies: make(map[string]*http.Cookie),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) LoadCookie(_ context.Context, name string) (*http.Cookie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadCookieErr != nil {
		return nil, r.loadCookieErr
	}
	if c, ok := r.cookies[name]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, serviceerr.ErrNotFound
}

func (r *Repository) StoreCookie(_ context.Context, c *http.Cookie) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.storeCalls++
	if r.storeCookieErr != nil {
		return r.storeCookieErr
	}
	cp := *c
	r.cookies[c.Name] = &cp
	return nil
}

func (r *Repository) DeleteCookie(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteCalls++
	if r.deleteCookieErr != nil {
		return r.deleteCookieErr
	}
	delete(r.cookies, name)
	return nil
}

// Cookie returns the stored cookie without going through the error injection.
func (r *Repository) Cookie(name string) (*http.Cookie, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cookies[name]
	return c, ok
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.cookies)
}

func (r *Repository) StoreCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.storeCalls
}

func (r *Repository) DeleteCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deleteCalls
}
