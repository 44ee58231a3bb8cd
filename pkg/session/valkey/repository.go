package sessionvalkey

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/tourista/session-coordinator/internal/serviceerr"
	"github.com/tourista/session-coordinator/pkg/session"
)

const objectTypeCookie = "cookie"

// Repository keeps the durable session cookies in ValKey. Keys expire
// together with their cookie.
type Repository struct {
	store *store
}

var _ session.Repository = (*Repository)(nil)

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
	}
}

// storedCookie is the JSON form of a cookie. http.Cookie carries no json tags
// and a number of fields that only matter on the wire.
type storedCookie struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Path     string        `json:"path,omitempty"`
	Domain   string        `json:"domain,omitempty"`
	Expires  time.Time     `json:"expires"`
	MaxAge   int           `json:"maxAge,omitempty"`
	Secure   bool          `json:"secure,omitempty"`
	HTTPOnly bool          `json:"httpOnly,omitempty"`
	SameSite http.SameSite `json:"sameSite,omitempty"`
}

func (r *Repository) LoadCookie(ctx context.Context, name string) (*http.Cookie, error) {
	var c storedCookie
	if err := r.store.Get(ctx, objectTypeCookie, name, &c); err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("getting cookie from store: %w", err)
	}

	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}, nil
}

func (r *Repository) StoreCookie(ctx context.Context, c *http.Cookie) error {
	var ttl time.Duration
	if !c.Expires.IsZero() {
		ttl = time.Until(c.Expires)
		if ttl <= 0 {
			return r.DeleteCookie(ctx, c.Name)
		}
	}

	stored := storedCookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
		SameSite: c.SameSite,
	}
	if err := r.store.Set(ctx, objectTypeCookie, c.Name, stored, ttl); err != nil {
		return fmt.Errorf("setting cookie into storage: %w", err)
	}

	return nil
}

func (r *Repository) DeleteCookie(ctx context.Context, name string) error {
	if err := r.store.Destroy(ctx, objectTypeCookie, name); err != nil {
		return fmt.Errorf("deleting cookie from storage: %w", err)
	}

	return nil
}
