package sessionsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tourista/session-coordinator/internal/serviceerr"
	"github.com/tourista/session-coordinator/pkg/session"
)

// Repository keeps the durable session cookies in the session_cookies table.
type Repository struct {
	db *pgxpool.Pool
}

var _ session.Repository = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

// LoadCookie returns the cookie called name. Expired cookies are treated as
// missing.
func (r *Repository) LoadCookie(ctx context.Context, name string) (*http.Cookie, error) {
	var (
		c        http.Cookie
		expires  *time.Time
		sameSite int16
	)

	if err := r.db.QueryRow(ctx, `SELECT name, value, path, domain, expires, max_age, secure, http_only, same_site
FROM session_cookies
WHERE name = $1
	AND (expires IS NULL OR expires > now());`,
		name,
	).
		Scan(&c.Name, &c.Value, &c.Path, &c.Domain, &expires, &c.MaxAge, &c.Secure, &c.HttpOnly, &sameSite); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serviceerr.ErrNotFound
		}
		if err, ok := handlePgError(err); ok {
			return nil, err
		}

		return nil, fmt.Errorf("selecting from session_cookies: %w", err)
	}

	if expires != nil {
		c.Expires = *expires
	}
	c.SameSite = http.SameSite(sameSite)

	return &c, nil
}

// StoreCookie inserts or replaces the cookie.
func (r *Repository) StoreCookie(ctx context.Context, c *http.Cookie) error {
	var expires *time.Time
	if !c.Expires.IsZero() {
		expires = &c.Expires
	}

	if _, err := r.db.Exec(
		ctx, `INSERT INTO session_cookies (name, value, path, domain, expires, max_age, secure, http_only, same_site, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	ON CONFLICT (name)
	DO UPDATE SET (value, path, domain, expires, max_age, secure, http_only, same_site, updated_at) =
		(EXCLUDED.value, EXCLUDED.path, EXCLUDED.domain, EXCLUDED.expires, EXCLUDED.max_age, EXCLUDED.secure, EXCLUDED.http_only, EXCLUDED.same_site, EXCLUDED.updated_at);`,
		c.Name, c.Value, c.Path, c.Domain, expires, c.MaxAge, c.Secure, c.HttpOnly, int16(c.SameSite),
	); err != nil {
		if err, ok := handlePgError(err); ok {
			return err
		}

		return fmt.Errorf("inserting into session_cookies: %w", err)
	}

	return nil
}

// DeleteCookie removes the cookie. Removing a missing cookie is not an error.
func (r *Repository) DeleteCookie(ctx context.Context, name string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM session_cookies WHERE name = $1;`, name); err != nil {
		if err, ok := handlePgError(err); ok {
			return err
		}

		return fmt.Errorf("deleting from session_cookies: %w", err)
	}

	return nil
}

// DeleteExpired removes every cookie past its expiry and reports how many
// were removed.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM session_cookies WHERE expires IS NOT NULL AND expires <= now();`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired cookies: %w", err)
	}

	return tag.RowsAffected(), nil
}
