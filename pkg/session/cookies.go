package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/internal/serviceerr"
)

// cookieJar keeps the token pair in the two durable cookies.
type cookieJar struct {
	repo         Repository
	tokenCookie  config.CookieTemplate
	refreshToken config.CookieTemplate
}

// persist writes both cookies. They share the refresh token expiry so that a
// stale access token is still around for the refresh call after a restart.
func (j cookieJar) persist(ctx context.Context, s Session) error {
	var errs []error
	if err := j.repo.StoreCookie(ctx, j.tokenCookie.ToCookie(s.AccessToken, s.RefreshTokenExpiry)); err != nil {
		errs = append(errs, fmt.Errorf("storing %s cookie: %w", j.tokenCookie.Name, err))
	}

	if err := j.repo.StoreCookie(ctx, j.refreshToken.ToCookie(s.RefreshToken, s.RefreshTokenExpiry)); err != nil {
		errs = append(errs, fmt.Errorf("storing %s cookie: %w", j.refreshToken.Name, err))
	}

	return errors.Join(errs...)
}

// load returns serviceerr.ErrNotFound when neither cookie is present.
func (j cookieJar) load(ctx context.Context) (accessToken, refreshToken string, _ error) {
	accessToken, err := j.value(ctx, j.tokenCookie.Name)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = j.value(ctx, j.refreshToken.Name)
	if err != nil {
		return "", "", err
	}

	if accessToken == "" && refreshToken == "" {
		return "", "", serviceerr.ErrNotFound
	}

	return accessToken, refreshToken, nil
}

func (j cookieJar) value(ctx context.Context, name string) (string, error) {
	c, err := j.repo.LoadCookie(ctx, name)
	if errors.Is(err, serviceerr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading %s cookie: %w", name, err)
	}

	if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
		return "", nil
	}

	return c.Value, nil
}

// clear removes both cookies. Removing absent cookies is not an error.
func (j cookieJar) clear(ctx context.Context) error {
	var errs []error
	for _, name := range []string{j.tokenCookie.Name, j.refreshToken.Name} {
		if err := j.repo.DeleteCookie(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("deleting %s cookie: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
