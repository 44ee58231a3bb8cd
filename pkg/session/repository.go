package session

import (
	"context"
	"net/http"
)

// Repository is the durable cookie storage backing a session across process
// restarts.
type Repository interface {
	// LoadCookie returns serviceerr.ErrNotFound when no cookie with the name is stored.
	LoadCookie(ctx context.Context, name string) (*http.Cookie, error)
	StoreCookie(ctx context.Context, cookie *http.Cookie) error
	// DeleteCookie must not fail when the cookie does not exist.
	DeleteCookie(ctx context.Context, name string) error
}

// AuthAPI is the remote authentication API.
type AuthAPI interface {
	Login(ctx context.Context, credentials Credentials) (Session, error)
	Register(ctx context.Context, registration Registration) (Session, error)
	// Refresh exchanges the current token pair for a new one.
	Refresh(ctx context.Context, accessToken, refreshToken string) (Session, error)
}
