package config

import (
	"net/http"
	"time"
)

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

const (
	DefaultTokenCookieName        = "token"
	DefaultRefreshTokenCookieName = "refreshToken"
	DefaultCookiePath             = "/"
)

type CookieTemplate struct {
	Name     string         `yaml:"name"`
	Path     string         `yaml:"path"`
	Domain   string         `yaml:"domain"`
	MaxAge   int            `yaml:"maxAge"`
	Secure   bool           `yaml:"secure"`
	HTTPOnly bool           `yaml:"httpOnly"`
	SameSite CookieSameSite `yaml:"sameSite"`
}

// ToCookie renders the template with the given value. A zero expires leaves
// the cookie without an Expires attribute.
func (ct *CookieTemplate) ToCookie(value string, expires time.Time) *http.Cookie {
	var sameSite http.SameSite
	switch ct.SameSite {
	case CookieSameSiteNone:
		sameSite = http.SameSiteNoneMode
	case CookieSameSiteLax:
		sameSite = http.SameSiteLaxMode
	case CookieSameSiteStrict:
		sameSite = http.SameSiteStrictMode
	}

	path := ct.Path
	if path == "" {
		path = DefaultCookiePath
	}

	return &http.Cookie{
		Name:     ct.Name,
		Value:    value,
		Expires:  expires,
		MaxAge:   ct.MaxAge,
		Path:     path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
		SameSite: sameSite,
	}
}

// WithDefaults fills in the cookie names the remote API expects.
func (s Session) WithDefaults() Session {
	if s.TokenCookie.Name == "" {
		s.TokenCookie.Name = DefaultTokenCookieName
	}
	if s.RefreshTokenCookie.Name == "" {
		s.RefreshTokenCookie.Name = DefaultRefreshTokenCookieName
	}
	if s.RefreshTimeout <= 0 {
		s.RefreshTimeout = 10 * time.Second
	}

	return s
}
