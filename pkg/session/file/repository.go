package sessionfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/tourista/session-coordinator/internal/serviceerr"
	"github.com/tourista/session-coordinator/pkg/session"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Repository keeps the durable session cookies in a YAML file readable only
// by its owner. Every write replaces the file atomically.
type Repository struct {
	path string
	mu   sync.Mutex
}

var _ session.Repository = (*Repository)(nil)

// NewRepository returns a repository backed by the file at path.
// Environment variables in path are expanded.
func NewRepository(path string) (*Repository, error) {
	path = os.ExpandEnv(path)
	if path == "" {
		return nil, errors.New("cookie file path is empty")
	}

	return &Repository{path: filepath.Clean(path)}, nil
}

// Path returns the location of the cookie file.
func (r *Repository) Path() string {
	return r.path
}

type cookieFile struct {
	Cookies map[string]storedCookie `yaml:"cookies"`
}

type storedCookie struct {
	Value    string    `yaml:"value"`
	Path     string    `yaml:"path,omitempty"`
	Domain   string    `yaml:"domain,omitempty"`
	Expires  time.Time `yaml:"expires,omitempty"`
	MaxAge   int       `yaml:"maxAge,omitempty"`
	Secure   bool      `yaml:"secure,omitempty"`
	HTTPOnly bool      `yaml:"httpOnly,omitempty"`
	SameSite int       `yaml:"sameSite,omitempty"`
}

func (r *Repository) LoadCookie(_ context.Context, name string) (*http.Cookie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.read()
	if err != nil {
		return nil, err
	}

	c, ok := f.Cookies[name]
	if !ok {
		return nil, serviceerr.ErrNotFound
	}

	return &http.Cookie{
		Name:     name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: http.SameSite(c.SameSite),
	}, nil
}

func (r *Repository) StoreCookie(_ context.Context, c *http.Cookie) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.read()
	if err != nil {
		return err
	}

	f.Cookies[c.Name] = storedCookie{
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
		SameSite: int(c.SameSite),
	}

	return r.write(f)
}

// DeleteCookie removes the cookie. The file is removed together with the
// last cookie.
func (r *Repository) DeleteCookie(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.read()
	if err != nil {
		return err
	}

	if _, ok := f.Cookies[name]; !ok {
		return nil
	}

	delete(f.Cookies, name)
	if len(f.Cookies) == 0 {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing cookie file: %w", err)
		}

		return nil
	}

	return r.write(f)
}

func (r *Repository) read() (cookieFile, error) {
	f := cookieFile{Cookies: make(map[string]storedCookie)}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return cookieFile{}, fmt.Errorf("reading cookie file: %w", err)
	}

	if err := yaml.Unmarshal(data, &f); err != nil {
		return cookieFile{}, fmt.Errorf("decoding cookie file %s: %w", r.path, err)
	}

	if f.Cookies == nil {
		f.Cookies = make(map[string]storedCookie)
	}

	return f, nil
}

func (r *Repository) write(f cookieFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding cookie file: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("creating cookie directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return fmt.Errorf("creating temporary cookie file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting cookie file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cookie file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cookie file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing cookie file: %w", err)
	}

	return nil
}
